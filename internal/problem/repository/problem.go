package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/judge/model"
)

const (
	defaultProblemTTL      = 30 * time.Minute
	defaultProblemEmptyTTL = 5 * time.Minute
	problemSlugKeyPrefix   = "problem:slug:"
)

var (
	ErrProblemNotFound = errors.New("problem not found")
)

// ProblemRepository is the read side of the problem store plus the upsert used for seeding.
type ProblemRepository interface {
	GetBySlug(ctx context.Context, slug string) (*model.Problem, error)
	Upsert(ctx context.Context, tx db.Transaction, problem *model.Problem) error
	// Invalidate drops cached entries for slugs written inside a committed transaction.
	Invalidate(ctx context.Context, slugs ...string) error
}

type MySQLProblemRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

func NewProblemRepository(database db.Database, cacheClient cache.Cache) ProblemRepository {
	return NewProblemRepositoryWithTTL(database, cacheClient, defaultProblemTTL, defaultProblemEmptyTTL)
}

func NewProblemRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) ProblemRepository {
	if ttl <= 0 {
		ttl = defaultProblemTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultProblemEmptyTTL
	}
	return &MySQLProblemRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

func (r *MySQLProblemRepository) GetBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	if r.cache == nil {
		return r.getBySlugFromDB(ctx, slug)
	}
	problem, err := cache.GetWithCached[*model.Problem](
		ctx,
		r.cache,
		problemSlugKey(slug),
		cache.JitterTTL(r.ttl),
		cache.JitterTTL(r.emptyTTL),
		func(p *model.Problem) bool { return p == nil },
		marshalProblem,
		unmarshalProblem,
		func(ctx context.Context) (*model.Problem, error) {
			p, err := r.getBySlugFromDB(ctx, slug)
			if errors.Is(err, ErrProblemNotFound) {
				return nil, nil
			}
			return p, err
		},
	)
	if err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, ErrProblemNotFound
	}
	return problem, nil
}

// Upsert inserts or replaces a problem keyed by slug. Without a transaction the
// cache entry is dropped after the write; inside one the caller must Invalidate
// after commit.
func (r *MySQLProblemRepository) Upsert(ctx context.Context, tx db.Transaction, problem *model.Problem) error {
	if problem == nil {
		return errors.New("problem is nil")
	}
	if problem.Slug == "" {
		return errors.New("problem slug is required")
	}
	driverCode, err := json.Marshal(nonNilMap(problem.DriverCode))
	if err != nil {
		return fmt.Errorf("marshal driver code failed: %w", err)
	}
	starterCode, err := json.Marshal(nonNilMap(problem.StarterCode))
	if err != nil {
		return fmt.Errorf("marshal starter code failed: %w", err)
	}
	testCases, err := json.Marshal(problem.TestCases)
	if err != nil {
		return fmt.Errorf("marshal test cases failed: %w", err)
	}

	write := func(ctx context.Context) error {
		query := `
			INSERT INTO problems (slug, title, driver_code, starter_code, test_cases, time_limit_ms, memory_limit_mb)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				title = VALUES(title),
				driver_code = VALUES(driver_code),
				starter_code = VALUES(starter_code),
				test_cases = VALUES(test_cases),
				time_limit_ms = VALUES(time_limit_ms),
				memory_limit_mb = VALUES(memory_limit_mb)`
		_, err := db.GetQuerier(r.db, tx).Exec(ctx, query,
			problem.Slug,
			problem.Title,
			string(driverCode),
			string(starterCode),
			string(testCases),
			problem.Settings.TimeLimitMs,
			problem.Settings.MemoryLimitMB,
		)
		return err
	}
	if r.cache == nil || tx != nil {
		return write(ctx)
	}
	return cache.DeleteCached(ctx, r.cache, problemSlugKey(problem.Slug), write)
}

func (r *MySQLProblemRepository) Invalidate(ctx context.Context, slugs ...string) error {
	if r.cache == nil || len(slugs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		keys = append(keys, problemSlugKey(slug))
	}
	return r.cache.Del(ctx, keys...)
}

func (r *MySQLProblemRepository) getBySlugFromDB(ctx context.Context, slug string) (*model.Problem, error) {
	query := `
		SELECT id, slug, title, driver_code, starter_code, test_cases, time_limit_ms, memory_limit_mb
		FROM problems
		WHERE slug = ?
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, slug)
	problem, err := scanProblem(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	return problem, nil
}

func scanProblem(scanner db.Scanner) (*model.Problem, error) {
	var p model.Problem
	var driverCode, starterCode, cases []byte
	err := scanner.Scan(
		&p.ID,
		&p.Slug,
		&p.Title,
		&driverCode,
		&starterCode,
		&cases,
		&p.Settings.TimeLimitMs,
		&p.Settings.MemoryLimitMB,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalColumn(driverCode, &p.DriverCode); err != nil {
		return nil, fmt.Errorf("decode driver_code for %s failed: %w", p.Slug, err)
	}
	if err := unmarshalColumn(starterCode, &p.StarterCode); err != nil {
		return nil, fmt.Errorf("decode starter_code for %s failed: %w", p.Slug, err)
	}
	if err := unmarshalColumn(cases, &p.TestCases); err != nil {
		return nil, fmt.Errorf("decode test_cases for %s failed: %w", p.Slug, err)
	}
	return &p, nil
}

func unmarshalColumn(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func problemSlugKey(slug string) string {
	return problemSlugKeyPrefix + slug
}

func marshalProblem(p *model.Problem) string {
	payload, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(payload)
}

func unmarshalProblem(data string) (*model.Problem, error) {
	if data == "" {
		return nil, nil
	}
	var p model.Problem
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
