package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
)

const (
	defaultSubmissionCacheTTL      = 30 * time.Minute
	defaultSubmissionCacheEmptyTTL = 5 * time.Minute
	submissionCacheKeyPrefix       = "submission:"

	defaultListLimit = 50
	maxListLimit     = 200
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Submission is an immutable judged submission record.
type Submission struct {
	SubmissionID string    `json:"submission_id"`
	ProblemID    int64     `json:"problem_id"`
	UserID       int64     `json:"user_id"`
	Language     string    `json:"language"`
	Code         string    `json:"code"`
	Status       string    `json:"status"`
	RuntimeMs    int64     `json:"runtime_ms"`
	SourceKey    string    `json:"source_key"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubmissionRepository defines submission persistence interfaces.
type SubmissionRepository interface {
	Create(ctx context.Context, tx db.Transaction, submission *Submission) error
	GetByID(ctx context.Context, tx db.Transaction, submissionID string) (*Submission, error)
	// ListByUserAndProblem returns submissions newest first.
	ListByUserAndProblem(ctx context.Context, userID, problemID int64, limit int) ([]*Submission, error)
	SetSourceKey(ctx context.Context, submissionID, key string) error
}

// MySQLSubmissionRepository implements SubmissionRepository with MySQL.
type MySQLSubmissionRepository struct {
	db       db.Database
	cache    cache.Cache
	ttl      time.Duration
	emptyTTL time.Duration
}

// NewSubmissionRepository creates a submission repository with defaults.
func NewSubmissionRepository(database db.Database, cacheClient cache.Cache) SubmissionRepository {
	return NewSubmissionRepositoryWithTTL(database, cacheClient, defaultSubmissionCacheTTL, defaultSubmissionCacheEmptyTTL)
}

// NewSubmissionRepositoryWithTTL creates a submission repository with custom TTL.
func NewSubmissionRepositoryWithTTL(database db.Database, cacheClient cache.Cache, ttl, emptyTTL time.Duration) SubmissionRepository {
	if ttl <= 0 {
		ttl = defaultSubmissionCacheTTL
	}
	if emptyTTL <= 0 {
		emptyTTL = defaultSubmissionCacheEmptyTTL
	}
	return &MySQLSubmissionRepository{
		db:       database,
		cache:    cacheClient,
		ttl:      ttl,
		emptyTTL: emptyTTL,
	}
}

const submissionColumns = "submission_id, problem_id, user_id, language, code, status, runtime_ms, source_key, created_at"

// Create inserts a submission record.
func (r *MySQLSubmissionRepository) Create(ctx context.Context, tx db.Transaction, submission *Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if submission.SubmissionID == "" {
		return errors.New("submissionID is required")
	}
	if submission.ProblemID <= 0 {
		return errors.New("problemID is required")
	}
	if submission.UserID <= 0 {
		return errors.New("userID is required")
	}
	if submission.Language == "" {
		return errors.New("language is required")
	}
	if submission.Status == "" {
		return errors.New("status is required")
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO submissions
		(submission_id, problem_id, user_id, language, code, status, runtime_ms, source_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.GetQuerier(r.db, tx).Exec(
		ctx,
		query,
		submission.SubmissionID,
		submission.ProblemID,
		submission.UserID,
		submission.Language,
		submission.Code,
		submission.Status,
		submission.RuntimeMs,
		submission.SourceKey,
		submission.CreatedAt,
	)
	if err != nil {
		return err
	}
	if r.cache != nil && tx == nil {
		r.setCache(ctx, submission)
	}
	return nil
}

// SetSourceKey records the archive key of a stored submission.
func (r *MySQLSubmissionRepository) SetSourceKey(ctx context.Context, submissionID, key string) error {
	if submissionID == "" {
		return errors.New("submissionID is required")
	}
	write := func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, "UPDATE submissions SET source_key = ? WHERE submission_id = ?", key, submissionID)
		return err
	}
	if r.cache == nil {
		return write(ctx)
	}
	return cache.DeleteCached(ctx, r.cache, submissionCacheKey(submissionID), write)
}

// GetByID retrieves a submission by id.
func (r *MySQLSubmissionRepository) GetByID(ctx context.Context, tx db.Transaction, submissionID string) (*Submission, error) {
	if submissionID == "" {
		return nil, errors.New("submissionID is required")
	}
	if r.cache != nil && tx == nil {
		submission, err := cache.GetWithCached[*Submission](
			ctx,
			r.cache,
			submissionCacheKey(submissionID),
			cache.JitterTTL(r.ttl),
			cache.JitterTTL(r.emptyTTL),
			func(submission *Submission) bool { return submission == nil },
			marshalSubmission,
			unmarshalSubmission,
			func(ctx context.Context) (*Submission, error) {
				submission, err := r.getByIDFromDB(ctx, nil, submissionID)
				if err != nil {
					if errors.Is(err, ErrSubmissionNotFound) {
						return nil, nil
					}
					return nil, err
				}
				return submission, nil
			},
		)
		if err != nil {
			return nil, err
		}
		if submission == nil {
			return nil, ErrSubmissionNotFound
		}
		return submission, nil
	}
	return r.getByIDFromDB(ctx, tx, submissionID)
}

// ListByUserAndProblem lists a user's submissions for a problem, newest first.
func (r *MySQLSubmissionRepository) ListByUserAndProblem(ctx context.Context, userID, problemID int64, limit int) ([]*Submission, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := "SELECT " + submissionColumns + " FROM submissions WHERE user_id = ? AND problem_id = ? ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := r.db.Query(ctx, query, userID, problemID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	submissions := make([]*Submission, 0)
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *MySQLSubmissionRepository) getByIDFromDB(ctx context.Context, tx db.Transaction, submissionID string) (*Submission, error) {
	query := "SELECT " + submissionColumns + " FROM submissions WHERE submission_id = ? LIMIT 1"
	row := db.GetQuerier(r.db, tx).QueryRow(ctx, query, submissionID)
	submission, err := scanSubmission(row)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

func scanSubmission(scanner db.Scanner) (*Submission, error) {
	submission := &Submission{}
	var sourceKey *string
	if err := scanner.Scan(
		&submission.SubmissionID,
		&submission.ProblemID,
		&submission.UserID,
		&submission.Language,
		&submission.Code,
		&submission.Status,
		&submission.RuntimeMs,
		&sourceKey,
		&submission.CreatedAt,
	); err != nil {
		return nil, err
	}
	if sourceKey != nil {
		submission.SourceKey = *sourceKey
	}
	return submission, nil
}

func (r *MySQLSubmissionRepository) setCache(ctx context.Context, submission *Submission) {
	if submission == nil || r.cache == nil {
		return
	}
	payload := marshalSubmission(submission)
	if payload == "" {
		return
	}
	_ = r.cache.Set(ctx, submissionCacheKey(submission.SubmissionID), payload, cache.JitterTTL(r.ttl))
}

func submissionCacheKey(submissionID string) string {
	return submissionCacheKeyPrefix + submissionID
}

func marshalSubmission(submission *Submission) string {
	if submission == nil {
		return ""
	}
	data, err := json.Marshal(submission)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalSubmission(data string) (*Submission, error) {
	if data == "" || data == cache.NullCacheValue {
		return nil, nil
	}
	var submission Submission
	if err := json.Unmarshal([]byte(data), &submission); err != nil {
		return nil, err
	}
	return &submission, nil
}
