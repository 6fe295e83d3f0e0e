package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

type fakeResult struct{ affected int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

type fakeRow struct {
	submission *Submission
	err        error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	s := r.submission
	*dest[0].(*string) = s.SubmissionID
	*dest[1].(*int64) = s.ProblemID
	*dest[2].(*int64) = s.UserID
	*dest[3].(*string) = s.Language
	*dest[4].(*string) = s.Code
	*dest[5].(*string) = s.Status
	*dest[6].(*int64) = s.RuntimeMs
	if s.SourceKey != "" {
		key := s.SourceKey
		*dest[7].(**string) = &key
	}
	*dest[8].(*time.Time) = s.CreatedAt
	return nil
}

type fakeRows struct {
	items []*Submission
	pos   int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.items)
}
func (r *fakeRows) Scan(dest ...interface{}) error {
	return fakeRow{submission: r.items[r.pos-1]}.Scan(dest...)
}
func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Err() error   { return nil }

// fakeDB stores submissions and solved pairs in memory.
type fakeDB struct {
	submissions map[string]*Submission
	solved      map[[2]int64]bool
	queries     int
	lastArgs    []interface{}
	execErr     error
}

func newFakeDB() *fakeDB {
	return &fakeDB{submissions: map[string]*Submission{}, solved: map[[2]int64]bool{}}
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	f.queries++
	f.lastArgs = args
	items := make([]*Submission, 0)
	for _, s := range f.submissions {
		if s.UserID == args[0].(int64) && s.ProblemID == args[1].(int64) {
			items = append(items, s)
		}
	}
	// newest first
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].CreatedAt.After(items[j-1].CreatedAt); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	return &fakeRows{items: items}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	f.queries++
	if s, ok := f.submissions[args[0].(string)]; ok {
		return fakeRow{submission: s}
	}
	return fakeRow{err: sql.ErrNoRows}
}

func (f *fakeDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	if strings.HasPrefix(query, "UPDATE submissions") {
		if s, ok := f.submissions[args[1].(string)]; ok {
			s.SourceKey = args[0].(string)
			return fakeResult{affected: 1}, nil
		}
		return fakeResult{}, nil
	}
	if strings.Contains(query, "user_solved_problems") {
		key := [2]int64{args[0].(int64), args[1].(int64)}
		if f.solved[key] {
			return fakeResult{}, nil
		}
		f.solved[key] = true
		return fakeResult{affected: 1}, nil
	}
	s := &Submission{
		SubmissionID: args[0].(string),
		ProblemID:    args[1].(int64),
		UserID:       args[2].(int64),
		Language:     args[3].(string),
		Code:         args[4].(string),
		Status:       args[5].(string),
		RuntimeMs:    args[6].(int64),
		SourceKey:    args[7].(string),
		CreatedAt:    args[8].(time.Time),
	}
	f.submissions[s.SubmissionID] = s
	return fakeResult{affected: 1}, nil
}

func (f *fakeDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return errors.New("not implemented")
}
func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close() error               { return nil }

func newCache(t *testing.T) (cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	return c, mr
}

func TestSubmissionCreateAndGet(t *testing.T) {
	database := newFakeDB()
	c, mr := newCache(t)
	repo := NewSubmissionRepository(database, c)

	s := &Submission{
		SubmissionID: "sub-1",
		ProblemID:    7,
		UserID:       42,
		Language:     "python",
		Code:         "print(1)",
		Status:       "Accepted",
		RuntimeMs:    31,
		SourceKey:    "sources/2026/10/17/sub-1.zst",
	}
	if err := repo.Create(context.Background(), nil, s); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if s.CreatedAt.IsZero() {
		t.Fatalf("created_at should be stamped")
	}
	if !mr.Exists(submissionCacheKey("sub-1")) {
		t.Fatalf("created submission should be cached")
	}

	got, err := repo.GetByID(context.Background(), nil, "sub-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != "Accepted" || got.SourceKey != s.SourceKey || got.UserID != 42 {
		t.Fatalf("unexpected submission %+v", got)
	}
	if database.queries != 0 {
		t.Fatalf("expected cache hit, got %d queries", database.queries)
	}
}

func TestSetSourceKeyDropsCachedSubmission(t *testing.T) {
	database := newFakeDB()
	c, mr := newCache(t)
	repo := NewSubmissionRepository(database, c)
	ctx := context.Background()

	s := &Submission{SubmissionID: "sub-1", ProblemID: 7, UserID: 42, Language: "python", Status: "Accepted"}
	if err := repo.Create(ctx, nil, s); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.SetSourceKey(ctx, "sub-1", "sources/2026/10/17/sub-1.zst"); err != nil {
		t.Fatalf("set source key failed: %v", err)
	}
	if mr.Exists(submissionCacheKey("sub-1")) {
		t.Fatalf("stale cache entry should be dropped")
	}
	got, err := repo.GetByID(ctx, nil, "sub-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.SourceKey != "sources/2026/10/17/sub-1.zst" {
		t.Fatalf("unexpected source key %q", got.SourceKey)
	}
	if err := repo.SetSourceKey(ctx, "", "k"); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestSubmissionGetMissing(t *testing.T) {
	database := newFakeDB()
	c, _ := newCache(t)
	repo := NewSubmissionRepository(database, c)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(context.Background(), nil, "nope"); !errors.Is(err, ErrSubmissionNotFound) {
			t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
		}
	}
	if database.queries != 1 {
		t.Fatalf("expected negative result to be cached, got %d queries", database.queries)
	}
}

func TestSubmissionCreateValidation(t *testing.T) {
	repo := NewSubmissionRepository(newFakeDB(), nil)
	tests := []struct {
		name string
		s    *Submission
	}{
		{"nil", nil},
		{"missing id", &Submission{ProblemID: 1, UserID: 1, Language: "python", Status: "Accepted"}},
		{"missing problem", &Submission{SubmissionID: "a", UserID: 1, Language: "python", Status: "Accepted"}},
		{"missing user", &Submission{SubmissionID: "a", ProblemID: 1, Language: "python", Status: "Accepted"}},
		{"missing language", &Submission{SubmissionID: "a", ProblemID: 1, UserID: 1, Status: "Accepted"}},
		{"missing status", &Submission{SubmissionID: "a", ProblemID: 1, UserID: 1, Language: "python"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Create(context.Background(), nil, tt.s); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestListByUserAndProblemNewestFirst(t *testing.T) {
	database := newFakeDB()
	repo := NewSubmissionRepository(database, nil)
	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := repo.Create(context.Background(), nil, &Submission{
			SubmissionID: id,
			ProblemID:    7,
			UserID:       42,
			Language:     "javascript",
			Status:       "Wrong Answer",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	_ = repo.Create(context.Background(), nil, &Submission{
		SubmissionID: "other", ProblemID: 8, UserID: 42, Language: "javascript", Status: "Accepted", CreatedAt: base,
	})

	list, err := repo.ListByUserAndProblem(context.Background(), 42, 7, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 3 || list[0].SubmissionID != "c" || list[2].SubmissionID != "a" {
		t.Fatalf("unexpected order %+v", list)
	}
	if database.lastArgs[2] != defaultListLimit {
		t.Fatalf("expected default limit, got %v", database.lastArgs[2])
	}

	if _, err := repo.ListByUserAndProblem(context.Background(), 42, 7, 10000); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if database.lastArgs[2] != maxListLimit {
		t.Fatalf("expected limit clamp, got %v", database.lastArgs[2])
	}
}

func TestSolvedAddIsIdempotent(t *testing.T) {
	database := newFakeDB()
	repo := NewSolvedRepository(database)

	inserted, err := repo.Add(context.Background(), nil, 42, 7)
	if err != nil || !inserted {
		t.Fatalf("first add = %v, %v", inserted, err)
	}
	inserted, err = repo.Add(context.Background(), nil, 42, 7)
	if err != nil || inserted {
		t.Fatalf("second add = %v, %v", inserted, err)
	}
	if len(database.solved) != 1 {
		t.Fatalf("expected one solved pair, got %d", len(database.solved))
	}
}

func TestSolvedAddDuplicateKeyIsNoop(t *testing.T) {
	database := newFakeDB()
	database.execErr = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '42-7' for key 'PRIMARY'"}
	repo := NewSolvedRepository(database)
	inserted, err := repo.Add(context.Background(), nil, 42, 7)
	if err != nil || inserted {
		t.Fatalf("duplicate add = %v, %v", inserted, err)
	}

	database.execErr = errors.New("connection reset")
	if _, err := repo.Add(context.Background(), nil, 42, 7); err == nil {
		t.Fatalf("expected exec error to surface")
	}
	if _, err := repo.Add(context.Background(), nil, 0, 7); err == nil {
		t.Fatalf("expected validation error")
	}
}
