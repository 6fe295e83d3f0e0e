package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"codearena/internal/judge/model"
	"codearena/internal/problem/repository"
	pkgerrors "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultSampleCount = 2
	defaultDBTimeout   = 3 * time.Second
)

// SolvedLister reads a user's solved set.
type SolvedLister interface {
	ListByUser(ctx context.Context, userID int64) ([]int64, error)
}

// Config configures ProblemService.
type Config struct {
	Problems repository.ProblemRepository
	Solved   SolvedLister
	// Supports filters the advertised languages; nil advertises every driver.
	Supports func(lang model.Language) bool
	// SampleCount is how many leading test cases are shown as examples.
	SampleCount int
	DBTimeout   time.Duration
}

// ProblemService serves the public view of problems.
type ProblemService struct {
	problems    repository.ProblemRepository
	solved      SolvedLister
	supports    func(lang model.Language) bool
	sampleCount int
	dbTimeout   time.Duration
}

// ProblemView is a problem without its driver templates and hidden tests.
type ProblemView struct {
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Languages   []string          `json:"languages"`
	StarterCode map[string]string `json:"starterCode"`
	Examples    []model.TestCase  `json:"examples"`
	Settings    model.Settings    `json:"settings"`
}

// NewProblemService creates a new ProblemService.
func NewProblemService(cfg Config) (*ProblemService, error) {
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.SampleCount < 0 {
		return nil, fmt.Errorf("sample count must not be negative")
	}
	if cfg.SampleCount == 0 {
		cfg.SampleCount = defaultSampleCount
	}
	if cfg.DBTimeout <= 0 {
		cfg.DBTimeout = defaultDBTimeout
	}
	return &ProblemService{
		problems:    cfg.Problems,
		solved:      cfg.Solved,
		supports:    cfg.Supports,
		sampleCount: cfg.SampleCount,
		dbTimeout:   cfg.DBTimeout,
	}, nil
}

// GetProblem returns the public view of a problem.
func (s *ProblemService) GetProblem(ctx context.Context, slug string) (ProblemView, error) {
	if slug == "" {
		return ProblemView{}, pkgerrors.New(pkgerrors.RequiredFieldEmpty).WithDetail("field", "slug")
	}
	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	problem, err := s.problems.GetBySlug(dbCtx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrProblemNotFound) {
			return ProblemView{}, pkgerrors.New(pkgerrors.ProblemNotFound).WithDetail("slug", slug)
		}
		return ProblemView{}, pkgerrors.Wrap(fmt.Errorf("get problem failed: %w", err), pkgerrors.DatabaseError)
	}
	return s.view(problem), nil
}

// ListSolved returns the ids of problems the user has solved.
func (s *ProblemService) ListSolved(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.Unauthorized)
	}
	if s.solved == nil {
		return []int64{}, nil
	}
	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	ids, err := s.solved.ListByUser(dbCtx, userID)
	if err != nil {
		logger.Error(ctx, "list solved problems failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, pkgerrors.Wrap(fmt.Errorf("list solved failed: %w", err), pkgerrors.DatabaseError)
	}
	return ids, nil
}

func (s *ProblemService) view(problem *model.Problem) ProblemView {
	languages := make([]string, 0, len(problem.DriverCode))
	starter := make(map[string]string, len(problem.DriverCode))
	for lang := range problem.DriverCode {
		if s.supports != nil && !s.supports(model.Language(lang)) {
			continue
		}
		languages = append(languages, lang)
		if code, ok := problem.StarterCode[lang]; ok {
			starter[lang] = code
		}
	}
	sort.Strings(languages)

	n := s.sampleCount
	if n > len(problem.TestCases) {
		n = len(problem.TestCases)
	}
	examples := make([]model.TestCase, n)
	copy(examples, problem.TestCases[:n])

	return ProblemView{
		Slug:        problem.Slug,
		Title:       problem.Title,
		Languages:   languages,
		StarterCode: starter,
		Examples:    examples,
		Settings:    problem.Settings,
	}
}
