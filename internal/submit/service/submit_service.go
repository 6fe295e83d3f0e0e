package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/common/mq"
	"codearena/internal/judge/composer"
	"codearena/internal/judge/executor"
	"codearena/internal/judge/model"
	"codearena/internal/judge/verdict"
	problemRepo "codearena/internal/problem/repository"
	"codearena/internal/submit/archive"
	"codearena/internal/submit/repository"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	rateUserKeyPrefix   = "submit:rate:user:"
	defaultMaxCodeBytes = 64 * 1024
)

// RateLimitConfig holds per-user submit throttling. Zero values disable it.
type RateLimitConfig struct {
	UserMax int           `yaml:"userMax"`
	Window  time.Duration `yaml:"window"`
}

// TimeoutConfig holds timeout settings for external calls.
// Execute bounds one backend dispatch; zero leaves it to the backend.
type TimeoutConfig struct {
	DB      time.Duration `yaml:"db"`
	Cache   time.Duration `yaml:"cache"`
	MQ      time.Duration `yaml:"mq"`
	Storage time.Duration `yaml:"storage"`
	Execute time.Duration `yaml:"execute"`
}

// SourceArchive stores composed sources keyed by object key.
type SourceArchive interface {
	Put(ctx context.Context, key, source string) error
	Get(ctx context.Context, key string) (string, error)
}

// Config holds submit service dependencies and settings.
// Database, Archive, Producer and Cache are optional.
type Config struct {
	Problems    problemRepo.ProblemRepository
	Submissions repository.SubmissionRepository
	Solved      repository.SolvedRepository
	Database    db.Database
	Composer    *composer.Composer
	Dispatcher  executor.Dispatcher
	Archive     SourceArchive
	Producer    mq.Producer
	Cache       cache.Cache

	EventTopic   string
	MaxCodeBytes int
	RateLimit    RateLimitConfig
	Timeouts     TimeoutConfig
}

// SubmitService runs the judge pipeline for run and submit requests.
type SubmitService struct {
	problems    problemRepo.ProblemRepository
	submissions repository.SubmissionRepository
	solved      repository.SolvedRepository
	database    db.Database
	composer    *composer.Composer
	dispatcher  executor.Dispatcher
	archive     SourceArchive
	producer    mq.Producer
	cache       cache.Cache

	eventTopic   string
	maxCodeBytes int
	rateLimit    RateLimitConfig
	timeouts     TimeoutConfig
	now          func() time.Time
	newID        func() string
}

// RunInput describes an ephemeral run.
type RunInput struct {
	Language string
	Code     string
	Slug     string
}

// SubmitInput describes a persisted submission.
type SubmitInput struct {
	Language string
	Code     string
	Slug     string
	UserID   int64
}

// SubmitResult is the outcome of a submission plus its id.
type SubmitResult struct {
	SubmissionID string `json:"submissionId"`
	model.Outcome
}

// NewSubmitService creates a new submit service.
func NewSubmitService(cfg Config) (*SubmitService, error) {
	if cfg.Problems == nil {
		return nil, fmt.Errorf("problem repository is required")
	}
	if cfg.Submissions == nil {
		return nil, fmt.Errorf("submission repository is required")
	}
	if cfg.Solved == nil {
		return nil, fmt.Errorf("solved repository is required")
	}
	if cfg.Composer == nil {
		return nil, fmt.Errorf("composer is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.Producer != nil && cfg.EventTopic == "" {
		return nil, fmt.Errorf("event topic is required when a producer is set")
	}
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
	return &SubmitService{
		problems:     cfg.Problems,
		submissions:  cfg.Submissions,
		solved:       cfg.Solved,
		database:     cfg.Database,
		composer:     cfg.Composer,
		dispatcher:   cfg.Dispatcher,
		archive:      cfg.Archive,
		producer:     cfg.Producer,
		cache:        cfg.Cache,
		eventTopic:   cfg.EventTopic,
		maxCodeBytes: cfg.MaxCodeBytes,
		rateLimit:    cfg.RateLimit,
		timeouts:     cfg.Timeouts,
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

// Run judges code against a problem without persisting anything.
func (s *SubmitService) Run(ctx context.Context, input RunInput) (model.Outcome, error) {
	lang, err := s.validate(input.Language, input.Code, input.Slug)
	if err != nil {
		return model.Outcome{}, err
	}
	problem, err := s.loadProblem(ctx, input.Slug)
	if err != nil {
		return model.Outcome{}, err
	}
	outcome, _, err := s.judge(ctx, problem, lang, input.Code)
	return outcome, err
}

// Submit judges code, persists the submission whatever the verdict and marks
// the problem solved for the user on Accepted.
func (s *SubmitService) Submit(ctx context.Context, input SubmitInput) (SubmitResult, error) {
	if input.UserID <= 0 {
		return SubmitResult{}, appErr.ValidationError("user_id", "required")
	}
	lang, err := s.validate(input.Language, input.Code, input.Slug)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.checkRateLimit(ctx, input.UserID); err != nil {
		return SubmitResult{}, err
	}
	problem, err := s.loadProblem(ctx, input.Slug)
	if err != nil {
		return SubmitResult{}, err
	}
	outcome, source, err := s.judge(ctx, problem, lang, input.Code)
	if err != nil {
		return SubmitResult{}, err
	}

	submission := &repository.Submission{
		SubmissionID: s.newID(),
		ProblemID:    problem.ID,
		UserID:       input.UserID,
		Language:     string(lang),
		Code:         input.Code,
		Status:       string(outcome.Status),
		RuntimeMs:    outcome.RuntimeMs,
		CreatedAt:    s.now(),
	}
	if err := s.persist(ctx, submission, outcome.Status == model.VerdictAccepted); err != nil {
		return SubmitResult{}, err
	}
	s.archiveSource(ctx, submission, source)
	s.publishJudged(ctx, problem, submission)

	logger.Info(ctx, "submission judged",
		zap.String("submission_id", submission.SubmissionID),
		zap.String("problem", problem.Slug),
		zap.String("language", submission.Language),
		zap.String("status", submission.Status),
		zap.Int64("runtime_ms", submission.RuntimeMs),
	)
	return SubmitResult{SubmissionID: submission.SubmissionID, Outcome: outcome}, nil
}

// ListSubmissions returns the user's submissions for a problem, newest first.
func (s *SubmitService) ListSubmissions(ctx context.Context, userID int64, slug string) ([]*repository.Submission, error) {
	if userID <= 0 {
		return nil, appErr.ValidationError("user_id", "required")
	}
	if strings.TrimSpace(slug) == "" {
		return nil, appErr.ValidationError("slug", "required")
	}
	problem, err := s.loadProblem(ctx, slug)
	if err != nil {
		return nil, err
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	submissions, err := s.submissions.ListByUserAndProblem(ctxDB.ctx, userID, problem.ID, 0)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "list submissions failed")
	}
	return submissions, nil
}

// GetComposedSource returns the archived source unit that was dispatched for
// one of the user's submissions.
func (s *SubmitService) GetComposedSource(ctx context.Context, userID int64, submissionID string) (string, error) {
	if submissionID == "" {
		return "", appErr.ValidationError("submission_id", "required")
	}
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	submission, err := s.submissions.GetByID(ctxDB.ctx, nil, submissionID)
	ctxDB.cancel()
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return "", appErr.New(appErr.SubmissionNotFound).WithMessage("submission not found")
		}
		return "", appErr.Wrapf(err, appErr.DatabaseError, "get submission failed")
	}
	if submission.UserID != userID {
		// Other users' submissions are reported as missing.
		return "", appErr.New(appErr.SubmissionNotFound).WithMessage("submission not found")
	}
	if s.archive == nil || submission.SourceKey == "" {
		return "", appErr.New(appErr.NotFound).WithMessage("composed source is not archived")
	}
	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	defer ctxStorage.cancel()
	return s.archive.Get(ctxStorage.ctx, submission.SourceKey)
}

// judge composes, dispatches and evaluates. Configuration errors are returned
// before anything is dispatched; backend failures become a Runtime Error outcome.
func (s *SubmitService) judge(ctx context.Context, problem *model.Problem, lang model.Language, code string) (model.Outcome, string, error) {
	if !s.dispatcher.Supports(lang) {
		err := appErr.ConfigError(appErr.LanguageNotSupported, "no runtime pinned for language %q", lang).
			WithDetail("language", string(lang))
		logger.Warn(ctx, "judge rejected request", zap.String("problem", problem.Slug), zap.Error(err))
		return model.Outcome{}, "", err
	}
	source, err := s.composer.Compose(problem, lang, code)
	if err != nil {
		if appErr.IsConfigError(err) {
			logger.Warn(ctx, "compose failed", zap.String("problem", problem.Slug), zap.String("language", string(lang)), zap.Error(err))
		}
		return model.Outcome{}, "", err
	}

	ctxExec := withTimeout(ctx, s.timeouts.Execute)
	defer ctxExec.cancel()
	res := s.dispatcher.Dispatch(ctxExec.ctx, executor.Request{
		Language: lang,
		Source:   source,
		Limits: executor.Limits{
			TimeLimitMs:   problem.Settings.TimeLimitMs,
			MemoryLimitMB: problem.Settings.MemoryLimitMB,
		},
	})
	var outcome model.Outcome
	if res.Err != nil {
		outcome = verdict.TransportFailure(res.Err)
	} else {
		outcome = verdict.Judge(problem.TestCases, res.Stdout, res.Stderr)
	}
	outcome.RuntimeMs = res.Duration.Milliseconds()
	return outcome, source, nil
}

func (s *SubmitService) validate(language, code, slug string) (model.Language, error) {
	lang := model.ParseLanguage(language)
	if lang == "" {
		return "", appErr.ValidationError("language", "required")
	}
	if strings.TrimSpace(slug) == "" {
		return "", appErr.ValidationError("slug", "required")
	}
	if strings.TrimSpace(code) == "" {
		return "", appErr.ValidationError("code", "required")
	}
	if len(code) > s.maxCodeBytes {
		return "", appErr.New(appErr.CodeTooLarge).WithMessagef("code exceeds %d bytes", s.maxCodeBytes)
	}
	if !s.composer.Supports(lang) {
		return "", appErr.ConfigError(appErr.LanguageNotSupported, "language %q is not supported", lang).
			WithDetail("language", string(lang))
	}
	return lang, nil
}

func (s *SubmitService) loadProblem(ctx context.Context, slug string) (*model.Problem, error) {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	problem, err := s.problems.GetBySlug(ctxDB.ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, problemRepo.ErrProblemNotFound) {
			return nil, appErr.New(appErr.ProblemNotFound).WithDetail("slug", slug)
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get problem failed")
	}
	return problem, nil
}

// persist writes the submission and, when solved, the solved-set entry in one
// transaction when a database handle is available.
func (s *SubmitService) persist(ctx context.Context, submission *repository.Submission, solved bool) error {
	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()

	write := func(tx db.Transaction) error {
		if err := s.submissions.Create(ctxDB.ctx, tx, submission); err != nil {
			return appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create submission failed")
		}
		if !solved {
			return nil
		}
		if _, err := s.solved.Add(ctxDB.ctx, tx, submission.UserID, submission.ProblemID); err != nil {
			return appErr.Wrapf(err, appErr.UserUpdateFailed, "mark problem solved failed")
		}
		return nil
	}
	if s.database == nil {
		return write(nil)
	}
	return s.database.Transaction(ctxDB.ctx, write)
}

// archiveSource stores the composed source of a persisted submission and
// records its key. Failures leave the source key empty.
func (s *SubmitService) archiveSource(ctx context.Context, submission *repository.Submission, source string) {
	if s.archive == nil || source == "" {
		return
	}
	key := archive.Key(submission.SubmissionID, submission.CreatedAt)
	ctxStorage := withTimeout(ctx, s.timeouts.Storage)
	err := s.archive.Put(ctxStorage.ctx, key, source)
	ctxStorage.cancel()
	if err != nil {
		logger.Warn(ctx, "archive composed source failed",
			zap.String("submission_id", submission.SubmissionID), zap.Error(err))
		return
	}

	ctxDB := withTimeout(ctx, s.timeouts.DB)
	defer ctxDB.cancel()
	if err := s.submissions.SetSourceKey(ctxDB.ctx, submission.SubmissionID, key); err != nil {
		// The object stays in the bucket unreferenced.
		logger.Warn(ctx, "record source key failed",
			zap.String("submission_id", submission.SubmissionID), zap.String("key", key), zap.Error(err))
		return
	}
	submission.SourceKey = key
}

func (s *SubmitService) checkRateLimit(ctx context.Context, userID int64) error {
	if s.cache == nil || s.rateLimit.Window <= 0 || s.rateLimit.UserMax <= 0 {
		return nil
	}
	ctxCache := withTimeout(ctx, s.timeouts.Cache)
	defer ctxCache.cancel()
	count, err := cache.CountWindow(ctxCache.ctx, s.cache, fmt.Sprintf("%s%d", rateUserKeyPrefix, userID), s.rateLimit.Window)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "rate limit check failed")
	}
	if int(count) > s.rateLimit.UserMax {
		return appErr.New(appErr.SubmitTooFrequently).WithMessage("submit too frequently")
	}
	return nil
}

type timeoutCtx struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func withTimeout(ctx context.Context, timeout time.Duration) timeoutCtx {
	if timeout <= 0 {
		return timeoutCtx{ctx: ctx, cancel: func() {}}
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	return timeoutCtx{ctx: ctxTimeout, cancel: cancel}
}
