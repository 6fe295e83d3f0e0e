package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"codearena/internal/auth"
	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	commonmw "codearena/internal/common/http/middleware"
	"codearena/internal/common/mq"
	"codearena/internal/common/storage"
	"codearena/internal/judge/composer"
	"codearena/internal/judge/executor"
	"codearena/internal/judge/model"
	problemController "codearena/internal/problem/controller"
	problemRepo "codearena/internal/problem/repository"
	problemService "codearena/internal/problem/service"
	"codearena/internal/submit/archive"
	"codearena/internal/submit/controller"
	submitRepo "codearena/internal/submit/repository"
	"codearena/internal/submit/service"
	"codearena/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	envPath := flag.String("env", ".env", "Optional dotenv file with secret overrides")
	seedPath := flag.String("seed", "", "Upsert problems from a YAML file and exit")
	issueToken := flag.Int64("issue-token", 0, "Print an access token for the given user id and exit")
	flag.Parse()

	if err := loadEnvFile(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	authenticator, err := auth.NewAuthenticator(appCfg.Auth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init authenticator failed: %v\n", err)
		os.Exit(1)
	}
	if *issueToken > 0 {
		token, err := authenticator.IssueToken(*issueToken, "user")
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue token failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg, authenticator, *seedPath); err != nil {
		logger.Error(context.Background(), "judge service exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig, authenticator *auth.Authenticator, seedPath string) error {
	ctx := context.Background()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		return fmt.Errorf("init database failed: %w", err)
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis failed: %w", err)
	}
	defer func() {
		_ = redisCache.Close()
	}()

	problems := problemRepo.NewProblemRepositoryWithTTL(mysqlDB, redisCache, appCfg.Submit.ProblemCacheTTL, appCfg.Submit.ProblemEmptyTTL)
	if seedPath != "" {
		seeds, err := loadSeedFile(seedPath)
		if err != nil {
			return fmt.Errorf("load seed file failed: %w", err)
		}
		if err := seedProblems(ctx, mysqlDB, problems, seeds); err != nil {
			return err
		}
		logger.Info(ctx, "seed completed", zap.Int("problems", len(seeds)))
		return nil
	}

	solved := submitRepo.NewSolvedRepository(mysqlDB)
	codeComposer := composer.NewDefault()
	dispatcher := executor.NewPistonClient(executor.PistonConfig{
		Endpoint: appCfg.Executor.Endpoint,
		Timeout:  appCfg.Executor.Timeout,
		Runtimes: executor.NewRuntimeTable(appCfg.Executor.Runtimes),
	})

	problemSvc, err := problemService.NewProblemService(problemService.Config{
		Problems: problems,
		Solved:   solved,
		Supports: func(lang model.Language) bool {
			return codeComposer.Supports(lang) && dispatcher.Supports(lang)
		},
		SampleCount: appCfg.Submit.SampleCount,
		DBTimeout:   appCfg.Submit.Timeouts.DB,
	})
	if err != nil {
		return fmt.Errorf("init problem service failed: %w", err)
	}

	cfg := service.Config{
		Problems:     problems,
		Submissions:  submitRepo.NewSubmissionRepositoryWithTTL(mysqlDB, redisCache, appCfg.Submit.SubmissionCacheTTL, appCfg.Submit.SubmissionEmptyTTL),
		Solved:       solved,
		Database:     mysqlDB,
		Composer:     codeComposer,
		Dispatcher:   dispatcher,
		Cache:        redisCache,
		EventTopic:   appCfg.Submit.EventTopic,
		MaxCodeBytes: appCfg.Submit.MaxCodeBytes,
		RateLimit:    appCfg.Submit.RateLimit,
		Timeouts:     appCfg.Submit.Timeouts,
	}

	if appCfg.MinIO.Endpoint != "" {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			return fmt.Errorf("init minio failed: %w", err)
		}
		if err := objStorage.EnsureBucket(ctx, appCfg.Submit.SourceBucket); err != nil {
			return fmt.Errorf("ensure source bucket failed: %w", err)
		}
		sourceArchive, err := archive.New(objStorage, appCfg.Submit.SourceBucket)
		if err != nil {
			return fmt.Errorf("init source archive failed: %w", err)
		}
		defer func() {
			_ = sourceArchive.Close()
		}()
		cfg.Archive = sourceArchive
	} else {
		logger.Warn(ctx, "minio not configured, composed sources will not be archived")
	}

	if len(appCfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka)
		if err != nil {
			return fmt.Errorf("init kafka failed: %w", err)
		}
		defer func() {
			_ = producer.Close()
		}()
		cfg.Producer = producer
	} else {
		logger.Warn(ctx, "kafka not configured, judged events will not be published")
	}

	submitService, err := service.NewSubmitService(cfg)
	if err != nil {
		return fmt.Errorf("init submit service failed: %w", err)
	}

	httpServer := buildHTTPServer(appCfg.Server, submitService, problemSvc, authenticator)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "judge http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	ctxShutdown, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	return nil
}

func buildHTTPServer(cfg ServerConfig, submitService *service.SubmitService, problemSvc *problemService.ProblemService, authenticator *auth.Authenticator) *http.Server {
	router := gin.New()
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.CORSMiddleware(cfg.CORS))
	router.Use(commonmw.AccessLogMiddleware())
	router.Use(commonmw.RecoveryMiddleware())

	api := router.Group("/api/v1")
	authMiddleware := commonmw.AuthMiddleware(authenticator)
	controller.NewSubmitController(submitService).Register(api, authMiddleware)
	problemController.NewProblemController(problemSvc).Register(api, authMiddleware)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
