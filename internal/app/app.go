package app

import (
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/database"
	"github.com/noah-isme/sma-results-api/pkg/jobs"
)

const rederiveQueueBuffer = 16

// Container holds the wired services shared by the API server and the admin CLI.
type Container struct {
	DB       *sqlx.DB
	Redis    *redis.Client
	Metrics  *service.MetricsService
	Registry *grading.Registry
	Queue    *jobs.Queue

	Grading     *service.GradingConfigService
	Results     *service.ResultService
	Reports     *service.ReportService
	Consistency *service.ConsistencyService

	logger *zap.Logger
}

// New connects to the stores, loads the grading tables and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if redisClient == nil {
		logger.Info("redis disabled, locks and notifications stay in-process")
	}

	missingPolicy, err := grading.ParseMissingPolicy(cfg.Reports.MissingResultPolicy)
	if err != nil {
		closeStores(logger, openStores(db, redisClient)...)
		return nil, err
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	registry := grading.NewRegistry(nil)

	resultRepo := repository.NewSubjectResultRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	examRepo := repository.NewExamRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	tableRepo := repository.NewGradingTableRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logger)

	consistency := service.NewConsistencyService(resultRepo, studentRepo, registry,
		cache.NewLocker(redisClient, "results:lock:"), cacheRepo,
		service.ConsistencyOptions{
			ChunkSize: cfg.Consistency.ChunkSize,
			LockTTL:   cfg.Consistency.LockTTL,
			CacheTTL:  cfg.Consistency.CacheTTL,
		}, metrics, logger.Named("consistency"))

	queue := jobs.NewQueue("grading-rederive", consistency.HandleRederiveJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: rederiveQueueBuffer,
		MaxRetries: cfg.Jobs.Retries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logger,
	})

	gradingSvc := service.NewGradingConfigService(tableRepo, registry, service.GradingConfigServiceConfig{
		ReloadChannel:    cfg.Grading.ReloadChannel,
		RederiveOnReload: cfg.Grading.RederiveOnReload,
		Notifier:         cache.NewNotifier(redisClient, logger),
		Jobs:             queue,
		Metrics:          metrics,
	}, validate, logger.Named("grading"))
	if err := gradingSvc.Load(ctx, "startup"); err != nil {
		closeStores(logger, openStores(db, redisClient)...)
		return nil, err
	}

	results := service.NewResultService(resultRepo, studentRepo, examRepo, subjectRepo, registry, validate, logger.Named("results"))
	reports := service.NewReportService(resultRepo, studentRepo, classRepo, examRepo, subjectRepo, registry, service.ReportOptions{
		StudentRankDense: cfg.Reports.StudentRankDense,
		ClassRankDense:   cfg.Reports.ClassRankDense,
		MissingPolicy:    missingPolicy,
	}, metrics, logger.Named("reports"))

	return &Container{
		DB:          db,
		Redis:       redisClient,
		Metrics:     metrics,
		Registry:    registry,
		Queue:       queue,
		Grading:     gradingSvc,
		Results:     results,
		Reports:     reports,
		Consistency: consistency,
		logger:      logger,
	}, nil
}

// Close stops the queue and releases the connections.
func (c *Container) Close() {
	c.Queue.Stop()
	closeStores(c.logger, openStores(c.DB, c.Redis)...)
}

type store struct {
	name   string
	closer io.Closer
}

// openStores lists the connections to release, redis before the database.
// A nil redis client means redis is disabled and is skipped.
func openStores(db *sqlx.DB, redisClient *redis.Client) []store {
	stores := make([]store, 0, 2)
	if redisClient != nil {
		stores = append(stores, store{name: "redis", closer: redisClient})
	}
	if db != nil {
		stores = append(stores, store{name: "database", closer: db})
	}
	return stores
}

func closeStores(logger *zap.Logger, stores ...store) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, s := range stores {
		if err := s.closer.Close(); err != nil {
			logger.Warn("failed to close "+s.name, zap.Error(err))
		}
	}
}
