package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/jobs"
)

// JobTypeRederive re-derives stored grades and points after a table swap.
const JobTypeRederive = "grading.rederive"

type gradingTableRepository interface {
	LoadGradeBands(ctx context.Context) ([]models.GradeBand, error)
	LoadDivisionBands(ctx context.Context) ([]models.DivisionBand, error)
	ReplaceGradeTable(ctx context.Context, table models.GradeTable) error
	ReplaceDivisionTable(ctx context.Context, table models.DivisionTable) error
}

type tableNotifier interface {
	Publish(ctx context.Context, channel, payload string) error
	Listen(ctx context.Context, channel string, handle func(context.Context, string)) error
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) (string, error)
}

// GradeTableRequest replaces the grade table of one level.
type GradeTableRequest struct {
	Bands []models.GradeBand `json:"bands" validate:"required,min=1,dive"`
}

// DivisionTableRequest replaces the division table of one level.
type DivisionTableRequest struct {
	Bands []models.DivisionBand `json:"bands" validate:"required,min=1,dive"`
}

// TableReplaceResult is returned after a successful replacement.
type TableReplaceResult struct {
	Tables        models.GradingTables `json:"tables"`
	RederiveJobID string               `json:"rederive_job_id,omitempty"`
}

type reloadNotice struct {
	Instance string                `json:"instance"`
	Level    models.EducationLevel `json:"education_level"`
	Table    string                `json:"table"`
}

// GradingConfigServiceConfig wires the optional collaborators.
type GradingConfigServiceConfig struct {
	ReloadChannel    string
	RederiveOnReload bool
	Notifier         tableNotifier
	Jobs             jobEnqueuer
	Metrics          *MetricsService
}

// GradingConfigService owns the grading snapshot: loading it from the store, validating
// and persisting replacements, and keeping other instances in step.
type GradingConfigService struct {
	repo      gradingTableRepository
	registry  *grading.Registry
	swapMu    sync.Mutex
	cfg       GradingConfigServiceConfig
	instance  string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingConfigService constructs the service.
func NewGradingConfigService(repo gradingTableRepository, registry *grading.Registry, cfg GradingConfigServiceConfig, validate *validator.Validate, logger *zap.Logger) *GradingConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = grading.NewRegistry(nil)
	}
	return &GradingConfigService{
		repo:      repo,
		registry:  registry,
		cfg:       cfg,
		instance:  uuid.NewString(),
		validator: validate,
		logger:    logger,
	}
}

// Registry returns the registry the service publishes to.
func (s *GradingConfigService) Registry() *grading.Registry {
	return s.registry
}

// Load reads every stored table and swaps in a new snapshot. A level whose stored
// table is missing or invalid keeps the built-in default.
func (s *GradingConfigService) Load(ctx context.Context, source string) error {
	gradeBands, err := s.repo.LoadGradeBands(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade tables")
	}
	divisionBands, err := s.repo.LoadDivisionBands(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load division tables")
	}

	gradesByLevel := make(map[models.EducationLevel][]models.GradeBand)
	for _, band := range gradeBands {
		gradesByLevel[band.EducationLevel] = append(gradesByLevel[band.EducationLevel], band)
	}
	divisionsByLevel := make(map[models.EducationLevel][]models.DivisionBand)
	for _, band := range divisionBands {
		divisionsByLevel[band.EducationLevel] = append(divisionsByLevel[band.EducationLevel], band)
	}

	var grades []models.GradeTable
	var divisions []models.DivisionTable
	for _, level := range models.EducationLevels {
		gradeTable := models.GradeTable{Level: level, Bands: gradesByLevel[level]}
		if len(gradeTable.Bands) == 0 {
			gradeTable = grading.DefaultGradeTable(level)
		} else if err := grading.ValidateGradeTable(gradeTable); err != nil {
			s.logger.Warn("stored grade table invalid, using default", zap.String("education_level", string(level)), zap.Error(err))
			gradeTable = grading.DefaultGradeTable(level)
		}
		grades = append(grades, gradeTable)

		divisionTable := models.DivisionTable{Level: level, Bands: divisionsByLevel[level]}
		if len(divisionTable.Bands) == 0 {
			divisionTable = grading.DefaultDivisionTable(level)
		} else if err := grading.ValidateDivisionTable(divisionTable); err != nil {
			s.logger.Warn("stored division table invalid, using default", zap.String("education_level", string(level)), zap.Error(err))
			divisionTable = grading.DefaultDivisionTable(level)
		}
		divisions = append(divisions, divisionTable)
	}

	snapshot := grading.NewSnapshot(grades, divisions)
	s.swapMu.Lock()
	s.registry.Swap(snapshot)
	s.swapMu.Unlock()
	s.cfg.Metrics.RecordTableReload(source, snapshot.Version())
	s.logger.Info("grading tables loaded", zap.String("source", source), zap.Int64("version", snapshot.Version()))
	return nil
}

// Tables returns the active snapshot for display.
func (s *GradingConfigService) Tables() models.GradingTables {
	return s.registry.Current().View()
}

// ReplaceGradeTable validates and persists a whole grade table, then swaps the snapshot.
func (s *GradingConfigService) ReplaceGradeTable(ctx context.Context, level models.EducationLevel, req GradeTableRequest) (*TableReplaceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade table payload")
	}
	table := models.GradeTable{Level: level, Bands: req.Bands}
	if err := grading.ValidateGradeTable(table); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTable.Code, appErrors.ErrInvalidTable.Status, err.Error())
	}
	s.swapMu.Lock()
	defer s.swapMu.Unlock()
	if err := s.repo.ReplaceGradeTable(ctx, table); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade table")
	}
	next := s.registry.Current().WithGradeTable(table)
	s.registry.Swap(next)
	s.cfg.Metrics.RecordTableReload("replace", next.Version())
	s.logger.Info("grade table replaced", zap.String("education_level", string(level)), zap.Int("bands", len(table.Bands)), zap.Int64("version", next.Version()))

	return s.afterReplace(ctx, level, "grades"), nil
}

// ReplaceDivisionTable validates and persists a whole division table, then swaps the snapshot.
func (s *GradingConfigService) ReplaceDivisionTable(ctx context.Context, level models.EducationLevel, req DivisionTableRequest) (*TableReplaceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid division table payload")
	}
	table := models.DivisionTable{Level: level, Bands: req.Bands}
	if err := grading.ValidateDivisionTable(table); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTable.Code, appErrors.ErrInvalidTable.Status, err.Error())
	}
	s.swapMu.Lock()
	defer s.swapMu.Unlock()
	if err := s.repo.ReplaceDivisionTable(ctx, table); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store division table")
	}
	next := s.registry.Current().WithDivisionTable(table)
	s.registry.Swap(next)
	s.cfg.Metrics.RecordTableReload("replace", next.Version())
	s.logger.Info("division table replaced", zap.String("education_level", string(level)), zap.Int("bands", len(table.Bands)), zap.Int64("version", next.Version()))

	return s.afterReplace(ctx, level, "divisions"), nil
}

func (s *GradingConfigService) afterReplace(ctx context.Context, level models.EducationLevel, table string) *TableReplaceResult {
	result := &TableReplaceResult{Tables: s.Tables()}

	if s.cfg.Notifier != nil && s.cfg.ReloadChannel != "" {
		payload, _ := json.Marshal(reloadNotice{Instance: s.instance, Level: level, Table: table})
		if err := s.cfg.Notifier.Publish(ctx, s.cfg.ReloadChannel, string(payload)); err != nil {
			s.logger.Warn("failed to publish grading reload", zap.Error(err))
		}
	}

	if table == "grades" && s.cfg.RederiveOnReload && s.cfg.Jobs != nil {
		jobID, err := s.cfg.Jobs.TryEnqueue(jobs.Job{Type: JobTypeRederive, Payload: level})
		if err != nil {
			s.logger.Warn("failed to enqueue re-derivation", zap.String("education_level", string(level)), zap.Error(err))
		} else {
			result.RederiveJobID = jobID
		}
	}
	return result
}

// Watch reloads the snapshot whenever another instance announces a replacement.
// It blocks until ctx is done.
func (s *GradingConfigService) Watch(ctx context.Context) error {
	if s.cfg.Notifier == nil || s.cfg.ReloadChannel == "" {
		return nil
	}
	return s.cfg.Notifier.Listen(ctx, s.cfg.ReloadChannel, s.handleNotice)
}

func (s *GradingConfigService) handleNotice(ctx context.Context, payload string) {
	var notice reloadNotice
	if err := json.Unmarshal([]byte(payload), &notice); err != nil {
		s.logger.Warn("ignoring malformed grading reload notice", zap.String("payload", payload), zap.Error(err))
		return
	}
	if notice.Instance == s.instance {
		return
	}
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.Load(loadCtx, "notification"); err != nil {
		s.logger.Error("failed to reload grading tables", zap.Error(err))
	}
}
