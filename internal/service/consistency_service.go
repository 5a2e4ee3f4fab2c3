package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/jobs"
)

const (
	repairLockName      = "consistency:repair"
	lastReportCacheKey  = "consistency:last_report"
	consistencyCacheAll = "consistency:*"

	stepDuplicates  = "duplicates"
	stepDerivations = "derivations"
	stepOrphans     = "orphans"

	defaultChunkSize = 500
)

type consistencyStore interface {
	ScanChunk(ctx context.Context, afterID string, limit int) ([]models.SubjectResult, error)
	DuplicateGroups(ctx context.Context, after models.DuplicateKey, limit int) ([]models.DuplicateFinding, error)
	UpdateFields(ctx context.Context, id string, update models.SubjectResultUpdate) error
	DeleteByID(ctx context.Context, id string) (bool, error)
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
}

type studentDirectory interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

type repairLocker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (cache.Release, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ConsistencyOptions bounds scans and repair runs.
type ConsistencyOptions struct {
	ChunkSize int
	LockTTL   time.Duration
	CacheTTL  time.Duration
}

// RepairOptions tunes one repair run.
type RepairOptions struct {
	DryRun bool
}

// ConsistencyService detects and repairs duplicate, orphaned and stale result rows.
// Every scan walks the result table in id-ordered chunks so memory stays bounded, and
// every correction is an independent write so an interrupted run can simply be repeated.
type ConsistencyService struct {
	store     consistencyStore
	students  studentDirectory
	snapshots snapshotSource
	locker    repairLocker
	cache     reportCache
	opts      ConsistencyOptions
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewConsistencyService constructs the monitor and repairer. locker and cache may be nil.
func NewConsistencyService(store consistencyStore, students studentDirectory, snapshots snapshotSource, locker repairLocker, reports reportCache, opts ConsistencyOptions, metrics *MetricsService, logger *zap.Logger) *ConsistencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if locker == nil {
		locker = cache.NewLocker(nil, "")
	}
	return &ConsistencyService{
		store:     store,
		students:  students,
		snapshots: snapshots,
		locker:    locker,
		cache:     reports,
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
	}
}

// RunChecks runs the four checks and caches the combined report.
func (s *ConsistencyService) RunChecks(ctx context.Context) (*models.ConsistencyReport, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveConsistency("check", time.Since(started)) }()

	duplicates, err := s.CheckDuplicates(ctx)
	if err != nil {
		return nil, err
	}

	collector := newRowCollector(s.snapshots.Current())
	if err := s.scan(ctx, func(chunk []models.SubjectResult) error {
		collector.inspect(chunk)
		return s.collectOrphans(ctx, chunk, &collector.orphans)
	}); err != nil {
		return nil, err
	}

	report := &models.ConsistencyReport{
		Duplicates:           *duplicates,
		IncorrectDerivations: models.DerivationCheck{Findings: collector.derivations, Count: len(collector.derivations)},
		MissingFields:        models.MissingFieldsCheck{Findings: collector.missing, Count: len(collector.missing)},
		Orphans:              models.OrphanCheck{Findings: collector.orphans, Count: len(collector.orphans)},
	}
	normaliseReport(report)
	report.TotalIssues = report.Duplicates.Count + report.IncorrectDerivations.Count + report.MissingFields.Count + report.Orphans.Count

	s.metrics.SetFindings(stepDuplicates, report.Duplicates.Count)
	s.metrics.SetFindings(stepDerivations, report.IncorrectDerivations.Count)
	s.metrics.SetFindings("missing_fields", report.MissingFields.Count)
	s.metrics.SetFindings(stepOrphans, report.Orphans.Count)
	s.logger.Info("consistency checks completed",
		zap.Int("duplicates", report.Duplicates.Count),
		zap.Int("incorrect_derivations", report.IncorrectDerivations.Count),
		zap.Int("missing_fields", report.MissingFields.Count),
		zap.Int("orphans", report.Orphans.Count),
		zap.Duration("took", time.Since(started)),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, lastReportCacheKey, report, s.opts.CacheTTL); err != nil {
			s.logger.Warn("failed to cache consistency report", zap.Error(err))
		}
	}
	return report, nil
}

// LastReport returns the most recent cached check report.
func (s *ConsistencyService) LastReport(ctx context.Context) (*models.ConsistencyReport, error) {
	if s.cache == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no consistency report available")
	}
	var report models.ConsistencyReport
	if err := s.cache.Get(ctx, lastReportCacheKey, &report); err != nil {
		if appErrors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no consistency report available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read consistency report")
	}
	return &report, nil
}

// CheckDuplicates lists every (student, exam, subject) group with more than one row.
func (s *ConsistencyService) CheckDuplicates(ctx context.Context) (*models.DuplicateCheck, error) {
	check := &models.DuplicateCheck{Findings: []models.DuplicateFinding{}}
	err := s.scanDuplicates(ctx, func(groups []models.DuplicateFinding) error {
		check.Findings = append(check.Findings, groups...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	check.Count = len(check.Findings)
	return check, nil
}

// CheckDerivations lists rows whose stored grade or points disagree with their marks.
func (s *ConsistencyService) CheckDerivations(ctx context.Context) (*models.DerivationCheck, error) {
	collector := newRowCollector(s.snapshots.Current())
	if err := s.scan(ctx, func(chunk []models.SubjectResult) error {
		collector.inspect(chunk)
		return nil
	}); err != nil {
		return nil, err
	}
	findings := nonNil(collector.derivations)
	return &models.DerivationCheck{Findings: findings, Count: len(findings)}, nil
}

// CheckMissingFields lists rows lacking a required column.
func (s *ConsistencyService) CheckMissingFields(ctx context.Context) (*models.MissingFieldsCheck, error) {
	collector := newRowCollector(s.snapshots.Current())
	if err := s.scan(ctx, func(chunk []models.SubjectResult) error {
		collector.inspect(chunk)
		return nil
	}); err != nil {
		return nil, err
	}
	findings := nonNil(collector.missing)
	return &models.MissingFieldsCheck{Findings: findings, Count: len(findings)}, nil
}

// CheckOrphans lists rows whose student does not exist.
func (s *ConsistencyService) CheckOrphans(ctx context.Context) (*models.OrphanCheck, error) {
	var orphans []models.OrphanFinding
	if err := s.scan(ctx, func(chunk []models.SubjectResult) error {
		return s.collectOrphans(ctx, chunk, &orphans)
	}); err != nil {
		return nil, err
	}
	orphans = nonNil(orphans)
	return &models.OrphanCheck{Findings: orphans, Count: len(orphans)}, nil
}

// Repair fixes duplicates, then derivations, then orphans, so no derivation is
// rewritten on a row about to be deleted as a duplicate. A failed write is recorded
// and the run continues; cancellation stops it between chunks with a partial report.
func (s *ConsistencyService) Repair(ctx context.Context, opts RepairOptions) (*models.RepairReport, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveConsistency("repair", time.Since(started)) }()

	release, err := s.locker.Acquire(ctx, repairLockName, s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a consistency repair is already running")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire repair lock")
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			s.logger.Warn("failed to release repair lock", zap.Error(err))
		}
	}()

	report := &models.RepairReport{DryRun: opts.DryRun}
	planned := make(map[string]bool)

	steps := []struct {
		name string
		run  func(context.Context, bool, map[string]bool) (models.RepairStep, error)
		dest *int
	}{
		{stepDuplicates, s.repairDuplicates, &report.FixedDuplicates},
		{stepDerivations, s.repairDerivations, &report.FixedDerivations},
		{stepOrphans, s.repairOrphans, &report.FixedOrphans},
	}
	for _, step := range steps {
		result, err := step.run(ctx, opts.DryRun, planned)
		*step.dest = result.Fixed
		report.TotalFailed += result.Failed
		report.Failures = append(report.Failures, result.Failures...)
		if !opts.DryRun {
			s.metrics.RecordRepairs(step.name, result.Fixed, result.Failed)
		}
		if err != nil {
			report.TotalFixed = report.FixedDuplicates + report.FixedDerivations + report.FixedOrphans
			if ctx.Err() != nil {
				report.Cancelled = true
				s.logger.Warn("consistency repair cancelled", zap.String("step", step.name), zap.Int("fixed", report.TotalFixed))
				return report, appErrors.Wrap(ctx.Err(), appErrors.ErrServiceCancelled.Code, appErrors.ErrServiceCancelled.Status, "repair cancelled")
			}
			return report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "repair step "+step.name+" failed")
		}
	}
	report.TotalFixed = report.FixedDuplicates + report.FixedDerivations + report.FixedOrphans

	if !opts.DryRun && s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, consistencyCacheAll); err != nil {
			s.logger.Warn("failed to invalidate consistency cache", zap.Error(err))
		}
	}
	s.logger.Info("consistency repair completed",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("fixed_duplicates", report.FixedDuplicates),
		zap.Int("fixed_derivations", report.FixedDerivations),
		zap.Int("fixed_orphans", report.FixedOrphans),
		zap.Int("failed", report.TotalFailed),
	)
	return report, nil
}

// RepairDuplicates keeps the oldest row of every duplicate group and deletes the rest.
func (s *ConsistencyService) RepairDuplicates(ctx context.Context, dryRun bool) (models.RepairStep, error) {
	return s.repairDuplicates(ctx, dryRun, nil)
}

// RepairDerivations rewrites stale grades and points. Marks are never touched.
func (s *ConsistencyService) RepairDerivations(ctx context.Context, dryRun bool) (models.RepairStep, error) {
	return s.repairDerivations(ctx, dryRun, nil)
}

// RepairOrphans deletes rows whose student no longer exists.
func (s *ConsistencyService) RepairOrphans(ctx context.Context, dryRun bool) (models.RepairStep, error) {
	return s.repairOrphans(ctx, dryRun, nil)
}

// HandleRederiveJob is the background job run after a grade table swap.
func (s *ConsistencyService) HandleRederiveJob(ctx context.Context, job jobs.Job) error {
	release, err := s.locker.Acquire(ctx, repairLockName, s.opts.LockTTL)
	if err != nil {
		return err
	}
	defer func() { _ = release(context.Background()) }()

	step, err := s.repairDerivations(ctx, false, nil)
	s.metrics.RecordRepairs(stepDerivations, step.Fixed, step.Failed)
	s.logger.Info("re-derivation job finished",
		zap.String("job_id", job.ID),
		zap.Any("education_level", job.Payload),
		zap.Int("fixed", step.Fixed),
		zap.Int("failed", step.Failed),
	)
	return err
}

func (s *ConsistencyService) repairDuplicates(ctx context.Context, dryRun bool, planned map[string]bool) (models.RepairStep, error) {
	var step models.RepairStep
	err := s.scanDuplicates(ctx, func(groups []models.DuplicateFinding) error {
		for _, group := range groups {
			if len(group.ResultIDs) < 2 {
				continue
			}
			extras := group.ResultIDs[1:]
			if dryRun {
				step.Fixed += len(extras)
				for _, id := range extras {
					if planned != nil {
						planned[id] = true
					}
				}
				continue
			}
			deleted, err := s.store.DeleteByIDs(ctx, extras)
			if err != nil {
				s.logger.Warn("failed to delete duplicate results", zap.Strings("result_ids", extras), zap.Error(err))
				step.Failed += len(extras)
				for _, id := range extras {
					step.Failures = append(step.Failures, models.RepairFailure{Step: stepDuplicates, ResultID: id, Reason: err.Error()})
				}
				continue
			}
			step.Fixed += deleted
		}
		s.logger.Debug("duplicate chunk repaired", zap.Int("groups", len(groups)), zap.Int("fixed", step.Fixed))
		return nil
	})
	return step, err
}

func (s *ConsistencyService) repairDerivations(ctx context.Context, dryRun bool, planned map[string]bool) (models.RepairStep, error) {
	var step models.RepairStep
	snap := s.snapshots.Current()
	err := s.scan(ctx, func(chunk []models.SubjectResult) error {
		for _, row := range chunk {
			if planned[row.ID] {
				continue
			}
			finding, ok := inspectDerivation(snap, row)
			if !ok || !finding.Repairable() {
				continue
			}
			if dryRun {
				step.Fixed++
				continue
			}
			grade, points := finding.ExpectedGrade, finding.ExpectedPoints
			if err := s.store.UpdateFields(ctx, row.ID, models.SubjectResultUpdate{Grade: &grade, Points: &points}); err != nil {
				s.logger.Warn("failed to rewrite derivation", zap.String("result_id", row.ID), zap.Error(err))
				step.Failed++
				step.Failures = append(step.Failures, models.RepairFailure{Step: stepDerivations, ResultID: row.ID, Reason: err.Error()})
				continue
			}
			step.Fixed++
		}
		return nil
	})
	return step, err
}

func (s *ConsistencyService) repairOrphans(ctx context.Context, dryRun bool, planned map[string]bool) (models.RepairStep, error) {
	var step models.RepairStep
	err := s.scan(ctx, func(chunk []models.SubjectResult) error {
		var orphans []models.OrphanFinding
		if err := s.collectOrphans(ctx, chunk, &orphans); err != nil {
			return err
		}
		ids := make([]string, 0, len(orphans))
		for _, orphan := range orphans {
			if !planned[orphan.ResultID] {
				ids = append(ids, orphan.ResultID)
			}
		}
		if len(ids) == 0 {
			return nil
		}
		if dryRun {
			step.Fixed += len(ids)
			return nil
		}
		if deleted, err := s.store.DeleteByIDs(ctx, ids); err == nil {
			step.Fixed += deleted
			return nil
		}
		// Fall back to one delete per row so a single bad row does not sink the chunk.
		for _, id := range ids {
			if _, err := s.store.DeleteByID(ctx, id); err != nil {
				s.logger.Warn("failed to delete orphan result", zap.String("result_id", id), zap.Error(err))
				step.Failed++
				step.Failures = append(step.Failures, models.RepairFailure{Step: stepOrphans, ResultID: id, Reason: err.Error()})
				continue
			}
			step.Fixed++
		}
		return nil
	})
	return step, err
}

// scan walks the result table in id order, one bounded chunk at a time.
func (s *ConsistencyService) scan(ctx context.Context, visit func([]models.SubjectResult) error) error {
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrServiceCancelled.Code, appErrors.ErrServiceCancelled.Status, "scan cancelled")
		}
		chunk, err := s.store.ScanChunk(ctx, after, s.opts.ChunkSize)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan results")
		}
		if len(chunk) == 0 {
			return nil
		}
		if err := visit(chunk); err != nil {
			return err
		}
		if len(chunk) < s.opts.ChunkSize {
			return nil
		}
		after = chunk[len(chunk)-1].ID
	}
}

func (s *ConsistencyService) scanDuplicates(ctx context.Context, visit func([]models.DuplicateFinding) error) error {
	var after models.DuplicateKey
	for {
		if err := ctx.Err(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrServiceCancelled.Code, appErrors.ErrServiceCancelled.Status, "scan cancelled")
		}
		groups, err := s.store.DuplicateGroups(ctx, after, s.opts.ChunkSize)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to group duplicate results")
		}
		if len(groups) == 0 {
			return nil
		}
		if err := visit(groups); err != nil {
			return err
		}
		if len(groups) < s.opts.ChunkSize {
			return nil
		}
		after = groups[len(groups)-1].DuplicateKey
	}
}

func (s *ConsistencyService) collectOrphans(ctx context.Context, chunk []models.SubjectResult, out *[]models.OrphanFinding) error {
	seen := make(map[string]bool)
	var ids []string
	for _, row := range chunk {
		if row.StudentID != "" && !seen[row.StudentID] {
			seen[row.StudentID] = true
			ids = append(ids, row.StudentID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	existing, err := s.students.ExistingIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve students")
	}
	for _, row := range chunk {
		if row.StudentID != "" && !existing[row.StudentID] {
			*out = append(*out, models.OrphanFinding{ResultID: row.ID, StudentID: row.StudentID})
		}
	}
	return nil
}

// rowCollector gathers per-row findings while a scan runs.
type rowCollector struct {
	snap        *grading.Snapshot
	derivations []models.DerivationFinding
	missing     []models.MissingFieldsFinding
	orphans     []models.OrphanFinding
}

func newRowCollector(snap *grading.Snapshot) *rowCollector {
	return &rowCollector{snap: snap}
}

func (c *rowCollector) inspect(chunk []models.SubjectResult) {
	for _, row := range chunk {
		if fields := missingFields(row); len(fields) > 0 {
			c.missing = append(c.missing, models.MissingFieldsFinding{ResultID: row.ID, Fields: fields})
		}
		if finding, ok := inspectDerivation(c.snap, row); ok {
			c.derivations = append(c.derivations, finding)
		}
	}
}

func missingFields(row models.SubjectResult) []string {
	var fields []string
	if strings.TrimSpace(row.StudentID) == "" {
		fields = append(fields, "student_id")
	}
	if strings.TrimSpace(row.ExamID) == "" {
		fields = append(fields, "exam_id")
	}
	if strings.TrimSpace(row.SubjectID) == "" {
		fields = append(fields, "subject_id")
	}
	if row.MarksObtained == nil {
		fields = append(fields, "marks_obtained")
	}
	if row.Grade == nil || strings.TrimSpace(*row.Grade) == "" {
		fields = append(fields, "grade")
	}
	if row.Points == nil {
		fields = append(fields, "points")
	}
	return fields
}

// inspectDerivation recomputes a row's grade and points. It reports false when the row
// has no marks or its stored values already agree.
func inspectDerivation(snap *grading.Snapshot, row models.SubjectResult) (models.DerivationFinding, bool) {
	if row.MarksObtained == nil {
		return models.DerivationFinding{}, false
	}
	finding := models.DerivationFinding{
		ResultID:       row.ID,
		EducationLevel: row.EducationLevel,
		Marks:          *row.MarksObtained,
		StoredGrade:    row.Grade,
		StoredPoints:   row.Points,
	}
	expected, err := snap.GradeAndPoints(*row.MarksObtained, row.EducationLevel)
	if err != nil {
		finding.Reason = err.Error()
		return finding, true
	}
	if row.Grade != nil && *row.Grade == expected.Grade && row.Points != nil && *row.Points == expected.Points {
		return models.DerivationFinding{}, false
	}
	finding.ExpectedGrade = expected.Grade
	finding.ExpectedPoints = expected.Points
	return finding, true
}

func normaliseReport(report *models.ConsistencyReport) {
	report.Duplicates.Findings = nonNil(report.Duplicates.Findings)
	report.IncorrectDerivations.Findings = nonNil(report.IncorrectDerivations.Findings)
	report.MissingFields.Findings = nonNil(report.MissingFields.Findings)
	report.Orphans.Findings = nonNil(report.Orphans.Findings)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
