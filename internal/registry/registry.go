// Package registry records training runs in a relational database so the
// most recent artifact for a date can be found without scanning disk.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Aidin1998/mindset_analyzer/common/dbutil"
	apperrors "github.com/Aidin1998/mindset_analyzer/common/errors"
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// TrainingRun is one execution of the training pipeline.
type TrainingRun struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ArtifactID  *uuid.UUID `gorm:"type:uuid;index"`
	DataDate    time.Time  `gorm:"index;not null"`
	ArtifactDir string

	Examples           int
	TrainExamples      int
	ValidationExamples int
	Epochs             int

	FinalLoss    float64
	FinalMAE     float64
	FinalValLoss float64
	FinalValMAE  float64

	Status    string `gorm:"size:16;index;not null"`
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Duration is the wall time of the run.
func (r *TrainingRun) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Registry persists TrainingRun rows.
type Registry struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string, log *zap.SugaredLogger) (*Registry, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, apperrors.InvalidInput.Explain("unsupported registry driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}
	return New(db, log)
}

// New wraps an open database handle and migrates the schema.
func New(db *gorm.DB, log *zap.SugaredLogger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := db.AutoMigrate(&TrainingRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate registry schema: %w", err)
	}
	return &Registry{db: db, logger: log}, nil
}

// Record inserts run, assigning an ID if it has none.
func (r *Registry) Record(ctx context.Context, run *TrainingRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		return apperrors.InvalidInput.Explain("training run %s has no status", run.ID)
	}
	run.DataDate = DayOf(run.DataDate)
	if err := dbutil.WrapError(r.db.WithContext(ctx).Create(run).Error); err != nil {
		return fmt.Errorf("failed to record training run: %w", err)
	}
	r.logger.Infow("Recorded training run",
		"run_id", run.ID,
		"status", run.Status,
		"data_date", run.DataDate.Format(time.DateOnly),
	)
	return nil
}

// Latest returns the most recent successful run, optionally restricted to
// one data date. A zero date matches any date.
func (r *Registry) Latest(ctx context.Context, date time.Time) (*TrainingRun, error) {
	q := r.db.WithContext(ctx).Where("status = ?", StatusSucceeded)
	if !date.IsZero() {
		q = q.Where("data_date = ?", DayOf(date))
	}
	run, err := dbutil.FindOne[TrainingRun](q.Order("ended_at DESC"))
	if apperrors.Is(err, apperrors.ArtifactNotFound) {
		return nil, apperrors.ArtifactNotFound.Explain("no successful training run recorded")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A non-positive limit
// returns all runs.
func (r *Registry) List(ctx context.Context, limit int) ([]TrainingRun, error) {
	q := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []TrainingRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	return runs, nil
}

// Close releases the underlying connection pool.
func (r *Registry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DayOf normalizes t to midnight UTC of its calendar date, the form stored
// in DataDate.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
