package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"adpilot/contexts/campaign-builder/launch-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
	platformdb "adpilot/internal/platform/db"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the launch tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&jobModel{}, &progressEventModel{}, &idempotencyModel{})
}

func (r *Repository) CreateJob(ctx context.Context, job entities.Job) error {
	row := jobModelFromEntity(job)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if platformdb.IsUniqueViolation(err) {
			return domainerrors.ErrIdempotencyKeyConflict
		}
		return err
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, jobID string) (entities.Job, error) {
	var row jobModel
	err := r.db.WithContext(ctx).
		Where("job_id = ?", strings.TrimSpace(jobID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Job{}, domainerrors.ErrJobNotFound
		}
		return entities.Job{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ClaimJob(ctx context.Context, jobID string, now time.Time) (entities.Job, error) {
	jobID = strings.TrimSpace(jobID)
	result := r.db.WithContext(ctx).
		Model(&jobModel{}).
		Where("job_id = ?", jobID).
		Where("status = ?", string(entities.JobStatusQueued)).
		Updates(map[string]any{
			"status":     string(entities.JobStatusRunning),
			"step":       entities.StepStarted,
			"attempt":    gorm.Expr("attempt + 1"),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return entities.Job{}, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetJob(ctx, jobID); err != nil {
			return entities.Job{}, err
		}
		return entities.Job{}, domainerrors.ErrJobNotClaimable
	}
	return r.GetJob(ctx, jobID)
}

func (r *Repository) AdvanceJob(ctx context.Context, jobID string, patch entities.JobPatch, now time.Time) (entities.Job, error) {
	var advanced entities.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row jobModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("job_id = ?", strings.TrimSpace(jobID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrJobNotFound
			}
			return err
		}
		current := row.toEntity()
		if current.Status.IsTerminal() {
			return domainerrors.ErrJobTerminal
		}
		advanced = entities.ApplyPatch(current, patch, now)
		updated := jobModelFromEntity(advanced)
		return tx.Model(&jobModel{}).
			Where("job_id = ?", row.JobID).
			Updates(map[string]any{
				"status":     updated.Status,
				"step":       updated.Step,
				"percent":    updated.Percent,
				"error":      updated.Error,
				"meta":       updated.Meta,
				"updated_at": updated.UpdatedAt,
			}).
			Error
	})
	if err != nil {
		return entities.Job{}, err
	}
	return advanced, nil
}

func (r *Repository) RequestCancel(ctx context.Context, jobID string, now time.Time) (entities.Job, error) {
	var canceled entities.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row jobModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("job_id = ?", strings.TrimSpace(jobID)).
			First(&row).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrJobNotFound
			}
			return err
		}
		updates := map[string]any{
			"cancel_requested": true,
			"updated_at":       now.UTC(),
		}
		switch entities.JobStatus(row.Status) {
		case entities.JobStatusQueued:
			updates["status"] = string(entities.JobStatusCanceled)
		case entities.JobStatusRunning:
		default:
			return domainerrors.ErrJobTerminal
		}
		if err := tx.Model(&jobModel{}).
			Where("job_id = ?", row.JobID).
			Updates(updates).
			Error; err != nil {
			return err
		}
		canceled = row.toEntity()
		canceled.CancelRequested = true
		canceled.UpdatedAt = now.UTC()
		if status, ok := updates["status"].(string); ok {
			canceled.Status = entities.JobStatus(status)
		}
		return nil
	})
	if err != nil {
		return entities.Job{}, err
	}
	return canceled, nil
}

func (r *Repository) ListStaleRunning(ctx context.Context, cutoff time.Time, limit int) ([]entities.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []jobModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.JobStatusRunning)).
		Where("updated_at < ?", cutoff.UTC()).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.Job, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// AppendEvent locks the job row so seq assignment is serialized per job and
// the job is known to exist when the event is inserted.
func (r *Repository) AppendEvent(ctx context.Context, input ports.RecordEventInput) (entities.ProgressEvent, error) {
	row := progressEventModel{
		EventID:   strings.TrimSpace(input.EventID),
		JobID:     strings.TrimSpace(input.JobID),
		Step:      strings.TrimSpace(input.Step),
		Status:    string(input.Status),
		Percent:   input.Percent,
		Message:   input.Message,
		Meta:      datatypes.JSONMap(entities.CopyMeta(input.Meta)),
		CreatedAt: input.CreatedAt.UTC(),
	}
	if row.EventID == "" {
		row.EventID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job jobModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("job_id").
			Where("job_id = ?", row.JobID).
			First(&job).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrUnknownJobForEvent
			}
			return err
		}
		var maxSeq int64
		if err := tx.Model(&progressEventModel{}).
			Select("COALESCE(MAX(seq), 0)").
			Where("job_id = ?", row.JobID).
			Scan(&maxSeq).
			Error; err != nil {
			return err
		}
		row.Seq = maxSeq + 1
		return tx.Create(&row).Error
	})
	if err != nil {
		return entities.ProgressEvent{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListEvents(ctx context.Context, jobID string, afterSeq int64) ([]entities.ProgressEvent, error) {
	jobID = strings.TrimSpace(jobID)
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&jobModel{}).
		Where("job_id = ?", jobID).
		Count(&count).
		Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domainerrors.ErrJobNotFound
	}

	var rows []progressEventModel
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Where("seq > ?", afterSeq).
		Order("created_at ASC, seq ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]entities.ProgressEvent, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// ReserveRecord clears an expired holder of the key and inserts record in one
// transaction. The unique key decides between concurrent reservations.
func (r *Repository) ReserveRecord(ctx context.Context, record ports.IdempotencyRecord, now time.Time) (ports.IdempotencyRecord, bool, error) {
	row := idempotencyModel{
		Key:             strings.TrimSpace(record.Key),
		RequestHash:     record.RequestHash,
		ResponsePayload: append([]byte(nil), record.ResponsePayload...),
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	var stored idempotencyModel
	reserved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("idempotency_key = ?", row.Key).
			Where("expires_at > ? AND expires_at < ?", time.Time{}, now.UTC()).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return err
		}
		result := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "idempotency_key"}},
				DoNothing: true,
			}).
			Create(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			reserved = true
			stored = row
			return nil
		}
		return tx.Where("idempotency_key = ?", row.Key).First(&stored).Error
	})
	if err != nil {
		return ports.IdempotencyRecord{}, false, err
	}
	return ports.IdempotencyRecord{
		Key:             stored.Key,
		RequestHash:     stored.RequestHash,
		ResponsePayload: append([]byte(nil), stored.ResponsePayload...),
		ExpiresAt:       stored.ExpiresAt.UTC(),
	}, reserved, nil
}

func (r *Repository) CompleteRecord(ctx context.Context, key string, requestHash string, response []byte) error {
	result := r.db.WithContext(ctx).
		Model(&idempotencyModel{}).
		Where("idempotency_key = ?", strings.TrimSpace(key)).
		Where("request_hash = ?", requestHash).
		Update("response_payload", append([]byte(nil), response...))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

func (r *Repository) ReleaseRecord(ctx context.Context, key string, requestHash string) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ?", strings.TrimSpace(key)).
		Where("request_hash = ?", requestHash).
		Where("response_payload IS NULL OR length(response_payload) = 0").
		Delete(&idempotencyModel{}).
		Error
}
