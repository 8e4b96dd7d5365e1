package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"adpilot/contexts/campaign-builder/draft-service/domain/entities"
	domainerrors "adpilot/contexts/campaign-builder/draft-service/domain/errors"
	"adpilot/contexts/campaign-builder/draft-service/ports"

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

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&draftModel{})
}

func (r *Repository) CreateDraft(ctx context.Context, draft entities.Draft) (entities.Draft, bool, error) {
	row := draftModelFromEntity(draft)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return entities.Draft{}, false, result.Error
	}
	if result.RowsAffected > 0 {
		return row.toEntity(), true, nil
	}

	var existing draftModel
	query := r.db.WithContext(ctx)
	if row.IdempotencyKey != "" {
		query = query.Where("idempotency_key = ? OR draft_id = ?", row.IdempotencyKey, row.DraftID)
	} else {
		query = query.Where("draft_id = ?", row.DraftID)
	}
	if err := query.First(&existing).Error; err != nil {
		return entities.Draft{}, false, err
	}
	r.logger.Debug("draft insert skipped, idempotency key exists",
		"event", "draft_create_replayed",
		"module", "campaign-builder/draft-service",
		"layer", "adapter",
		"draft_id", existing.DraftID,
	)
	return existing.toEntity(), false, nil
}

func (r *Repository) GetDraft(ctx context.Context, draftID string) (entities.Draft, error) {
	var row draftModel
	err := r.db.WithContext(ctx).
		Where("draft_id = ?", strings.TrimSpace(draftID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Draft{}, domainerrors.ErrDraftNotFound
		}
		return entities.Draft{}, err
	}
	return row.toEntity(), nil
}

// UpdateDraft is one conditional UPDATE on (draft_id, version, status).
func (r *Repository) UpdateDraft(ctx context.Context, input ports.UpdateDraftInput) (entities.Draft, error) {
	return r.compareAndSwap(ctx, input.DraftID, input.ExpectedVersion, pendingOnly, map[string]any{
		"payload_json":  datatypes.JSON(append([]byte(nil), input.Payload...)),
		"ad_account_id": input.AdAccountID,
		"creative_id":   input.CreativeID,
		"version":       gorm.Expr("version + 1"),
		"updated_at":    input.UpdatedAt.UTC(),
	})
}

func (r *Repository) UpdateStatus(ctx context.Context, input ports.UpdateStatusInput) (entities.Draft, error) {
	values := map[string]any{
		"status":     string(input.Status),
		"version":    gorm.Expr("version + 1"),
		"updated_at": input.UpdatedAt.UTC(),
	}
	if input.JobID != "" {
		values["job_id"] = input.JobID
	}
	return r.compareAndSwap(ctx, input.DraftID, input.ExpectedVersion, pendingOnly, values)
}

// ReopenDraft only matches a draft still held by the failed job.
func (r *Repository) ReopenDraft(ctx context.Context, input ports.ReopenDraftInput) (entities.Draft, error) {
	guard := map[string]any{
		"status": string(entities.DraftStatusSubmitted),
		"job_id": strings.TrimSpace(input.JobID),
	}
	return r.compareAndSwap(ctx, input.DraftID, input.ExpectedVersion, guard, map[string]any{
		"status":     string(entities.DraftStatusPending),
		"job_id":     "",
		"version":    gorm.Expr("version + 1"),
		"updated_at": input.UpdatedAt.UTC(),
	})
}

var pendingOnly = map[string]any{"status": string(entities.DraftStatusPending)}

func (r *Repository) compareAndSwap(ctx context.Context, draftID string, expectedVersion int, guard map[string]any, values map[string]any) (entities.Draft, error) {
	draftID = strings.TrimSpace(draftID)
	var updated entities.Draft
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&draftModel{}).
			Where("draft_id = ?", draftID).
			Where("version = ?", expectedVersion).
			Where(guard).
			Updates(values)
		if result.Error != nil {
			return result.Error
		}
		var row draftModel
		if err := tx.Where("draft_id = ?", draftID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrDraftNotFound
			}
			return err
		}
		if result.RowsAffected == 0 {
			if row.Version != expectedVersion {
				return domainerrors.ErrVersionConflict
			}
			return domainerrors.ErrDraftNotEditable
		}
		updated = row.toEntity()
		return nil
	})
	if err != nil {
		return entities.Draft{}, err
	}
	return updated, nil
}
