package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"meridian/contexts/finance-core/settlement-engine/domain/entities"
	domainerrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	"meridian/contexts/finance-core/settlement-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolationCode = "23505"

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

type payoutModel struct {
	PayoutID      string  `gorm:"column:payout_id;primaryKey"`
	CreatorID     string  `gorm:"column:creator_id;index"`
	CompanyID     string  `gorm:"column:company_id;index"`
	SubmissionID  string  `gorm:"column:submission_id"`
	Amount        float64 `gorm:"column:amount"`
	Currency      string  `gorm:"column:currency"`
	Status        string  `gorm:"column:status;index"`
	ExternalRef   *string `gorm:"column:external_ref;uniqueIndex"`
	FailureReason string  `gorm:"column:failure_reason"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64 `gorm:"column:version"`
}

func (payoutModel) TableName() string { return "payouts" }

func (m payoutModel) toEntity() entities.Payout {
	return entities.Payout{
		PayoutID:      m.PayoutID,
		CreatorID:     m.CreatorID,
		CompanyID:     m.CompanyID,
		SubmissionID:  m.SubmissionID,
		Amount:        m.Amount,
		Currency:      m.Currency,
		Status:        entities.PayoutStatus(m.Status),
		ExternalRef:   m.ExternalRef,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Version:       m.Version,
	}
}

func toModel(p entities.Payout) payoutModel {
	return payoutModel{
		PayoutID:      p.PayoutID,
		CreatorID:     p.CreatorID,
		CompanyID:     p.CompanyID,
		SubmissionID:  p.SubmissionID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		ExternalRef:   p.ExternalRef,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	}
}

func (r *Repository) GetPayout(ctx context.Context, payoutID string) (entities.Payout, error) {
	var row payoutModel
	err := r.db.WithContext(ctx).
		Where("payout_id = ?", strings.TrimSpace(payoutID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Payout{}, domainerrors.ErrPayoutNotFound
		}
		return entities.Payout{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) CreatePayout(ctx context.Context, payout entities.Payout) error {
	if payout.Version <= 0 {
		payout.Version = 1
	}
	err := r.db.WithContext(ctx).Create(toModel(payout)).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return domainerrors.ErrPayoutExists
		}
		return err
	}
	return nil
}

// CompareAndSwapPayout performs the optimistic write inside one
// transaction. The UPDATE itself is guarded by the version column, so a
// concurrent writer that slipped past the initial read still loses the
// race at zero affected rows.
func (r *Repository) CompareAndSwapPayout(
	ctx context.Context,
	payoutID string,
	expectedVersion int64,
	mutate func(entities.Payout) entities.Payout,
) (entities.Payout, error) {
	payoutID = strings.TrimSpace(payoutID)
	var updated entities.Payout

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row payoutModel
		if err := tx.Where("payout_id = ?", payoutID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrPayoutNotFound
			}
			return err
		}
		if row.Version != expectedVersion {
			return domainerrors.ErrVersionConflict
		}

		next := mutate(row.toEntity())
		next.PayoutID = row.PayoutID
		next.CreatedAt = row.CreatedAt
		next.Version = row.Version + 1
		next.UpdatedAt = time.Now().UTC()

		model := toModel(next)
		result := tx.Model(&payoutModel{}).
			Where("payout_id = ? AND version = ?", payoutID, expectedVersion).
			Updates(map[string]any{
				"status":         model.Status,
				"external_ref":   model.ExternalRef,
				"failure_reason": model.FailureReason,
				"updated_at":     model.UpdatedAt,
				"version":        model.Version,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrVersionConflict
		}
		updated = next
		return nil
	})
	if err != nil {
		return entities.Payout{}, err
	}
	return updated, nil
}

func (r *Repository) ListPayouts(ctx context.Context, query ports.PayoutListQuery) ([]entities.Payout, int, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	tx := r.db.WithContext(ctx).Model(&payoutModel{})
	if query.CompanyID != "" {
		tx = tx.Where("company_id = ?", query.CompanyID)
	}
	if query.CreatorID != "" {
		tx = tx.Where("creator_id = ?", query.CreatorID)
	}
	if query.Status != "" {
		tx = tx.Where("status = ?", string(query.Status))
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []payoutModel
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	items := make([]entities.Payout, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, int(total), nil
}

type eventDedupModel struct {
	EventID     string `gorm:"column:event_id;primaryKey"`
	PayloadHash string `gorm:"column:payload_hash"`
	ExpiresAt   time.Time
}

func (eventDedupModel) TableName() string { return "settlement_event_dedup" }

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, domainerrors.ErrInvalidInput
	}
	err := r.db.WithContext(ctx).Create(eventDedupModel{
		EventID:     eventID,
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
	}).Error
	if err == nil {
		return false, nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return false, err
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&existing).Error; err != nil {
		return false, err
	}
	if existing.PayloadHash != payloadHash {
		return false, domainerrors.ErrEventDuplicate
	}
	return true, nil
}

type outboxModel struct {
	OutboxID     string `gorm:"column:outbox_id;primaryKey"`
	EventType    string `gorm:"column:event_type"`
	PartitionKey string `gorm:"column:partition_key"`
	Payload      []byte `gorm:"column:payload"`
	Status       string `gorm:"column:status;index"`
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

func (outboxModel) TableName() string { return "settlement_outbox" }

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		return domainerrors.ErrInvalidInput
	}
	err = r.db.WithContext(ctx).Create(outboxModel{
		OutboxID:     outboxID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       "pending",
		CreatedAt:    envelope.OccurredAt.UTC(),
	}).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil
		}
		return err
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	ts := publishedAt.UTC()
	result := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       "published",
			"published_at": &ts,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxNotFound
	}
	return nil
}
