package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"meridian/contexts/finance-core/settlement-engine/domain/entities"
	domainerrors "meridian/contexts/finance-core/settlement-engine/domain/errors"
	"meridian/contexts/finance-core/settlement-engine/ports"

	"github.com/google/uuid"
)

// Store implements every settlement-engine port in memory. It backs the
// in-memory module wiring and the unit tests; the compare-and-swap
// semantics here are the reference behavior the postgres adapter must
// match.
type Store struct {
	mu sync.RWMutex

	payouts    map[string]entities.Payout
	eventDedup map[string]dedupRecord
	outbox     map[string]outboxRecord
}

type dedupRecord struct {
	PayloadHash string
	ExpiresAt   time.Time
}

type outboxRecord struct {
	Message     ports.OutboxMessage
	Status      string
	PublishedAt *time.Time
}

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

func NewStore() *Store {
	return &Store{
		payouts:    make(map[string]entities.Payout),
		eventDedup: make(map[string]dedupRecord),
		outbox:     make(map[string]outboxRecord),
	}
}

func (s *Store) GetPayout(_ context.Context, payoutID string) (entities.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payout, ok := s.payouts[strings.TrimSpace(payoutID)]
	if !ok {
		return entities.Payout{}, domainerrors.ErrPayoutNotFound
	}
	return payout, nil
}

func (s *Store) CreatePayout(_ context.Context, payout entities.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(payout.PayoutID)
	if id == "" {
		return domainerrors.ErrInvalidInput
	}
	if _, exists := s.payouts[id]; exists {
		return domainerrors.ErrPayoutExists
	}
	if payout.Version <= 0 {
		payout.Version = 1
	}
	s.payouts[id] = payout
	return nil
}

func (s *Store) CompareAndSwapPayout(
	_ context.Context,
	payoutID string,
	expectedVersion int64,
	mutate func(entities.Payout) entities.Payout,
) (entities.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(payoutID)
	current, ok := s.payouts[id]
	if !ok {
		return entities.Payout{}, domainerrors.ErrPayoutNotFound
	}
	if current.Version != expectedVersion {
		return entities.Payout{}, domainerrors.ErrVersionConflict
	}

	updated := mutate(current)
	// Identity and version bookkeeping belong to the store, not the
	// mutation.
	updated.PayoutID = current.PayoutID
	updated.CreatedAt = current.CreatedAt
	updated.Version = current.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	s.payouts[id] = updated
	return updated, nil
}

func (s *Store) ListPayouts(_ context.Context, query ports.PayoutListQuery) ([]entities.Payout, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	items := make([]entities.Payout, 0)
	for _, payout := range s.payouts {
		if query.CompanyID != "" && payout.CompanyID != query.CompanyID {
			continue
		}
		if query.CreatorID != "" && payout.CreatorID != query.CreatorID {
			continue
		}
		if query.Status != "" && payout.Status != query.Status {
			continue
		}
		items = append(items, payout)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	total := len(items)
	if offset >= len(items) {
		return []entities.Payout{}, total, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]entities.Payout(nil), items[offset:end]...), total, nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if key == "" {
		return false, domainerrors.ErrInvalidInput
	}
	if existing, ok := s.eventDedup[key]; ok {
		if existing.PayloadHash != payloadHash {
			return false, domainerrors.ErrEventDuplicate
		}
		return true, nil
	}
	s.eventDedup[key] = dedupRecord{
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		return domainerrors.ErrInvalidInput
	}

	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.Message.Payload, payload) {
			return domainerrors.ErrEventDuplicate
		}
		return nil
	}

	s.outbox[outboxID] = outboxRecord{
		Message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt.UTC(),
		},
		Status: outboxStatusPending,
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.Status == outboxStatusPending {
			items = append(items, row.Message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrOutboxNotFound
	}
	ts := publishedAt.UTC()
	row.Status = outboxStatusPublished
	row.PublishedAt = &ts
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
