package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"meridian/contexts/identity-access/session-service/domain/entities"
	domainerrors "meridian/contexts/identity-access/session-service/domain/errors"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "sessions:"

// Store persists sessions in Redis with the session lifetime as the key
// TTL, so expired tokens disappear without a sweeper.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

type sessionRecord struct {
	Token       string    `json:"token"`
	UserID      string    `json:"user_id"`
	CompanyID   string    `json:"company_id"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *Store) GetSession(ctx context.Context, token string) (entities.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+strings.TrimSpace(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.Session{}, domainerrors.ErrSessionNotFound
		}
		return entities.Session{}, err
	}
	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return entities.Session{}, err
	}
	return entities.Session{
		Token: record.Token,
		Principal: entities.Principal{
			UserID:      record.UserID,
			CompanyID:   record.CompanyID,
			Role:        entities.Role(record.Role),
			Permissions: record.Permissions,
		},
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

func (s *Store) PutSession(ctx context.Context, session entities.Session) error {
	token := strings.TrimSpace(session.Token)
	if token == "" {
		return domainerrors.ErrInvalidInput
	}
	raw, err := json.Marshal(sessionRecord{
		Token:       token,
		UserID:      session.Principal.UserID,
		CompanyID:   session.Principal.CompanyID,
		Role:        string(session.Principal.Role),
		Permissions: session.Principal.Permissions,
		CreatedAt:   session.CreatedAt,
		ExpiresAt:   session.ExpiresAt,
	})
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return domainerrors.ErrInvalidInput
	}
	return s.client.Set(ctx, sessionKeyPrefix+token, raw, ttl).Err()
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	deleted, err := s.client.Del(ctx, sessionKeyPrefix+strings.TrimSpace(token)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domainerrors.ErrSessionNotFound
	}
	return nil
}
