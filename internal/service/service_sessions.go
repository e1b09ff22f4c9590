package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
	"github.com/MKhiriev/go-vault-sync/models"
)

type sessionService struct {
	sessions store.SessionRepository
	logger   *logger.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions store.SessionRepository, log *logger.Logger) SessionService {
	return &sessionService{sessions: sessions, logger: log.WithComponent("session-service")}
}

func (s *sessionService) List(ctx context.Context, p utils.Principal) ([]models.SessionDocument, error) {
	stored, err := s.sessions.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]models.SessionDocument, 0, len(stored))
	for _, sess := range stored {
		doc := models.SessionDocument{
			ID:        sess.ID,
			AuthLevel: sess.AuthLevel,
			Created:   sess.CreatedAt.UnixMilli(),
			LastUsed:  sess.LastUsedAt.UnixMilli(),
			IsCurrent: sess.ID == p.SessionID,
		}
		if sess.Meta != "" {
			var meta models.EncryptedSessionMeta
			if err = json.Unmarshal([]byte(sess.Meta), &meta); err != nil {
				s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("dropping unreadable session meta")
			} else {
				doc.Meta = &meta
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

// Describe replaces the encrypted client metadata of session id. A missing
// cryptoKey keeps the stored one.
func (s *sessionService) Describe(ctx context.Context, p utils.Principal, id string, doc models.SessionDocument) (models.StateResponse, error) {
	sess, err := s.owned(ctx, p, id)
	if err != nil {
		return models.StateResponse{}, err
	}
	if doc.Meta == nil {
		return models.StateResponse{ID: id}, nil
	}

	meta := *doc.Meta
	if meta.CryptoKey == "" && sess.Meta != "" {
		var prev models.EncryptedSessionMeta
		if err = json.Unmarshal([]byte(sess.Meta), &prev); err == nil {
			meta.CryptoKey = prev.CryptoKey
		}
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return models.StateResponse{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err = s.sessions.SetMeta(ctx, id, string(raw)); err != nil {
		return models.StateResponse{}, err
	}
	return models.StateResponse{ID: id, Meta: models.Meta{CryptoKey: meta.CryptoKey}}, nil
}

func (s *sessionService) Revoke(ctx context.Context, p utils.Principal, id string) error {
	if _, err := s.owned(ctx, p, id); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, p.UserID, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info().Str("user_id", p.UserID).Str("session_id", id).Msg("session revoked")
	return nil
}

func (s *sessionService) owned(ctx context.Context, p utils.Principal, id string) (models.StoredSession, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return models.StoredSession{}, err
	}
	if sess.UserID != p.UserID {
		return models.StoredSession{}, store.ErrSessionNotFound
	}
	return sess, nil
}
