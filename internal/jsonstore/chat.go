package jsonstore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/mindmate-backend/internal/domain"
)

func idemKey(userID, scope, key string) string {
	return userID + "\x00" + scope + "\x00" + key
}

func (d *document) appendMessage(userID, role, content string, at time.Time) chatRecord {
	m := chatRecord{ID: d.NextMessageID, UserID: userID, Role: role, Content: content, CreatedAt: at}
	d.NextMessageID++
	d.Messages = append(d.Messages, m)
	return m
}

// AppendChatMessage appends one message to userID's log.
func (s *Store) AppendChatMessage(_ context.Context, userID, role, content string) (*domain.ChatMessage, error) {
	var m chatRecord
	err := s.mutate(func(d *document) error {
		if _, ok := d.Users[userID]; !ok {
			return domain.ErrNotFound
		}
		m = d.appendMessage(userID, role, content, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

// AppendExchange appends prompt and reply (and records claim) in one write.
// A live claim for the same key yields domain.ErrDuplicate and no change.
func (s *Store) AppendExchange(_ context.Context, userID, prompt, reply string, claim *domain.IdempotencyClaim) (*domain.ChatMessage, error) {
	var out chatRecord
	err := s.mutate(func(d *document) error {
		if _, ok := d.Users[userID]; !ok {
			return domain.ErrNotFound
		}
		now := s.now()
		var k string
		if claim != nil {
			k = idemKey(userID, claim.Scope, claim.Key)
			if rec, ok := d.Idempotency[k]; ok && rec.ExpiresAt.After(now) {
				return domain.ErrDuplicate
			}
		}
		d.appendMessage(userID, domain.RoleUser, prompt, now)
		out = d.appendMessage(userID, domain.RoleAssistant, reply, now)
		if claim != nil {
			d.Idempotency[k] = idemRecord{
				ID: uuid.NewString(), UserID: userID, Scope: claim.Scope, Key: claim.Key,
				MessageID: out.ID, Status: claim.Status, CreatedAt: now, ExpiresAt: now.Add(claim.TTL),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// ListRecentChatMessages returns the newest limit messages, oldest first.
func (s *Store) ListRecentChatMessages(_ context.Context, userID string, limit int) ([]domain.ChatMessage, error) {
	out := []domain.ChatMessage{}
	if limit <= 0 {
		return out, nil
	}
	s.read(func(d *document) {
		// Messages are stored in id order; walk backwards.
		for i := len(d.Messages) - 1; i >= 0 && len(out) < limit; i-- {
			if d.Messages[i].UserID == userID {
				out = append(out, *d.Messages[i].toDomain())
			}
		}
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// GetChatMessage returns message id when it belongs to userID.
func (s *Store) GetChatMessage(_ context.Context, userID string, id uint64) (*domain.ChatMessage, error) {
	var out *domain.ChatMessage
	s.read(func(d *document) {
		for i := len(d.Messages) - 1; i >= 0; i-- {
			m := d.Messages[i]
			if m.ID == id {
				if m.UserID == userID {
					out = m.toDomain()
				}
				return
			}
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

// GetIdempotency returns the unexpired record for key.
func (s *Store) GetIdempotency(_ context.Context, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, domain.ErrNotFound
	}
	var out *domain.Idempotency
	s.read(func(d *document) {
		rec, ok := d.Idempotency[idemKey(userID, scope, key)]
		if !ok || !rec.ExpiresAt.After(now) {
			return
		}
		out = &domain.Idempotency{
			ID: rec.ID, UserID: rec.UserID, Scope: rec.Scope, Key: rec.Key,
			MessageID: rec.MessageID, Status: rec.Status, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt,
		}
	})
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

// PurgeExpiredIdempotency drops records expired at now.
func (s *Store) PurgeExpiredIdempotency(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.mutate(func(d *document) error {
		for k, rec := range d.Idempotency {
			if !rec.ExpiresAt.After(now) {
				delete(d.Idempotency, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r chatRecord) toDomain() *domain.ChatMessage {
	return &domain.ChatMessage{ID: r.ID, UserID: r.UserID, Role: r.Role, Content: r.Content, CreatedAt: r.CreatedAt}
}
