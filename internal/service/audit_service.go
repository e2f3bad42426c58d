package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	apperrors "authcore/internal/errors"
	"authcore/internal/model"
	"authcore/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest selects one page of history. An empty Token starts at the most recent event.
type PageRequest struct {
	Limit int
	Token string
}

// Page is one page of login events, most recent first.
// NextToken is empty on the last page.
type Page struct {
	Items     []model.LoginHistory `json:"items"`
	NextToken string               `json:"next_token,omitempty"`
}

// AuditService appends and reads login events.
type AuditService interface {
	RecordLogin(ctx context.Context, userID uuid.UUID, userAgent string) (*model.LoginHistory, error)
	HistoryFor(ctx context.Context, userID uuid.UUID, page PageRequest) (*Page, error)
	History(ctx context.Context, userID uuid.UUID, pageSize int) iter.Seq2[model.LoginHistory, error]
}

type auditService struct {
	tx     repository.Transactor
	users  repository.UserRepository
	logins repository.LoginHistoryRepository
	now    Clock
}

// NewAuditService creates a new audit service. clock may be nil.
func NewAuditService(tx repository.Transactor, users repository.UserRepository, logins repository.LoginHistoryRepository, clock Clock) AuditService {
	return &auditService{tx: tx, users: users, logins: logins, now: clockOrSystem(clock)}
}

// RecordLogin appends one event for an existing user.
func (s *auditService) RecordLogin(ctx context.Context, userID uuid.UUID, userAgent string) (*model.LoginHistory, error) {
	entry := &model.LoginHistory{UserID: userID, UserAgent: userAgent}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.FindByID(ctx, userID); err != nil {
			return err
		}
		entry.LoginDate = s.now()
		return repos.Logins.Create(ctx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("record login for %s: %w", userID, err)
	}
	return entry, nil
}

// HistoryFor returns one page of the user's events. Pages never overlap and
// never skip rows, even when events share a timestamp.
func (s *auditService) HistoryFor(ctx context.Context, userID uuid.UUID, page PageRequest) (*Page, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var after *repository.HistoryCursor
	if page.Token != "" {
		cursor, err := decodeCursor(page.Token)
		if err != nil {
			return nil, err
		}
		after = cursor
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.logins.ListByUser(ctx, userID, after, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list history for %s: %w", userID, err)
	}

	out := &Page{Items: rows}
	if len(rows) > limit {
		out.Items = rows[:limit]
		last := out.Items[limit-1]
		out.NextToken = encodeCursor(repository.HistoryCursor{LoginDate: last.LoginDate, ID: last.ID})
	}
	return out, nil
}

// History walks every page lazily. Iteration stops at the first error, which is yielded.
func (s *auditService) History(ctx context.Context, userID uuid.UUID, pageSize int) iter.Seq2[model.LoginHistory, error] {
	return func(yield func(model.LoginHistory, error) bool) {
		req := PageRequest{Limit: pageSize}
		for {
			page, err := s.HistoryFor(ctx, userID, req)
			if err != nil {
				yield(model.LoginHistory{}, err)
				return
			}
			for _, entry := range page.Items {
				if !yield(entry, nil) {
					return
				}
			}
			if page.NextToken == "" {
				return
			}
			req.Token = page.NextToken
		}
	}
}

type cursorPayload struct {
	LoginDate string `json:"d"`
	ID        string `json:"i"`
}

func encodeCursor(c repository.HistoryCursor) string {
	payload, _ := json.Marshal(cursorPayload{
		LoginDate: c.LoginDate.UTC().Format(time.RFC3339Nano),
		ID:        c.ID.String(),
	})
	return base64.RawURLEncoding.EncodeToString(payload)
}

func decodeCursor(token string) (*repository.HistoryCursor, error) {
	invalid := apperrors.NewValidationError("token", "malformed continuation token")

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, invalid
	}
	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalid
	}
	at, err := time.Parse(time.RFC3339Nano, p.LoginDate)
	if err != nil {
		return nil, invalid
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, invalid
	}
	return &repository.HistoryCursor{LoginDate: at.UTC(), ID: id}, nil
}
