package service

import (
	"context"
	"errors"
	"strings"

	"ecoplate-api/internal/model"
	"ecoplate-api/internal/repository"
	"ecoplate-api/pkg/uid"
)

// WaitlistService records interest in sold-out drops.
type WaitlistService struct {
	d Deps
}

// NewWaitlistService creates a waitlist registry.
func NewWaitlistService(d Deps) *WaitlistService {
	return &WaitlistService{d: d.withDefaults()}
}

// Join adds the session to the drop's waitlist. Joining twice is reported,
// not duplicated.
func (s *WaitlistService) Join(ctx context.Context, dropID, sessionID string) (*model.WaitlistResult, error) {
	dropID = strings.TrimSpace(dropID)
	sessionID = strings.TrimSpace(sessionID)
	if dropID == "" || sessionID == "" {
		return nil, validationf("drop id and session id are required")
	}

	if _, err := s.d.Store.GetDrop(ctx, dropID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("drop")
		}
		return nil, err
	}

	inserted, err := s.d.Store.InsertWaitlistEntry(ctx, &model.WaitlistEntry{
		ID:        uid.New(),
		DropID:    dropID,
		SessionID: sessionID,
		CreatedAt: s.d.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !inserted {
		return &model.WaitlistResult{AlreadyOnWaitlist: true}, nil
	}
	return &model.WaitlistResult{Success: true}, nil
}

// List returns the drop's waitlist in join order.
func (s *WaitlistService) List(ctx context.Context, dropID string) ([]*model.WaitlistEntry, error) {
	if _, err := s.d.Store.GetDrop(ctx, dropID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("drop")
		}
		return nil, err
	}
	return s.d.Store.ListWaitlist(ctx, dropID)
}
