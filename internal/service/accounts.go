package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"ecoplate-api/internal/keylock"
	"ecoplate-api/internal/model"
	"ecoplate-api/internal/repository"
)

// AccountService is the per-session ledger.
type AccountService struct {
	d   Deps
	log *zap.Logger
}

// NewAccountService creates an account service.
func NewAccountService(d Deps) *AccountService {
	d = d.withDefaults()
	return &AccountService{d: d, log: d.Log.Named("accounts")}
}

// GetUser returns the session's account, or the default for an unseen session.
func (s *AccountService) GetUser(ctx context.Context, sessionID string) (*model.UserAccount, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, validationf("session id is required")
	}
	a, err := s.d.Store.GetAccount(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.DefaultAccount(sessionID), nil
		}
		return nil, err
	}
	return a, nil
}

func validatePatch(p *model.UserPatch) error {
	if p.CreditsRemaining != nil && *p.CreditsRemaining < 0 {
		return validationf("credits_remaining must not be negative")
	}
	if p.CardLast4 != nil && *p.CardLast4 != "" && !validCardLast4(*p.CardLast4) {
		return validationf("card_last4 must be 4 digits")
	}
	if m := p.Membership; m != nil && !p.ClearMembership {
		if strings.TrimSpace(m.Plan) == "" {
			return validationf("membership plan is required")
		}
		if m.MonthlyPrice < 0 || m.CreditsPerMonth < 0 || m.MonthsUnderUsed < 0 {
			return validationf("membership amounts must not be negative")
		}
	}
	return nil
}

// UpdateUser applies a partial update and returns the stored account.
func (s *AccountService) UpdateUser(ctx context.Context, sessionID string, patch model.UserPatch) (*model.UserAccount, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, validationf("session id is required")
	}
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	now := s.d.Now()
	var out *model.UserAccount
	err := s.d.lockedTx(ctx, []string{keylock.Session(sessionID)}, func(q repository.Querier) error {
		if err := q.EnsureAccount(ctx, sessionID, now); err != nil {
			return err
		}
		a, err := q.GetAccount(ctx, sessionID)
		if err != nil {
			return err
		}
		patch.Apply(a)
		a.UpdatedAt = now
		if err := q.SaveAccount(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// The ledger writes below run inside the caller's transaction, under the
// caller's session lock, the way DropService moves box counters.

// DebitCredit takes one credit, flooring silently at zero. It reports
// whether a credit was actually taken.
func (s *AccountService) DebitCredit(ctx context.Context, q repository.Querier, sessionID string) (bool, error) {
	now := s.d.Now()
	if err := q.EnsureAccount(ctx, sessionID, now); err != nil {
		return false, err
	}
	return q.DebitCredit(ctx, sessionID, now)
}

// CreditBack adds one credit unconditionally.
func (s *AccountService) CreditBack(ctx context.Context, q repository.Querier, sessionID string) error {
	now := s.d.Now()
	if err := q.EnsureAccount(ctx, sessionID, now); err != nil {
		return err
	}
	return q.RefundCredit(ctx, sessionID, now)
}

// RecordCard saves a card only if the session has none; the first card wins.
func (s *AccountService) RecordCard(ctx context.Context, q repository.Querier, sessionID, last4 string) (bool, error) {
	if !validCardLast4(last4) {
		return false, validationf("card_last4 must be 4 digits")
	}
	now := s.d.Now()
	if err := q.EnsureAccount(ctx, sessionID, now); err != nil {
		return false, err
	}
	return q.SaveCard(ctx, sessionID, last4, now)
}

// MarkReturning clears the first-time flag once a session has reserved.
func (s *AccountService) MarkReturning(ctx context.Context, q repository.Querier, sessionID string) error {
	now := s.d.Now()
	if err := q.EnsureAccount(ctx, sessionID, now); err != nil {
		return err
	}
	return q.MarkReturning(ctx, sessionID, now)
}
