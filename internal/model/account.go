package model

import "time"

// Membership is a prepaid plan attached to an account.
type Membership struct {
	Plan            string `json:"plan"`
	MonthlyPrice    int    `json:"monthly_price"`
	CreditsPerMonth int    `json:"credits_per_month"`
	EarlyAccess     bool   `json:"early_access"`
	MonthsUnderUsed int    `json:"months_under_used"`
}

// UserAccount is the per-session ledger. CreditsRemaining is never negative.
type UserAccount struct {
	SessionID        string      `json:"session_id"`
	IsFirstTime      bool        `json:"is_first_time"`
	TotalPickups     int         `json:"total_pickups"`
	NoShowCount      int         `json:"no_show_count"`
	HasAccount       bool        `json:"has_account"`
	HasCardSaved     bool        `json:"has_card_saved"`
	CardLast4        string      `json:"card_last4,omitempty"`
	Membership       *Membership `json:"membership"`
	CreditsRemaining int         `json:"credits_remaining"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// DefaultAccount is what an unseen session reads as.
func DefaultAccount(sessionID string) *UserAccount {
	return &UserAccount{
		SessionID:   sessionID,
		IsFirstTime: true,
	}
}

// RepeatOffenderThreshold is the lifetime no-show count that flags a session.
const RepeatOffenderThreshold = 2

// UserPatch is a partial account update. Nil fields are left untouched.
type UserPatch struct {
	IsFirstTime      *bool       `json:"is_first_time,omitempty"`
	HasAccount       *bool       `json:"has_account,omitempty"`
	HasCardSaved     *bool       `json:"has_card_saved,omitempty"`
	CardLast4        *string     `json:"card_last4,omitempty"`
	Membership       *Membership `json:"membership,omitempty"`
	ClearMembership  bool        `json:"clear_membership,omitempty"`
	CreditsRemaining *int        `json:"credits_remaining,omitempty"`
}

// Apply copies the set fields of p onto a.
func (p UserPatch) Apply(a *UserAccount) {
	if p.IsFirstTime != nil {
		a.IsFirstTime = *p.IsFirstTime
	}
	if p.HasAccount != nil {
		a.HasAccount = *p.HasAccount
	}
	if p.HasCardSaved != nil {
		a.HasCardSaved = *p.HasCardSaved
	}
	if p.CardLast4 != nil {
		a.CardLast4 = *p.CardLast4
	}
	if p.ClearMembership {
		a.Membership = nil
	} else if p.Membership != nil {
		m := *p.Membership
		a.Membership = &m
	}
	if p.CreditsRemaining != nil {
		a.CreditsRemaining = *p.CreditsRemaining
	}
}
