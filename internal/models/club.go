package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayDay is a scheduled club session members can RSVP to.
// Date is YYYY-MM-DD, times are HH:MM or HH:MM:SS.
type PlayDay struct {
	ID        uuid.UUID
	Date      string
	StartTime string
	EndTime   string
	Courts    string
	Location  *string
}

type Member struct {
	ID         uuid.UUID
	Name       string
	Email      string
	EmailOptIn bool
}

// RSVPToken is the one-time credential embedded in RSVP links.
type RSVPToken struct {
	PlayDayID uuid.UUID
	MemberID  uuid.UUID
	Token     string
	ExpiresAt time.Time
	Used      bool
}

// Active reports whether the token can still be used at now.
func (t *RSVPToken) Active(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
