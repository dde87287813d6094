package sender

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"ClubSend/internal/db"
	"ClubSend/internal/models"
)

const tokenBytes = 32

// newToken returns 256 random bits, base64url encoded without padding.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate rsvp token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// tokenFor reuses the member's active token for the play day or issues a new one.
func (s *Sender) tokenFor(ctx context.Context, playDayID, memberID uuid.UUID) (string, error) {
	now := s.Clock.Now()

	existing, err := s.Store.FindActiveToken(ctx, playDayID, memberID, now)
	if err == nil {
		return existing.Token, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", err
	}

	value, err := s.NewToken()
	if err != nil {
		return "", err
	}

	err = s.Store.UpsertToken(ctx, models.RSVPToken{
		PlayDayID: playDayID,
		MemberID:  memberID,
		Token:     value,
		ExpiresAt: now.Add(s.Config.TokenTTL),
	})
	if err != nil {
		return "", err
	}
	return value, nil
}
