package db

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"ClubSend/internal/models"
)

// FindActiveToken returns the unused, unexpired token for the pair, or ErrNotFound.
func (s *Store) FindActiveToken(
	ctx context.Context,
	playDayID uuid.UUID,
	memberID uuid.UUID,
	now time.Time,
) (*models.RSVPToken, error) {

	var t models.RSVPToken
	err := s.Pool.QueryRow(ctx,
		`SELECT play_day_id, member_id, token, expires_at, used
		 FROM rsvp_tokens
		 WHERE play_day_id = $1
		   AND member_id = $2
		   AND used = FALSE
		   AND expires_at > $3`,
		playDayID,
		memberID,
		now,
	).Scan(&t.PlayDayID, &t.MemberID, &t.Token, &t.ExpiresAt, &t.Used)
	if err != nil {
		return nil, errors.Wrap(notFound(err), "find rsvp token")
	}
	return &t, nil
}

// UpsertToken stores t as the only token for its (play day, member) pair,
// replacing any previous value and resetting the used flag.
func (s *Store) UpsertToken(ctx context.Context, t models.RSVPToken) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO rsvp_tokens (play_day_id, member_id, token, expires_at, used)
		 VALUES ($1, $2, $3, $4, FALSE)
		 ON CONFLICT (play_day_id, member_id) DO UPDATE
		 SET token = EXCLUDED.token,
		     expires_at = EXCLUDED.expires_at,
		     used = FALSE`,
		t.PlayDayID,
		t.MemberID,
		t.Token,
		t.ExpiresAt,
	)
	if err != nil {
		return errors.Wrap(err, "upsert rsvp token")
	}
	return nil
}
