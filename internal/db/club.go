package db

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"ClubSend/internal/models"
)

func (s *Store) GetPlayDay(ctx context.Context, id uuid.UUID) (*models.PlayDay, error) {
	var pd models.PlayDay
	err := s.Pool.QueryRow(ctx,
		`SELECT id, date::text, start_time::text, end_time::text, courts, location
		 FROM play_days
		 WHERE id = $1`,
		id,
	).Scan(&pd.ID, &pd.Date, &pd.StartTime, &pd.EndTime, &pd.Courts, &pd.Location)
	if err != nil {
		return nil, errors.Wrapf(notFound(err), "get play day %s", id)
	}
	return &pd, nil
}

// ListOptedInMembers returns members who accept announcement emails,
// in the order they joined.
func (s *Store) ListOptedInMembers(ctx context.Context) ([]models.Member, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, name, email, email_opt_in
		 FROM members
		 WHERE email_opt_in = TRUE
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list opted-in members")
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.EmailOptIn); err != nil {
			return nil, errors.Wrap(err, "scan member")
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list opted-in members")
	}
	return members, nil
}

// UpsertMember inserts a member or updates name and opt-in for an existing email.
func (s *Store) UpsertMember(ctx context.Context, name, email string, optIn bool) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO members (name, email, email_opt_in)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name,
		     email_opt_in = EXCLUDED.email_opt_in`,
		name,
		email,
		optIn,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert member %s", email)
	}
	return nil
}
