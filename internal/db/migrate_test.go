package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/club?sslmode=disable", "pgx5://u:p@localhost:5432/club?sslmode=disable"},
		{"postgresql://u:p@db/club", "pgx5://u:p@db/club"},
		{"pgx5://u:p@db/club", "pgx5://u:p@db/club"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, migrateURL(tt.in))
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	up, err := migrations.ReadFile("migrations/0001_email_jobs.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(up), "UNIQUE (play_day_id, member_id)")
}
