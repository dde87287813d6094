// Package dbtest provides an in-memory stand-in for db.Store in tests.
package dbtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"ClubSend/internal/db"
	"ClubSend/internal/models"
)

type tokenKey struct {
	playDay uuid.UUID
	member  uuid.UUID
}

// MemStore mirrors the semantics of the Postgres queries: guarded status
// updates, oldest-first claims and upserted tokens.
type MemStore struct {
	mu  sync.Mutex
	Now func() time.Time

	jobs     map[uuid.UUID]*models.EmailJob
	history  map[uuid.UUID][]models.JobStatus
	seq      time.Duration
	playDays map[uuid.UUID]models.PlayDay
	members  []models.Member
	tokens   map[tokenKey]models.RSVPToken
}

func NewMemStore() *MemStore {
	return &MemStore{
		Now:      time.Now,
		jobs:     map[uuid.UUID]*models.EmailJob{},
		history:  map[uuid.UUID][]models.JobStatus{},
		playDays: map[uuid.UUID]models.PlayDay{},
		tokens:   map[tokenKey]models.RSVPToken{},
	}
}

func (s *MemStore) InsertJob(_ context.Context, playDayID uuid.UUID, customMessage *string) (*models.EmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// keep created_at strictly increasing so ordering is deterministic
	s.seq += time.Microsecond
	job := &models.EmailJob{
		ID:            uuid.New(),
		PlayDayID:     playDayID,
		CustomMessage: customMessage,
		Status:        models.StatusQueued,
		CreatedAt:     s.Now().Add(s.seq),
	}
	s.jobs[job.ID] = job
	s.history[job.ID] = []models.JobStatus{models.StatusQueued}
	return copyJob(job), nil
}

func (s *MemStore) GetJob(_ context.Context, id uuid.UUID) (*models.EmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.Wrapf(db.ErrNotFound, "get email job %s", id)
	}
	return copyJob(job), nil
}

func (s *MemStore) ClaimNextJob(context.Context) (*models.EmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var queued []*models.EmailJob
	for _, j := range s.jobs {
		if j.Status == models.StatusQueued {
			queued = append(queued, j)
		}
	}
	if len(queued) == 0 {
		return nil, errors.Wrap(db.ErrNotFound, "claim email job")
	}
	sort.Slice(queued, func(a, b int) bool {
		return queued[a].CreatedAt.Before(queued[b].CreatedAt)
	})

	job := queued[0]
	now := s.Now()
	job.Status = models.StatusProcessing
	job.StartedAt = &now
	s.history[job.ID] = append(s.history[job.ID], job.Status)
	return copyJob(job), nil
}

func (s *MemStore) FinishJob(
	_ context.Context,
	id uuid.UUID,
	status models.JobStatus,
	successCount int,
	failureCount int,
	errorMsg *string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !status.Terminal() {
		return errors.Newf("finish email job: %q is not a terminal status", status)
	}
	job, ok := s.jobs[id]
	if !ok || job.Status != models.StatusProcessing {
		return errors.Wrapf(db.ErrNotFound, "finish email job %s", id)
	}

	now := s.Now()
	job.Status = status
	job.SuccessCount = successCount
	job.FailureCount = failureCount
	job.ErrorMessage = errorMsg
	job.CompletedAt = &now
	s.history[id] = append(s.history[id], status)
	return nil
}

func (s *MemStore) FailStaleJobs(_ context.Context, olderThan time.Duration, errorMsg string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	cutoff := now.Add(-olderThan)
	var n int64
	for id, job := range s.jobs {
		if job.Status != models.StatusProcessing || job.StartedAt == nil || !job.StartedAt.Before(cutoff) {
			continue
		}
		msg := errorMsg
		job.Status = models.StatusFailed
		job.ErrorMessage = &msg
		job.CompletedAt = &now
		s.history[id] = append(s.history[id], job.Status)
		n++
	}
	return n, nil
}

func (s *MemStore) GetPlayDay(_ context.Context, id uuid.UUID) (*models.PlayDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pd, ok := s.playDays[id]
	if !ok {
		return nil, errors.Wrapf(db.ErrNotFound, "get play day %s", id)
	}
	return &pd, nil
}

func (s *MemStore) ListOptedInMembers(context.Context) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Member
	for _, m := range s.members {
		if m.EmailOptIn {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemStore) FindActiveToken(_ context.Context, playDayID, memberID uuid.UUID, now time.Time) (*models.RSVPToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenKey{playDayID, memberID}]
	if !ok || !t.Active(now) {
		return nil, errors.Wrap(db.ErrNotFound, "find rsvp token")
	}
	return &t, nil
}

func (s *MemStore) UpsertToken(_ context.Context, t models.RSVPToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.Used = false
	s.tokens[tokenKey{t.PlayDayID, t.MemberID}] = t
	return nil
}

// AddPlayDay stores a play day on 2025-03-15, 18:00-21:00, courts 1-4.
func (s *MemStore) AddPlayDay() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.playDays[id] = models.PlayDay{
		ID:        id,
		Date:      "2025-03-15",
		StartTime: "18:00:00",
		EndTime:   "21:00:00",
		Courts:    "1-4",
	}
	return id
}

func (s *MemStore) AddMember(name, email string, optIn bool) models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := models.Member{ID: uuid.New(), Name: name, Email: email, EmailOptIn: optIn}
	s.members = append(s.members, m)
	return m
}

func (s *MemStore) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// History returns every status the job has been in, oldest first.
func (s *MemStore) History(id uuid.UUID) []models.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.JobStatus(nil), s.history[id]...)
}

func copyJob(j *models.EmailJob) *models.EmailJob {
	cp := *j
	return &cp
}
