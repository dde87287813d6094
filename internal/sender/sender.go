package sender

import (
	"context"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ClubSend/internal/clock"
	"ClubSend/internal/db"
	"ClubSend/internal/email"
	"ClubSend/internal/metrics"
	"ClubSend/internal/models"
)

// Setup errors fail a whole job. Their text is stored on the job verbatim.
var (
	ErrEventNotFound = errors.New("event not found")
	ErrNoRecipients  = errors.New("no recipients found")
)

type Store interface {
	GetPlayDay(ctx context.Context, id uuid.UUID) (*models.PlayDay, error)
	ListOptedInMembers(ctx context.Context) ([]models.Member, error)
	FindActiveToken(ctx context.Context, playDayID, memberID uuid.UUID, now time.Time) (*models.RSVPToken, error)
	UpsertToken(ctx context.Context, t models.RSVPToken) error
}

type Config struct {
	BaseURL   string
	From      string
	ReplyTo   string
	SendDelay time.Duration
	TokenTTL  time.Duration
	Kind      email.Kind
}

// Result is the aggregate outcome of one announcement run.
// Success is false only for setup errors; per-recipient failures only
// show up in FailureCount.
type Result struct {
	Success      bool   `json:"success"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
	Error        string `json:"error,omitempty"`
}

type Sender struct {
	Store    Store
	Gateway  email.Gateway
	Renderer *email.Renderer
	Config   Config
	Log      *zap.Logger

	Clock    clock.Clock
	Sleep    func(ctx context.Context, d time.Duration) error
	NewToken func() (string, error)
}

func New(store Store, gateway email.Gateway, renderer *email.Renderer, cfg Config, log *zap.Logger) *Sender {
	if cfg.Kind == "" {
		cfg.Kind = email.KindAnnouncement
	}
	return &Sender{
		Store:    store,
		Gateway:  gateway,
		Renderer: renderer,
		Config:   cfg,
		Log:      log,
		Clock:    clock.RealClock{},
		Sleep:    sleep,
		NewToken: newToken,
	}
}

// Send announces the play day to every opted-in member, one message per member,
// pausing Config.SendDelay between members. A non-nil error means the run was
// cut short by something other than a setup error (store failure, cancellation).
func (s *Sender) Send(ctx context.Context, playDayID uuid.UUID, customMessage string) (Result, error) {
	pd, err := s.Store.GetPlayDay(ctx, playDayID)
	if errors.Is(err, db.ErrNotFound) {
		return setupFailure(ErrEventNotFound), nil
	}
	if err != nil {
		return Result{}, errors.Wrap(err, "load play day")
	}

	members, err := s.Store.ListOptedInMembers(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "load recipients")
	}
	if len(members) == 0 {
		return setupFailure(ErrNoRecipients), nil
	}

	data, err := s.playDayData(pd, customMessage)
	if err != nil {
		return Result{}, err
	}

	s.Log.Info("sending play day announcement",
		zap.Stringer("play_day_id", playDayID),
		zap.Int("recipients", len(members)),
	)

	result := Result{Success: true}
	for i, m := range members {
		if i > 0 {
			if err := s.Sleep(ctx, s.Config.SendDelay); err != nil {
				return result, errors.Wrap(err, "send loop interrupted")
			}
		}

		if err := s.sendOne(ctx, pd.ID, m, data); err != nil {
			result.FailureCount++
			metrics.EmailFailures.Inc()
			s.Log.Warn("email send failed",
				zap.Stringer("member_id", m.ID),
				zap.String("to", m.Email),
				zap.Error(err),
			)
			continue
		}

		result.SuccessCount++
		metrics.EmailsSent.Inc()
	}

	return result, nil
}

func (s *Sender) sendOne(ctx context.Context, playDayID uuid.UUID, m models.Member, data email.PlayDayData) error {
	token, err := s.tokenFor(ctx, playDayID, m.ID)
	if err != nil {
		return errors.Wrap(err, "issue rsvp token")
	}

	data.MemberName = m.Name
	data.AttendURL = s.rsvpURL(token, "yes")
	data.DeclineURL = s.rsvpURL(token, "no")

	out, err := s.Renderer.Render(s.Config.Kind, data)
	if err != nil {
		return err
	}

	_, err = s.Gateway.Send(ctx, email.Message{
		From:    s.Config.From,
		To:      m.Email,
		Subject: out.Subject,
		HTML:    out.HTML,
		ReplyTo: s.Config.ReplyTo,
	})
	return err
}

func (s *Sender) playDayData(pd *models.PlayDay, customMessage string) (email.PlayDayData, error) {
	date, err := email.FormatDate(pd.Date)
	if err != nil {
		return email.PlayDayData{}, err
	}
	timeRange, err := email.FormatTimeRange(pd.StartTime, pd.EndTime)
	if err != nil {
		return email.PlayDayData{}, err
	}

	data := email.PlayDayData{
		Date:          date,
		TimeRange:     timeRange,
		Courts:        pd.Courts,
		CustomMessage: customMessage,
	}
	if pd.Location != nil {
		data.Location = *pd.Location
	}
	return data, nil
}

func (s *Sender) rsvpURL(token, response string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("response", response)
	return s.Config.BaseURL + "/api/rsvp?" + q.Encode()
}

func setupFailure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// sleep waits d after the previous send. The limiter's only token is taken
// up front, so Wait always blocks for the full interval however long the
// send itself took.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	limiter := rate.NewLimiter(rate.Every(d), 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}
