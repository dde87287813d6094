package email

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/cockroachdb/errors"
)

// ErrUnknownTemplate is returned for a Kind with no registered renderer.
var ErrUnknownTemplate = errors.New("unknown email template")

type Kind string

const (
	KindAnnouncement Kind = "play_day_announcement"
	KindReminder     Kind = "play_day_reminder"
)

//go:embed templates/*.html
var templateFS embed.FS

// PlayDayData is what the play day templates render.
type PlayDayData struct {
	MemberName    string
	Date          string
	TimeRange     string
	Courts        string
	Location      string
	CustomMessage string
	AttendURL     string
	DeclineURL    string
}

type Rendered struct {
	Subject string
	HTML    string
}

type RenderFunc func(data PlayDayData) (Rendered, error)

// Renderer maps each template kind to its render function.
type Renderer struct {
	funcs map[Kind]RenderFunc
}

func NewRenderer() (*Renderer, error) {
	announcement, err := template.ParseFS(templateFS, "templates/announcement.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse announcement template")
	}
	reminder, err := template.ParseFS(templateFS, "templates/reminder.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse reminder template")
	}

	return &Renderer{
		funcs: map[Kind]RenderFunc{
			KindAnnouncement: htmlFunc(announcement, func(d PlayDayData) string {
				return "Play Day: " + d.Date
			}),
			KindReminder: htmlFunc(reminder, func(d PlayDayData) string {
				return "Reminder: Play Day on " + d.Date
			}),
		},
	}, nil
}

// Register adds or replaces the renderer for kind.
func (r *Renderer) Register(kind Kind, fn RenderFunc) {
	r.funcs[kind] = fn
}

func (r *Renderer) Render(kind Kind, data PlayDayData) (Rendered, error) {
	fn, ok := r.funcs[kind]
	if !ok {
		return Rendered{}, errors.Wrapf(ErrUnknownTemplate, "%q", kind)
	}
	return fn(data)
}

func htmlFunc(tmpl *template.Template, subject func(PlayDayData) string) RenderFunc {
	return func(data PlayDayData) (Rendered, error) {
		var body bytes.Buffer
		if err := tmpl.Execute(&body, data); err != nil {
			return Rendered{}, errors.Wrap(err, "template execution error")
		}
		return Rendered{Subject: subject(data), HTML: body.String()}, nil
	}
}
