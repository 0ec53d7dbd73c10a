package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/utamadigital/30-hari-new/internal/adapters/email"
	"github.com/utamadigital/30-hari-new/internal/adapters/http/middleware"
	"github.com/utamadigital/30-hari-new/internal/application/events"
	"github.com/utamadigital/30-hari-new/internal/application/orchestrators"
)

//go:embed templates/*.html
var templateFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// app carries the dependencies shared by all handlers.
type app struct {
	sessions *orchestrators.SessionRegistry
	sender   email.Sender
	from     string
	replyTo  string
	log      *zap.Logger
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func (a *app) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.log.Error("internal_error", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// visitorID returns the id set by middleware.Visitor.
func visitorID(r *http.Request) (string, bool) {
	return middleware.VisitorID(r.Context())
}

// withSession runs fn against the caller's calendar session.
// POST: On failure the response is already written and ok is false
func (a *app) withSession(w http.ResponseWriter, r *http.Request, fn func(s *orchestrators.CalendarSession) error) (evs []events.Event, ok bool) {
	id, found := visitorID(r)
	if !found {
		http.Error(w, "missing visitor", http.StatusBadRequest)
		return nil, false
	}
	evs, err := a.sessions.WithSession(r.Context(), id, fn)
	if err != nil {
		a.internalError(w, r, err)
		return nil, false
	}
	return evs, true
}

// pathDay parses the {day} path value. Range checks belong to the session.
func pathDay(r *http.Request) (int, error) {
	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil {
		return 0, errors.New("day must be a number")
	}
	return day, nil
}

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// renderTemplate executes layout.html with the named page template.
func (a *app) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	funcMap := template.FuncMap{
		"csrfToken":      func() string { return csrf.Token(r) },
		"renderMarkdown": renderMarkdown,
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		a.internalError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		a.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
