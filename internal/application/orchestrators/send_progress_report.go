package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	emailAdapter "github.com/utamadigital/30-hari-new/internal/adapters/email"
	"github.com/utamadigital/30-hari-new/internal/application/events"
	"github.com/utamadigital/30-hari-new/internal/domain/curriculum"
)

// ErrNotActivated is returned for operations that need an active tier.
var ErrNotActivated = errors.New("calendar is not activated")

// validate is shared; validator caches struct metadata per type.
var validate = validator.New(validator.WithRequiredStructEnabled())

// reportRenderer escapes raw HTML in markdown input (WithUnsafe is not set).
var reportRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// SessionRunner runs a function against a visitor's mounted session.
type SessionRunner interface {
	WithSession(ctx context.Context, visitorID string, fn func(s *CalendarSession) error) ([]events.Event, error)
}

// SendProgressReportInput carries input for the progress report orchestrator.
type SendProgressReportInput struct {
	VisitorID string `validate:"required"`
	Email     string `validate:"required,email,max=254"`
	ChildName string `validate:"omitempty,max=60"`
}

// SendProgressReportDeps holds dependencies for SendProgressReport.
type SendProgressReportDeps struct {
	Sessions SessionRunner
	Sender   emailAdapter.Sender
	From     string
	ReplyTo  string
	Logger   *zap.Logger
}

// ExecuteSendProgressReport emails a summary of the visitor's current calendar scope.
// PRE: Email is a valid address; the visitor's calendar is activated
// POST: One email sent through deps.Sender; session state unchanged
func ExecuteSendProgressReport(ctx context.Context, input SendProgressReportInput, deps SendProgressReportDeps) (emailAdapter.SendResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.ChildName = strings.TrimSpace(input.ChildName)
	if err := validate.Struct(input); err != nil {
		return emailAdapter.SendResult{}, fmt.Errorf("invalid report request: %w", err)
	}

	var snap SessionSnapshot
	_, err := deps.Sessions.WithSession(ctx, input.VisitorID, func(s *CalendarSession) error {
		snap = s.Snapshot()
		return nil
	})
	if err != nil {
		return emailAdapter.SendResult{}, err
	}
	if snap.Tier == "" {
		return emailAdapter.SendResult{}, ErrNotActivated
	}

	md := BuildProgressReportMarkdown(snap, input.ChildName)
	var html bytes.Buffer
	if err := reportRenderer.Convert([]byte(md), &html); err != nil {
		return emailAdapter.SendResult{}, fmt.Errorf("render progress report: %w", err)
	}

	res, err := deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{input.Email},
		From:    deps.From,
		Subject: fmt.Sprintf("Progres Kalender Belajar: %d%%", snap.Summary.ProgressPercent),
		HTML:    html.String(),
		Text:    md,
		ReplyTo: deps.ReplyTo,
	})
	if err != nil {
		return emailAdapter.SendResult{}, err
	}

	if deps.Logger != nil {
		deps.Logger.Info("calendar_event",
			zap.String("event", "progress_report_sent"),
			zap.String("visitor_id", input.VisitorID),
			zap.String("message_id", res.MessageID),
		)
	}
	return res, nil
}

// BuildProgressReportMarkdown renders the report body.
// INVARIANT: snap is not mutated
func BuildProgressReportMarkdown(snap SessionSnapshot, childName string) string {
	var b strings.Builder
	b.WriteString("# Progres Kalender Belajar 60 Hari\n\n")
	if childName != "" {
		fmt.Fprintf(&b, "Untuk **%s**\n\n", childName)
	}

	age := snap.AgeGroupID
	if g, ok := curriculum.FindAgeGroup(snap.AgeGroupID); ok {
		age = g.Label
	}
	fmt.Fprintf(&b, "- Paket: %s\n", snap.HeaderLabel)
	fmt.Fprintf(&b, "- Umur: %s\n", age)
	fmt.Fprintf(&b, "- Tipe: %s\n", snap.Category.Label())
	fmt.Fprintf(&b, "- Mulai: %s\n\n", snap.StartDate.FormatLong())

	sum := snap.Summary
	fmt.Fprintf(&b, "Progres: **%d%%** (%d dari %d hari)\n\n", sum.ProgressPercent, sum.CompletedCount, sum.UnlockedDayCount)

	b.WriteString("## Sudah selesai\n\n")
	if sum.CompletedCount == 0 {
		b.WriteString("Belum ada hari yang ditandai selesai.\n")
	}
	for _, day := range snap.Completion.Days() {
		if day > sum.UnlockedDayCount {
			continue
		}
		plan := curriculum.PlanFor(day, snap.AgeGroupID, snap.Category)
		fmt.Fprintf(&b, "- Hari %d (%s): %s\n", day, snap.StartDate.ForDay(day).FormatShort(), plan.Title)
	}

	b.WriteString("\n## Berikutnya\n\n")
	if snap.NextOpenDay == 0 {
		b.WriteString("Semua hari yang terbuka sudah selesai. Hebat!\n")
	} else {
		plan := curriculum.PlanFor(snap.NextOpenDay, snap.AgeGroupID, snap.Category)
		fmt.Fprintf(&b, "Hari %d, %s: %s\n", snap.NextOpenDay, snap.StartDate.ForDay(snap.NextOpenDay).FormatLong(), plan.Title)
	}
	return b.String()
}

// reportTimeout bounds a provider call made on behalf of a web request.
const reportTimeout = 15 * time.Second

// WithReportTimeout derives the context used for a report send.
func WithReportTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, reportTimeout)
}
