package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	calendarStore "github.com/utamadigital/30-hari-new/internal/adapters/storage/calendar"
	"github.com/utamadigital/30-hari-new/internal/application/events"
	"github.com/utamadigital/30-hari-new/internal/domain/access"
	"github.com/utamadigital/30-hari-new/internal/domain/calendar"
	"github.com/utamadigital/30-hari-new/internal/domain/curriculum"
	"github.com/utamadigital/30-hari-new/internal/domain/progress"
)

// Session errors
var (
	ErrUnknownAgeGroup = errors.New("unknown age group")
	ErrNoCalendarStore = errors.New("calendar store is required")
)

// Messages shown to the user.
const (
	MsgInvalidCode         = "Kode tidak valid. Cek lagi ya 🙂"
	MsgActivationRequired  = "Kalender belum diaktivasi. Masukkan kode untuk membuka."
	MsgBonusUnavailable    = "Fitur Bonus hanya terbuka di paket Full Pendampingan."
	MsgCategoryUnavailable = "Tipe ini belum terbuka di paket kamu."
	MsgInconsistent        = "Hari ini seharusnya sudah terbuka."
	MsgOutOfRange          = "Hari di luar kalender 60 hari."
	HeaderUnactivated      = "Belum aktivasi (masukkan kode)"
)

// LockKind classifies the result of selecting a day.
type LockKind string

// Day outcomes, in precedence order after the range check.
const (
	DayOpen                 LockKind = "open"
	LockOutOfRange          LockKind = "out_of_range"
	LockActivationRequired  LockKind = "activation_required"
	LockCategoryUnavailable LockKind = "category_unavailable"
	LockUpgradeRequired     LockKind = "upgrade_required"
	LockInconsistent        LockKind = "inconsistent"
)

// DayOutcome is the answer to "what happens when this day is selected".
type DayOutcome struct {
	Day     int
	Kind    LockKind
	Message string
	// SuggestedTier is set for LockUpgradeRequired.
	SuggestedTier access.Tier
}

// Open reports whether the day detail may be shown.
func (o DayOutcome) Open() bool {
	return o.Kind == DayOpen
}

// OffersPackage reports whether the outcome is a reason to show the package sheet.
func (o DayOutcome) OffersPackage() bool {
	return o.Kind == LockUpgradeRequired || o.Kind == LockCategoryUnavailable
}

// ClassifyDay decides whether day is open for a tier and category.
// An empty tier means "not activated".
// PRE: none
// POST: Exactly one kind is returned; every lock carries a message
func ClassifyDay(tier access.Tier, c access.Category, day int) DayOutcome {
	out := DayOutcome{Day: day}
	if !progress.ValidDay(day) {
		out.Kind, out.Message = LockOutOfRange, MsgOutOfRange
		return out
	}
	if tier == "" {
		out.Kind, out.Message = LockActivationRequired, MsgActivationRequired
		return out
	}
	limits := access.LimitsFor(tier)
	if !limits.Allows(c) {
		out.Kind, out.Message = LockCategoryUnavailable, MsgCategoryUnavailable
		if c == access.CategoryBonus {
			out.Message = MsgBonusUnavailable
		}
		return out
	}
	if day > limits.UnlockedDays {
		next, ok := tier.NextTier()
		if !ok {
			out.Kind, out.Message = LockInconsistent, MsgInconsistent
			return out
		}
		out.Kind = LockUpgradeRequired
		out.SuggestedTier = next
		out.Message = fmt.Sprintf("Hari %d terkunci untuk paket kamu. Untuk membuka sampai hari %d, kamu perlu upgrade ke %s.",
			day, day, next.DisplayName())
		return out
	}
	out.Kind = DayOpen
	return out
}

// CalendarSessionDeps holds dependencies for a CalendarSession.
type CalendarSessionDeps struct {
	Store    calendarStore.Store
	Emitter  events.Emitter
	Logger   *zap.Logger
	Now      func() time.Time
	Location *time.Location
}

// CalendarSession is the in-memory state of one mounted calendar view.
// It is not safe for concurrent use; SessionRegistry serialises access.
// INVARIANT: category is always allowed by the active tier, or ISLAMI when the tier grants none
// INVARIANT: completion always belongs to (ageGroupID, category)
type CalendarSession struct {
	store   calendarStore.Store
	emitter events.Emitter
	log     *zap.Logger
	now     func() time.Time
	loc     *time.Location

	tier       access.Tier
	code       string
	ageGroupID string
	category   access.Category
	startDate  calendar.Date
	completion progress.CompletionSet
	codeError  string
}

// NewCalendarSession mounts a session from persisted state.
// PRE: deps.Store is non-nil
// POST: Missing or unreadable tier means "not activated"; missing start date becomes today and is persisted;
// the completion set of the default age group and resulting category is loaded
func NewCalendarSession(ctx context.Context, deps CalendarSessionDeps) (*CalendarSession, error) {
	if deps.Store == nil {
		return nil, ErrNoCalendarStore
	}
	s := &CalendarSession{
		store:      deps.Store,
		emitter:    deps.Emitter,
		log:        deps.Logger,
		now:        deps.Now,
		loc:        deps.Location,
		ageGroupID: curriculum.DefaultAgeGroupID,
		category:   access.DefaultCategory,
	}
	if s.emitter == nil {
		s.emitter = events.Discard{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}

	rec, err := s.store.LoadTier(ctx)
	if err != nil {
		s.absent("load_tier", err)
	} else {
		s.tier, s.code = rec.Tier, rec.Code
	}

	start, err := s.store.LoadStartDate(ctx)
	if err != nil {
		s.absent("load_start_date", err)
		start = s.Today()
		s.persist("save_start_date", s.store.SaveStartDate(ctx, start))
	}
	s.startDate = start

	s.ensureCategory()
	s.reloadCompletion(ctx)
	return s, nil
}

// absent records that a persisted fact was treated as missing.
func (s *CalendarSession) absent(op string, err error) {
	switch {
	case errors.Is(err, calendarStore.ErrNotFound):
	case errors.Is(err, calendarStore.ErrCorrupt):
		s.log.Debug("calendar_fallback", zap.String("op", op), zap.Error(err))
	default:
		s.log.Warn("calendar_storage_unavailable", zap.String("op", op), zap.Error(err))
	}
}

// persist logs a failed write. The in-memory state stays authoritative for this session.
func (s *CalendarSession) persist(op string, err error) {
	if err != nil {
		s.log.Warn("calendar_storage_unavailable", zap.String("op", op), zap.Error(err))
	}
}

func (s *CalendarSession) emit(e events.Event) {
	e.At = s.now()
	if e.Tier == "" {
		e.Tier = string(s.tier)
	}
	if e.Category == "" {
		e.Category = string(s.category)
	}
	if e.AgeGroupID == "" {
		e.AgeGroupID = s.ageGroupID
	}
	s.emitter.Emit(e)
}

func (s *CalendarSession) scope() progress.Scope {
	return progress.Scope{AgeGroupID: s.ageGroupID, Category: s.category}
}

func (s *CalendarSession) limits() access.Limits {
	if s.tier == "" {
		return access.NoLimits()
	}
	return access.LimitsFor(s.tier)
}

// ensureCategory moves the selection to an allowed category.
// POST: Returns true when the category changed
func (s *CalendarSession) ensureCategory() bool {
	limits := s.limits()
	want := s.category
	switch {
	case len(limits.Categories) == 0:
		want = access.DefaultCategory
	case !limits.Allows(s.category):
		want = limits.Categories[0]
	}
	if want == s.category {
		return false
	}
	s.category = want
	return true
}

func (s *CalendarSession) reloadCompletion(ctx context.Context) {
	set, err := s.store.LoadCompletion(ctx, s.scope())
	if err != nil {
		s.absent("load_completion", err)
		set = progress.NewCompletionSet()
	}
	s.completion = set
}

// --- Access ---

// SubmitCodeInput carries the code typed by the user.
type SubmitCodeInput struct {
	Code string
}

// SubmitCodeResult reports the outcome of a code submission.
type SubmitCodeResult struct {
	Accepted  bool
	Tier      access.Tier
	CodeError string
}

// SubmitCode activates the calendar with a code.
// PRE: none
// POST: Unknown code leaves tier, code and completion untouched and sets CodeError;
// known code sets the tier and the trimmed code, persists both and clears the error
func (s *CalendarSession) SubmitCode(ctx context.Context, input SubmitCodeInput) SubmitCodeResult {
	tier, ok := access.Resolve(input.Code)
	if !ok {
		s.codeError = MsgInvalidCode
		s.emit(events.Event{Kind: events.KindCodeRejected})
		return SubmitCodeResult{Tier: s.tier, CodeError: s.codeError}
	}

	s.codeError = ""
	s.tier = tier
	s.code = strings.TrimSpace(input.Code)
	s.persist("save_tier", s.store.SaveTier(ctx, calendarStore.TierRecord{Tier: s.tier, Code: s.code}))
	if s.ensureCategory() {
		s.reloadCompletion(ctx)
	}
	s.emit(events.Event{Kind: events.KindCodeActivated})
	return SubmitCodeResult{Accepted: true, Tier: tier}
}

// ResetAccess forgets the activation.
// POST: Tier and code cleared in memory and storage; completion sets and start date untouched
func (s *CalendarSession) ResetAccess(ctx context.Context) {
	s.tier = ""
	s.code = ""
	s.codeError = ""
	s.persist("clear_tier", s.store.SaveTier(ctx, calendarStore.TierRecord{}))
	if s.ensureCategory() {
		s.reloadCompletion(ctx)
	}
	s.emit(events.Event{Kind: events.KindAccessReset})
}

// --- Days ---

// SelectDay classifies a day for the current tier and category.
// POST: No state change; emits day_opened or day_locked, plus package_sheet_requested for purchase prompts
func (s *CalendarSession) SelectDay(day int) DayOutcome {
	out := ClassifyDay(s.tier, s.category, day)
	if out.Open() {
		s.emit(events.Event{Kind: events.KindDayOpened, Day: day})
		return out
	}

	if out.Kind == LockInconsistent {
		s.log.Error("calendar_inconsistent_lock",
			zap.String("tier", string(s.tier)), zap.Int("day", day), zap.Int("unlocked_days", s.limits().UnlockedDays))
	}
	s.emit(events.Event{Kind: events.KindDayLocked, Day: day, LockReason: string(out.Kind)})
	if out.OffersPackage() {
		s.emit(events.Event{Kind: events.KindPackageSheetRequested, Day: day, LockReason: string(out.Kind)})
	}
	return out
}

// ToggleCompletion flips a day's done state.
// PRE: none
// POST: Returns false and changes nothing unless the day is unlocked; otherwise flips membership and persists the set
func (s *CalendarSession) ToggleCompletion(ctx context.Context, day int) bool {
	if !s.IsDayUnlocked(day) {
		return false
	}
	s.completion = s.completion.Toggle(day)
	s.persist("save_completion", s.store.SaveCompletion(ctx, s.scope(), s.completion))
	s.emit(events.Event{Kind: events.KindCompletionToggled, Day: day, Completed: s.completion.Has(day)})
	return true
}

// --- Selection ---

// ChangeAgeGroup selects an age group and loads its completion set.
// PRE: id is one of curriculum.AgeGroups()
// POST: Unknown ids return ErrUnknownAgeGroup with no state change
func (s *CalendarSession) ChangeAgeGroup(ctx context.Context, id string) error {
	if _, ok := curriculum.FindAgeGroup(id); !ok {
		return ErrUnknownAgeGroup
	}
	s.ageGroupID = id
	s.ensureCategory()
	s.reloadCompletion(ctx)
	s.emit(events.Event{Kind: events.KindSelectionChanged})
	return nil
}

// ChangeCategory selects a content category and loads its completion set.
// PRE: c is a known category
// POST: A category the tier does not allow falls back to the tier's first allowed category
// (ISLAMI without a tier); returns the category actually selected
func (s *CalendarSession) ChangeCategory(ctx context.Context, c access.Category) (access.Category, error) {
	if !c.Valid() {
		return s.category, access.ErrUnknownCategory
	}
	s.category = c
	s.ensureCategory()
	s.reloadCompletion(ctx)
	s.emit(events.Event{Kind: events.KindSelectionChanged})
	return s.category, nil
}

// ChangeStartDate moves Day 1 to d.
// PRE: d is not the zero Date
// POST: Start date updated and persisted; completion untouched
func (s *CalendarSession) ChangeStartDate(ctx context.Context, d calendar.Date) error {
	if d.IsZero() {
		return calendar.ErrInvalidDate
	}
	s.startDate = d
	s.persist("save_start_date", s.store.SaveStartDate(ctx, d))
	s.emit(events.Event{Kind: events.KindStartDateChanged, StartDate: d.String()})
	return nil
}

// ClearCodeError dismisses the last invalid-code message.
func (s *CalendarSession) ClearCodeError() {
	s.codeError = ""
}

// --- Derived values ---

// Tier returns the active tier, empty when not activated.
func (s *CalendarSession) Tier() access.Tier { return s.tier }

// Code returns the code that activated the tier.
func (s *CalendarSession) Code() string { return s.code }

// AgeGroupID returns the selected age group.
func (s *CalendarSession) AgeGroupID() string { return s.ageGroupID }

// Category returns the selected category.
func (s *CalendarSession) Category() access.Category { return s.category }

// StartDate returns the date of Day 1.
func (s *CalendarSession) StartDate() calendar.Date { return s.startDate }

// CodeError returns the message of the last rejected code, if any.
func (s *CalendarSession) CodeError() string { return s.codeError }

// Today returns the current local civil date.
func (s *CalendarSession) Today() calendar.Date {
	return calendar.Today(s.now(), s.loc)
}

// UnlockedDayCount is how many days are open for the current tier and category.
func (s *CalendarSession) UnlockedDayCount() int {
	limits := s.limits()
	if !limits.Allows(s.category) {
		return 0
	}
	return min(limits.UnlockedDays, progress.TotalDays)
}

// IsDayUnlocked reports whether day may be opened and marked done.
func (s *CalendarSession) IsDayUnlocked(day int) bool {
	return progress.ValidDay(day) && day <= s.UnlockedDayCount()
}

// IsDayCompleted reports whether day is marked done in the current scope.
// Days that are done but currently locked still report true.
func (s *CalendarSession) IsDayCompleted(day int) bool {
	return s.completion.Has(day)
}

// Summary returns the progress figures for the current scope.
func (s *CalendarSession) Summary() progress.Summary {
	return progress.Summarize(s.completion, s.UnlockedDayCount())
}

// CompletedCount counts done days that are currently unlocked.
func (s *CalendarSession) CompletedCount() int { return s.Summary().CompletedCount }

// ProgressPercent is CompletedCount over UnlockedDayCount, rounded, in [0,100].
func (s *CalendarSession) ProgressPercent() int { return s.Summary().ProgressPercent }

// LastCompletedDay is the highest unlocked done day, or 0.
func (s *CalendarSession) LastCompletedDay() int { return s.Summary().LastCompletedDay }

// NextOpenDay is the first unlocked day not yet done, or 0.
func (s *CalendarSession) NextOpenDay() int {
	return progress.NextOpenDay(s.completion, s.UnlockedDayCount())
}

// HeaderLabel is the pill text above the calendar.
func (s *CalendarSession) HeaderLabel() string {
	if s.tier == "" {
		return HeaderUnactivated
	}
	return s.tier.Label()
}

// SessionSnapshot is a read-only copy of a session's state and derived values.
type SessionSnapshot struct {
	Tier        access.Tier
	Code        string
	HeaderLabel string
	AgeGroupID  string
	Category    access.Category
	StartDate   calendar.Date
	Today       calendar.Date
	CodeError   string
	Completion  progress.CompletionSet
	Summary     progress.Summary
	NextOpenDay int
}

// Snapshot copies the session so it can be read after the session lock is released.
func (s *CalendarSession) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		Tier:        s.tier,
		Code:        s.code,
		HeaderLabel: s.HeaderLabel(),
		AgeGroupID:  s.ageGroupID,
		Category:    s.category,
		StartDate:   s.startDate,
		Today:       s.Today(),
		CodeError:   s.codeError,
		Completion:  s.completion.Clone(),
		Summary:     s.Summary(),
		NextOpenDay: s.NextOpenDay(),
	}
}
