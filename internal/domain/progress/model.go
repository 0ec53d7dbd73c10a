package progress

import (
	"errors"
	"math"
	"slices"

	"github.com/utamadigital/30-hari-new/internal/domain/access"
)

// Calendar bounds.
const (
	FirstDay  = 1
	TotalDays = 60
)

// Domain errors
var (
	ErrDayOutOfRange = errors.New("day must be between 1 and 60")
	ErrEmptyAgeGroup = errors.New("age group id cannot be empty")
)

// ValidDay reports whether day is inside the calendar.
func ValidDay(day int) bool {
	return day >= FirstDay && day <= TotalDays
}

// Scope identifies one completion set: progress is tracked per age group and category.
type Scope struct {
	AgeGroupID string
	Category   access.Category
}

// Validate checks the scope fields.
// PRE: none
// POST: Returns nil if valid, error otherwise
func (s Scope) Validate() error {
	if s.AgeGroupID == "" {
		return ErrEmptyAgeGroup
	}
	if !s.Category.Valid() {
		return access.ErrUnknownCategory
	}
	return nil
}

// CompletionSet is the set of days marked done within one Scope.
// The zero value is an empty set ready to use.
type CompletionSet struct {
	days map[int]struct{}
}

// NewCompletionSet builds a set from day numbers, silently dropping days outside the calendar.
func NewCompletionSet(days ...int) CompletionSet {
	s := CompletionSet{}
	for _, d := range days {
		if ValidDay(d) {
			s.add(d)
		}
	}
	return s
}

func (s *CompletionSet) add(day int) {
	if s.days == nil {
		s.days = make(map[int]struct{})
	}
	s.days[day] = struct{}{}
}

// Has reports whether day is marked done.
func (s CompletionSet) Has(day int) bool {
	_, ok := s.days[day]
	return ok
}

// Len returns the number of stored days, including ones currently locked.
func (s CompletionSet) Len() int {
	return len(s.days)
}

// Toggle returns a copy of the set with day's membership flipped.
// PRE: day is within the calendar
// POST: Receiver is unchanged; toggling twice yields an equal set
func (s CompletionSet) Toggle(day int) CompletionSet {
	next := s.Clone()
	if next.Has(day) {
		delete(next.days, day)
		return next
	}
	next.add(day)
	return next
}

// Clone returns an independent copy.
func (s CompletionSet) Clone() CompletionSet {
	out := CompletionSet{}
	for d := range s.days {
		out.add(d)
	}
	return out
}

// Days returns the stored days in ascending order.
func (s CompletionSet) Days() []int {
	out := make([]int, 0, len(s.days))
	for d := range s.days {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both sets hold the same days.
func (s CompletionSet) Equal(other CompletionSet) bool {
	return slices.Equal(s.Days(), other.Days())
}

// Summary holds the derived progress figures shown above the calendar.
type Summary struct {
	UnlockedDayCount int
	CompletedCount   int
	ProgressPercent  int
	LastCompletedDay int
}

// Summarize derives progress for a set given how many days are currently unlocked.
// PRE: unlockedDays >= 0
// POST: Only days <= unlockedDays count; ProgressPercent is within [0,100] and 0 when nothing is unlocked
// INVARIANT: s is not mutated
func Summarize(s CompletionSet, unlockedDays int) Summary {
	unlocked := min(max(unlockedDays, 0), TotalDays)

	sum := Summary{UnlockedDayCount: unlocked}
	for d := range s.days {
		if d < FirstDay || d > unlocked {
			continue
		}
		sum.CompletedCount++
		sum.LastCompletedDay = max(sum.LastCompletedDay, d)
	}
	if unlocked == 0 {
		return sum
	}
	pct := int(math.Round(float64(sum.CompletedCount) / float64(unlocked) * 100))
	sum.ProgressPercent = min(max(pct, 0), 100)
	return sum
}

// NextOpenDay returns the first unlocked day that is not yet done, or 0 when all are done.
func NextOpenDay(s CompletionSet, unlockedDays int) int {
	for d := FirstDay; d <= min(unlockedDays, TotalDays); d++ {
		if !s.Has(d) {
			return d
		}
	}
	return 0
}
