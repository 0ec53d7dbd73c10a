package access

import (
	"errors"
	"slices"
	"strings"
)

// Tier is a purchased access level controlling how much of the calendar is visible.
type Tier string

// Tier constants. These strings are also the persisted representation.
const (
	TierBasic     Tier = "BASIC"
	TierProgram30 Tier = "PROGRAM_30"
	TierFull      Tier = "FULL"
)

// Category is one of the content tracks gated independently of the day count.
type Category string

// Category constants.
const (
	CategoryIslami Category = "islami"
	CategoryUmum   Category = "umum"
	CategoryBonus  Category = "bonus"
)

// DefaultCategory is selected when the active tier grants no category at all.
const DefaultCategory = CategoryIslami

// Domain errors
var (
	ErrUnknownTier     = errors.New("unknown access tier")
	ErrUnknownCategory = errors.New("unknown learning category")
)

// codes is the hand-maintained code table. Keys are stored normalized.
// Rotating a code means editing this table and redeploying.
var codes = map[string]Tier{
	"BASIC7": TierBasic,
	"PROG30": TierProgram30,
	"FULL60": TierFull,
}

// Limits describes what a tier unlocks.
type Limits struct {
	UnlockedDays int
	Categories   []Category
}

// Allows reports whether c is one of the unlocked categories.
// INVARIANT: l is not mutated
func (l Limits) Allows(c Category) bool {
	return slices.Contains(l.Categories, c)
}

// NoLimits is the limit set used while no tier is active: nothing is unlocked.
func NoLimits() Limits {
	return Limits{UnlockedDays: 0, Categories: nil}
}

// NormalizeCode trims surrounding whitespace and upper-cases a raw code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Resolve maps a user-entered code to its tier.
// PRE: none
// POST: Returns the tier and true for a known code, "" and false otherwise
// INVARIANT: Lookup is case- and whitespace-insensitive; the code table is not mutated
func Resolve(raw string) (Tier, bool) {
	t, ok := codes[NormalizeCode(raw)]
	return t, ok
}

// ParseTier accepts only the exact persisted tier strings.
// PRE: none
// POST: Returns ErrUnknownTier for anything that is not a known tier
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", ErrUnknownTier
	}
	return t, nil
}

// Valid reports whether t is one of the three tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierProgram30, TierFull:
		return true
	default:
		return false
	}
}

// LimitsFor returns the unlock limits of a tier.
// PRE: t is a valid tier (callers use NoLimits when no tier is active)
// POST: Returns a fresh Limits value; callers may modify it freely
func LimitsFor(t Tier) Limits {
	switch t {
	case TierBasic:
		return Limits{UnlockedDays: 7, Categories: []Category{CategoryIslami}}
	case TierProgram30:
		return Limits{UnlockedDays: 30, Categories: []Category{CategoryIslami, CategoryUmum}}
	default:
		return Limits{UnlockedDays: 60, Categories: []Category{CategoryIslami, CategoryUmum, CategoryBonus}}
	}
}

// Label returns the header text shown for an active tier.
func (t Tier) Label() string {
	switch t {
	case TierBasic:
		return "Basic (7 Hari — Islami saja)"
	case TierProgram30:
		return "Program 30 Hari (Islami + Umum)"
	default:
		return "Full Pendampingan (Semua terbuka + Bonus)"
	}
}

// DisplayName is the short package name used in upgrade hints.
func (t Tier) DisplayName() string {
	switch t {
	case TierBasic:
		return "Basic"
	case TierProgram30:
		return "Program 30 Hari"
	case TierFull:
		return "Full Pendampingan"
	default:
		return string(t)
	}
}

// NextTier returns the tier a user should upgrade to for more days.
// POST: Returns false for FULL, which already unlocks everything
func (t Tier) NextTier() (Tier, bool) {
	switch t {
	case TierBasic:
		return TierProgram30, true
	case TierProgram30:
		return TierFull, true
	default:
		return "", false
	}
}

// Tiers returns every tier from smallest to largest.
func Tiers() []Tier {
	return []Tier{TierBasic, TierProgram30, TierFull}
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{CategoryIslami, CategoryUmum, CategoryBonus}
}

// ParseCategory validates a wire category value.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryIslami, CategoryUmum, CategoryBonus:
		return true
	default:
		return false
	}
}

// Label is the pill text for a category.
func (c Category) Label() string {
	switch c {
	case CategoryIslami:
		return "Islami"
	case CategoryUmum:
		return "Umum"
	case CategoryBonus:
		return "Bonus"
	default:
		return string(c)
	}
}
