package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/utamadigital/30-hari-new/internal/adapters/storage"
	"github.com/utamadigital/30-hari-new/internal/domain/access"
	domain "github.com/utamadigital/30-hari-new/internal/domain/calendar"
	"github.com/utamadigital/30-hari-new/internal/domain/progress"
)

// Record names inside a visitor scope.
const (
	recordTier      = "access_tier"
	recordCode      = "access_code"
	recordStartDate = "start_date"
	recordDone      = "done"
)

// KVStore implements Store on top of a storage.KV, scoped to one visitor.
type KVStore struct {
	kv    storage.KV
	scope string
}

// Compile-time check that *KVStore satisfies Store.
var _ Store = (*KVStore)(nil)

// NewKVStore creates a Store for a single visitor scope.
// PRE: scope is non-empty
func NewKVStore(kv storage.KV, scope string) *KVStore {
	return &KVStore{kv: kv, scope: scope}
}

func (s *KVStore) key(record string) storage.RecordKey {
	return storage.RecordKey{Scope: s.scope, Record: record}
}

func (s *KVStore) doneKey(scope progress.Scope) storage.RecordKey {
	return storage.RecordKey{
		Scope:      s.scope,
		Record:     recordDone,
		AgeGroupID: scope.AgeGroupID,
		Category:   string(scope.Category),
	}
}

// get maps backend failures to *StorageError and passes ErrNotFound through.
func (s *KVStore) get(ctx context.Context, op string, key storage.RecordKey) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", &StorageError{Op: op, Err: err}
	}
	return v, nil
}

func (s *KVStore) apply(ctx context.Context, op string, ops ...storage.Op) error {
	if err := s.kv.Apply(ctx, ops...); err != nil {
		return &StorageError{Op: op, Err: err}
	}
	return nil
}

// LoadTier restores the activation.
// PRE: none
// POST: Returns ErrNotFound when neither tier nor code is stored; ErrCorrupt when the tier
// string is unknown or only one of the pair is present
func (s *KVStore) LoadTier(ctx context.Context) (TierRecord, error) {
	rawTier, tierErr := s.get(ctx, "load_tier", s.key(recordTier))
	if tierErr != nil && !errors.Is(tierErr, ErrNotFound) {
		return TierRecord{}, tierErr
	}
	code, codeErr := s.get(ctx, "load_tier", s.key(recordCode))
	if codeErr != nil && !errors.Is(codeErr, ErrNotFound) {
		return TierRecord{}, codeErr
	}

	tierMissing := errors.Is(tierErr, ErrNotFound)
	codeMissing := errors.Is(codeErr, ErrNotFound)
	switch {
	case tierMissing && codeMissing:
		return TierRecord{}, ErrNotFound
	case tierMissing || codeMissing:
		return TierRecord{}, ErrCorrupt
	}

	tier, err := access.ParseTier(rawTier)
	if err != nil {
		return TierRecord{}, ErrCorrupt
	}
	return TierRecord{Tier: tier, Code: code}, nil
}

// SaveTier writes or clears the activation.
// PRE: rec.Tier is empty or a valid tier
// POST: Tier and code are written together, or (zero rec) deleted together
func (s *KVStore) SaveTier(ctx context.Context, rec TierRecord) error {
	if !rec.Active() {
		return s.apply(ctx, "clear_tier", storage.Remove(s.key(recordTier)), storage.Remove(s.key(recordCode)))
	}
	if !rec.Tier.Valid() {
		return access.ErrUnknownTier
	}
	return s.apply(ctx, "save_tier",
		storage.Put(s.key(recordTier), string(rec.Tier)),
		storage.Put(s.key(recordCode), rec.Code),
	)
}

// LoadStartDate restores the calendar start date.
// POST: Returns ErrCorrupt when the stored string is not YYYY-MM-DD
func (s *KVStore) LoadStartDate(ctx context.Context) (domain.Date, error) {
	raw, err := s.get(ctx, "load_start_date", s.key(recordStartDate))
	if err != nil {
		return domain.Date{}, err
	}
	d, err := domain.ParseISO(raw)
	if err != nil {
		return domain.Date{}, ErrCorrupt
	}
	return d, nil
}

// SaveStartDate stores the start date as an ISO string.
// PRE: d is not the zero Date
func (s *KVStore) SaveStartDate(ctx context.Context, d domain.Date) error {
	if d.IsZero() {
		return domain.ErrInvalidDate
	}
	return s.apply(ctx, "save_start_date", storage.Put(s.key(recordStartDate), d.String()))
}

// LoadCompletion restores the done days of one age group and category.
// PRE: scope is valid
// POST: Entries that are not finite numbers within [1,60] are dropped silently;
// fractional days truncate. Returns ErrCorrupt when the value is not a JSON array.
func (s *KVStore) LoadCompletion(ctx context.Context, scope progress.Scope) (progress.CompletionSet, error) {
	if err := scope.Validate(); err != nil {
		return progress.CompletionSet{}, err
	}
	raw, err := s.get(ctx, "load_completion", s.doneKey(scope))
	if err != nil {
		return progress.CompletionSet{}, err
	}
	days, err := decodeDays(raw)
	if err != nil {
		return progress.CompletionSet{}, ErrCorrupt
	}
	return progress.NewCompletionSet(days...), nil
}

// SaveCompletion stores the done days as an ascending JSON array.
// PRE: scope is valid
func (s *KVStore) SaveCompletion(ctx context.Context, scope progress.Scope, set progress.CompletionSet) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(set.Days())
	if err != nil {
		return err
	}
	return s.apply(ctx, "save_completion", storage.Put(s.doneKey(scope), string(raw)))
}

// decodeDays accepts any JSON array and keeps the numeric entries in calendar range.
func decodeDays(raw string) ([]int, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}

	days := make([]int, 0, len(items))
	for _, item := range items {
		n, ok := item.(json.Number)
		if !ok {
			continue
		}
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if f < progress.FirstDay || f > progress.TotalDays {
			continue
		}
		days = append(days, int(math.Trunc(f)))
	}
	return days, nil
}
