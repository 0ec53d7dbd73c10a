package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/utamadigital/30-hari-new/internal/adapters/storage"
	"github.com/utamadigital/30-hari-new/internal/domain/access"
	domain "github.com/utamadigital/30-hari-new/internal/domain/calendar"
	"github.com/utamadigital/30-hari-new/internal/domain/progress"
)

// ErrNotFound means the record has never been written (or was cleared).
var ErrNotFound = storage.ErrNotFound

// ErrCorrupt means a record exists but cannot be decoded.
var ErrCorrupt = errors.New("persisted calendar record is malformed")

// StorageError wraps a failure of the underlying backend (disabled, full, unreachable).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("calendar storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TierRecord is the persisted activation: a tier together with the code that unlocked it.
// The zero value means "not activated".
type TierRecord struct {
	Tier access.Tier
	Code string
}

// Active reports whether the record carries a tier.
func (r TierRecord) Active() bool {
	return r.Tier != ""
}

// Store persists the four calendar facts of one visitor scope.
// Every method reports failures explicitly; callers decide whether to treat
// ErrNotFound, ErrCorrupt or *StorageError as "absent".
type Store interface {
	LoadTier(ctx context.Context) (TierRecord, error)
	SaveTier(ctx context.Context, rec TierRecord) error
	LoadStartDate(ctx context.Context) (domain.Date, error)
	SaveStartDate(ctx context.Context, d domain.Date) error
	LoadCompletion(ctx context.Context, scope progress.Scope) (progress.CompletionSet, error)
	SaveCompletion(ctx context.Context, scope progress.Scope, set progress.CompletionSet) error
}
