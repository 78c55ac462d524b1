package pulls

import (
	"errors"
	"fmt"
)

var (
	ErrNoQuotaRemaining    = errors.New("no summons remaining")
	ErrBannerInProgress    = errors.New("a summon is already in progress and must be completed first")
	ErrRerollRefused       = errors.New("a fresh banner may not be rerolled")
	ErrSlotAlreadyRevealed = errors.New("slot already revealed")
	ErrSlotIndexOutOfRange = errors.New("slot index out of range")
	ErrNoActiveBanner      = errors.New("no active summon")
	ErrBannerComplete      = errors.New("summon is already complete")
	ErrMalformedBanner     = errors.New("malformed banner")
)

// QuotaError reports which entitlement ran out. It matches
// ErrNoQuotaRemaining with errors.Is.
type QuotaError struct {
	Kind Kind
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("no %s summons remaining", e.Kind)
}

func (e *QuotaError) Is(target error) bool {
	return target == ErrNoQuotaRemaining
}
