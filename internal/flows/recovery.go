package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/authgate/recovery"
)

// RecoveryMetrics carries metric IDs used by the recovery-code flow.
type RecoveryMetrics struct {
	RecoveryCodeUsed     int
	RecoveryCodeFailed   int
	RecoveryCodeConflict int
}

// RecoveryErrors carries host-level sentinel errors used by the recovery-code flow.
type RecoveryErrors struct {
	EngineNotReady   error
	NotConfigured    error
	Invalid          error
	Conflict         error
	Misconfigured    error
	StoreUnavailable error
}

// RecoveryDeps captures recovery-code consumption dependencies for one account.
type RecoveryDeps struct {
	MaxSwapRetries int

	// LoadSealed re-reads the account's sealed collection after a lost swap.
	LoadSealed func(context.Context) (string, error)
	Open       func(sealed string) (*recovery.Set, error)
	Seal       func(*recovery.Set) (string, error)
	Swap       func(ctx context.Context, expected, next string) (bool, error)

	MetricInc func(int)

	Metrics RecoveryMetrics
	Errors  RecoveryErrors
}

// RunConsumeRecoveryCode removes code from the account's unused set and
// persists the smaller set with a compare-and-swap. A lost swap re-reads the
// collection and retries, so of two concurrent redemptions of one code exactly
// one succeeds; the other sees the code gone and fails as invalid.
//
// It returns the number of codes left.
func RunConsumeRecoveryCode(ctx context.Context, sealed, code string, deps RecoveryDeps) (int, error) {
	normalizeRecoveryDeps(&deps)

	if deps.LoadSealed == nil || deps.Open == nil || deps.Seal == nil || deps.Swap == nil {
		return 0, deps.Errors.EngineNotReady
	}

	for attempt := 0; attempt < deps.MaxSwapRetries; attempt++ {
		if attempt > 0 {
			reloaded, err := deps.LoadSealed(ctx)
			if err != nil {
				return 0, deps.Errors.StoreUnavailable
			}
			sealed = reloaded
		}

		set, err := deps.Open(sealed)
		if err != nil {
			if errors.Is(err, recovery.ErrNotConfigured) {
				deps.MetricInc(deps.Metrics.RecoveryCodeFailed)
				return 0, deps.Errors.NotConfigured
			}
			return 0, deps.Errors.Misconfigured
		}

		if !set.RemoveIfPresent(code) {
			deps.MetricInc(deps.Metrics.RecoveryCodeFailed)
			return set.Len(), deps.Errors.Invalid
		}

		next, err := deps.Seal(set)
		if err != nil {
			return 0, deps.Errors.Misconfigured
		}

		swapped, err := deps.Swap(ctx, sealed, next)
		if err != nil {
			return 0, deps.Errors.StoreUnavailable
		}
		if swapped {
			deps.MetricInc(deps.Metrics.RecoveryCodeUsed)
			return set.Len(), nil
		}
		deps.MetricInc(deps.Metrics.RecoveryCodeConflict)
	}

	return 0, deps.Errors.Conflict
}

func normalizeRecoveryDeps(deps *RecoveryDeps) {
	if deps.MaxSwapRetries <= 0 {
		deps.MaxSwapRetries = 4
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
}
