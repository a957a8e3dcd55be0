package ops

import "github.com/geektoshi/nebulactl/internal/prefs"

// RequiresConfirmation decides whether an explicit user confirmation step
// is required before executing an operation. It is a pure function shared
// by every call site: batch and single-target requests are gated by exactly
// the same logic, which is why targetCount deliberately does not influence
// the Install/Remove branches.
func RequiresConfirmation(kind OperationKind, targetCount int, p prefs.Preferences) bool {
	_ = targetCount

	switch kind {
	case Install:
		return p.ConfirmInstall
	case Remove:
		return p.ConfirmRemove
	case Update:
		// Updates are confirmed once per run at the plan level, never
		// re-confirmed per package inside the run.
		return true
	case Hold, Unhold, CacheCleanup:
		return false
	default:
		return false
	}
}

// ClearHistoryRequiresConfirmation gates the destructive history clear with
// the same discipline as package removal.
func ClearHistoryRequiresConfirmation(p prefs.Preferences) bool {
	return p.ConfirmRemove
}
