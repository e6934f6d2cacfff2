// Package entitlement decides whether a plan allows creating another gated
// resource. Pure functions, no I/O.
package entitlement

// ResourceKind is a plan-gated resource type
type ResourceKind string

const (
	ResourceBot       ResourceKind = "bot"
	ResourceStrategy  ResourceKind = "strategy"
	ResourceWatchlist ResourceKind = "watchlist"
)

// FreePlanLimit is the default number of entries of each gated kind an
// unsubscribed account may own.
const FreePlanLimit = 3

// CanCreate reports whether an account may create one more resource of the
// given kind. Subscribed accounts are never count-limited. Degenerate counts
// (negative) are rejected.
func CanCreate(kind ResourceKind, currentCount int, isSubscribed bool) bool {
	return CanCreateN(kind, currentCount, isSubscribed, FreePlanLimit)
}

// CanCreateN is CanCreate with an explicit free-plan limit, for deployments
// that tune the limit via configuration.
func CanCreateN(kind ResourceKind, currentCount int, isSubscribed bool, limit int) bool {
	if currentCount < 0 {
		return false
	}
	if isSubscribed {
		return true
	}
	switch kind {
	case ResourceBot, ResourceStrategy, ResourceWatchlist:
		return currentCount < limit
	default:
		return false
	}
}
