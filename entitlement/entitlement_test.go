package entitlement

import "testing"

func TestCanCreateFreePlan(t *testing.T) {
	kinds := []ResourceKind{ResourceBot, ResourceStrategy, ResourceWatchlist}

	for _, kind := range kinds {
		// First three creations succeed, the fourth is rejected
		for count := 0; count < 3; count++ {
			if !CanCreate(kind, count, false) {
				t.Errorf("%s: creation at count %d should be allowed on the free plan", kind, count)
			}
		}
		if CanCreate(kind, 3, false) {
			t.Errorf("%s: fourth creation should be rejected on the free plan", kind)
		}
		if CanCreate(kind, 100, false) {
			t.Errorf("%s: creation far past the limit should be rejected", kind)
		}
	}
}

func TestCanCreateSubscribed(t *testing.T) {
	for _, count := range []int{0, 3, 1000} {
		if !CanCreate(ResourceBot, count, true) {
			t.Errorf("subscribed account should never be count-limited (count=%d)", count)
		}
	}
}

func TestCanCreateNegativeCount(t *testing.T) {
	if CanCreate(ResourceBot, -1, false) {
		t.Error("negative count must be rejected")
	}
	if CanCreate(ResourceBot, -1, true) {
		t.Error("negative count must be rejected even for subscribed accounts")
	}
}

func TestCanCreateUnknownKind(t *testing.T) {
	if CanCreate(ResourceKind("portfolio"), 0, false) {
		t.Error("unknown resource kinds are not gated and must be rejected")
	}
}

func TestCanCreateNCustomLimit(t *testing.T) {
	if !CanCreateN(ResourceWatchlist, 9, false, 10) {
		t.Error("count below a custom limit should be allowed")
	}
	if CanCreateN(ResourceWatchlist, 10, false, 10) {
		t.Error("count at a custom limit should be rejected")
	}
}
