package store

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)

	u := &User{ID: "u1", Email: "a@b.com", PasswordHash: "hash", OTPSecret: "secret"}
	if err := s.User().Create(u); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.User().GetByEmail("a@b.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != "u1" || got.PasswordHash != "hash" || got.IsSubscribed {
		t.Errorf("unexpected user: %+v", got)
	}

	if err := s.User().SetSubscribed("u1", true); err != nil {
		t.Fatalf("set subscribed: %v", err)
	}
	got, _ = s.User().GetByID("u1")
	if !got.IsSubscribed {
		t.Error("subscription flag should be set")
	}

	if err := s.User().UpdateOTPVerified("u1", true); err != nil {
		t.Fatalf("update otp verified: %v", err)
	}
	got, _ = s.User().GetByID("u1")
	if !got.OTPVerified {
		t.Error("otp_verified should be set")
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)

	if err := s.User().Create(&User{ID: "u1", Email: "a@b.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.User().Create(&User{ID: "u2", Email: "a@b.com", PasswordHash: "h"}); err == nil {
		t.Error("duplicate email should violate the unique constraint")
	}
}

func TestBotOwnershipScoping(t *testing.T) {
	s := newTestStore(t)

	bot := &Bot{ID: "b1", UserID: "u1", Name: "alpha", StrategyID: "sma", StockSymbol: "AAPL"}
	if err := s.Bot().Create(bot); err != nil {
		t.Fatalf("create: %v", err)
	}
	if bot.Status != BotStatusInactive {
		t.Errorf("default status should be inactive, got %q", bot.Status)
	}

	got, err := s.Bot().Get("u1", "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "alpha" || got.StockSymbol != "AAPL" {
		t.Errorf("unexpected bot: %+v", got)
	}

	// Another user's lookup must behave exactly like a missing id
	if _, err := s.Bot().Get("u2", "b1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows for unowned bot, got %v", err)
	}
}

func TestBotListAndCount(t *testing.T) {
	s := newTestStore(t)

	for _, b := range []*Bot{
		{ID: "b1", UserID: "u1", Name: "alpha", StrategyID: "sma", Status: BotStatusActive},
		{ID: "b2", UserID: "u1", Name: "beta", StrategyID: "rsi"},
		{ID: "b3", UserID: "u2", Name: "gamma", StrategyID: "sma"},
	} {
		if err := s.Bot().Create(b); err != nil {
			t.Fatalf("create %s: %v", b.ID, err)
		}
	}

	bots, err := s.Bot().List("u1", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bots) != 2 {
		t.Errorf("expected 2 bots for u1, got %d", len(bots))
	}

	active, err := s.Bot().List("u1", BotStatusActive)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "b1" {
		t.Errorf("expected only b1 active, got %+v", active)
	}

	count, err := s.Bot().Count("u1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestBotUpdateStatusAndDelete(t *testing.T) {
	s := newTestStore(t)

	if err := s.Bot().Create(&Bot{ID: "b1", UserID: "u1", Name: "alpha", StrategyID: "sma"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Bot().UpdateStatus("u1", "b1", BotStatusActive); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := s.Bot().Get("u1", "b1")
	if got.Status != BotStatusActive {
		t.Errorf("status not updated, got %q", got.Status)
	}

	if err := s.Bot().Delete("u1", "b1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Bot().Get("u1", "b1"); !errors.Is(err, sql.ErrNoRows) {
		t.Error("deleted bot should be gone")
	}
}

func TestStrategyDefaultsSeeded(t *testing.T) {
	s := newTestStore(t)

	list, err := s.Strategy().List("u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 7 {
		t.Fatalf("expected 7 predefined strategies, got %d", len(list))
	}
	for _, st := range list {
		if !st.IsShared() {
			t.Errorf("predefined strategy %s should be shared", st.ID)
		}
	}

	sma, err := s.Strategy().Get("u1", "sma")
	if err != nil {
		t.Fatalf("get sma: %v", err)
	}
	if sma.Filename != "sma.py" {
		t.Errorf("unexpected filename %q", sma.Filename)
	}
}

func TestStrategyOwnershipAndCount(t *testing.T) {
	s := newTestStore(t)

	if err := s.Strategy().Create(&Strategy{ID: "mine", UserID: "u1", Name: "Mine", Filename: "mine.py"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Visible to the owner, invisible to others
	if _, err := s.Strategy().Get("u1", "mine"); err != nil {
		t.Errorf("owner should see own strategy: %v", err)
	}
	if _, err := s.Strategy().Get("u2", "mine"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("other users must not see it, got %v", err)
	}

	// Shared strategies do not count against the owner's plan
	count, err := s.Strategy().CountOwned("u1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected owned count 1, got %d", count)
	}

	// Shared strategies cannot be deleted through the owner-scoped path
	if err := s.Strategy().Delete("u1", "sma"); err != nil {
		t.Fatalf("delete shared: %v", err)
	}
	if _, err := s.Strategy().Get("u1", "sma"); err != nil {
		t.Error("shared strategy must survive a delete attempt")
	}
}

func TestStrategyUpdate(t *testing.T) {
	s := newTestStore(t)

	if err := s.Strategy().Create(&Strategy{ID: "mine", UserID: "u1", Name: "Mine", Filename: "mine.py"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Strategy().Update(&Strategy{ID: "mine", UserID: "u1", Name: "Renamed", Description: "v2", Filename: "mine_v2.py"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Strategy().Get("u1", "mine")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Renamed" || got.Description != "v2" || got.Filename != "mine_v2.py" {
		t.Errorf("update not persisted: %+v", got)
	}

	// The owner-scoped update is a no-op against a shared row
	if err := s.Strategy().Update(&Strategy{ID: "sma", UserID: "u1", Name: "Hijacked", Filename: "evil.py"}); err != nil {
		t.Fatalf("update shared: %v", err)
	}
	sma, _ := s.Strategy().Get("u1", "sma")
	if sma.Name == "Hijacked" {
		t.Error("shared strategy must not be editable through the owner-scoped path")
	}
}

func TestWatchlistUniquePerUser(t *testing.T) {
	s := newTestStore(t)

	if err := s.Watchlist().Create(&WatchlistEntry{ID: "w1", UserID: "u1", Ticker: "AAPL"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Watchlist().Create(&WatchlistEntry{ID: "w2", UserID: "u1", Ticker: "AAPL"}); err == nil {
		t.Error("duplicate ticker for the same user should fail")
	}
	// Same ticker for a different user is fine
	if err := s.Watchlist().Create(&WatchlistEntry{ID: "w3", UserID: "u2", Ticker: "AAPL"}); err != nil {
		t.Errorf("other user's entry should insert: %v", err)
	}

	count, _ := s.Watchlist().Count("u1")
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	if err := s.Watchlist().Delete("u1", "w1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	count, _ = s.Watchlist().Count("u1")
	if count != 0 {
		t.Errorf("expected count 0 after delete, got %d", count)
	}
}

func TestOrderFeed(t *testing.T) {
	s := newTestStore(t)

	for _, o := range []*BotOrder{
		{BotID: "b1", UserID: "u1", Ticker: "AAPL", Price: 187.5, Type: "BUY"},
		{BotID: "b1", UserID: "u1", Ticker: "AAPL", Price: 190.2, Type: "SELL"},
		{BotID: "b9", UserID: "u2", Ticker: "TSLA", Price: 240.0, Type: "BUY"},
	} {
		if err := s.Order().Insert(o); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	orders, err := s.Order().ListByUser("u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders for u1, got %d", len(orders))
	}
	if orders[0].Type != "BUY" || orders[1].Type != "SELL" {
		t.Error("orders should come back in append order")
	}
	if orders[0].Price != 187.5 {
		t.Errorf("unexpected price %v", orders[0].Price)
	}
}
