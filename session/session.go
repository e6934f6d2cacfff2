// Package session holds the per-user orchestration state for the bot
// execution dashboard: which bots the operator has toggled on, the displayed
// log view for each, and the merged order feed. All remote-engine side
// effects route through here.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"botdeck/logger"
	"botdeck/store"
)

// Gateway is the slice of the remote engine client the session needs
type Gateway interface {
	StartBot(ctx context.Context, botID, symbol, userID string) error
	StopBot(ctx context.Context, botID string) error
	FetchLogs(ctx context.Context, botID string) ([]string, error)
	FetchActiveBots(ctx context.Context) ([]string, error)
}

// Registry reads bot records from the persistent store
type Registry interface {
	Get(userID, botID string) (*store.Bot, error)
	List(userID, status string) ([]*store.Bot, error)
}

// OrderFeed reads the user's executed-order feed
type OrderFeed interface {
	ListByUser(userID string) ([]*store.BotOrder, error)
}

// Intervals polling cadences for one session
type Intervals struct {
	Logs      time.Duration
	Orders    time.Duration
	Reconcile time.Duration
}

// bot lifecycle status as observed by the controller. Activating and
// Deactivating exist only while the per-bot mutex is held around the in-flight
// gateway call; they are never persisted.
type botStatus int

const (
	statusInactive botStatus = iota
	statusActivating
	statusActive
	statusDeactivating
)

// botState per-bot session record: status, log buffers and the cancellation
// handle for the bot's logs loop. mu serializes lifecycle transitions for the
// same bot id; the events/engineLogs fields are additionally guarded by the
// session lock for snapshot reads.
type botState struct {
	mu sync.Mutex

	name       string
	status     botStatus
	events     []string // lifecycle events, most-recent-first, session-lived
	engineLogs []string // last successful engine log fetch, replaced wholesale
	cancelPoll context.CancelFunc
}

// Session one operator's live view over their bots
type Session struct {
	userID   string
	gateway  Gateway
	registry Registry
	orders   OrderFeed
	iv       Intervals

	mu     sync.RWMutex
	bots   map[string]*botState
	feed   []OrderView
	alerts []string // session-level reconciliation notices

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// OrderView one row of the displayed order table. BotLabel is the bot's name
// when the order's bot id resolves in the user's bot list, otherwise the raw
// id (unknown or deleted bot).
type OrderView struct {
	BotID    string  `json:"bot_id"`
	BotLabel string  `json:"bot"`
	Ticker   string  `json:"ticker"`
	Price    float64 `json:"price"`
	Type     string  `json:"type"`
}

// Snapshot read-only view handed to the presentation layer
type Snapshot struct {
	TrackedBotIDs []string            `json:"tracked_bot_ids"`
	Logs          map[string][]string `json:"logs"`
	Orders        []OrderView         `json:"orders"`
	Alerts        []string            `json:"alerts"`
}

// New creates a session and starts its order feed and reconciliation loops.
// Per-bot logs loops start as bots are activated.
func New(userID string, gw Gateway, registry Registry, orders OrderFeed, iv Intervals) *Session {
	if iv.Logs <= 0 {
		iv.Logs = 5 * time.Second
	}
	if iv.Orders <= 0 {
		iv.Orders = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		userID:   userID,
		gateway:  gw,
		registry: registry,
		orders:   orders,
		iv:       iv,
		bots:     make(map[string]*botState),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.wg.Add(1)
	go s.ordersLoop()
	if iv.Reconcile > 0 {
		s.wg.Add(1)
		go s.reconcileLoop()
	}

	logger.Infof("🟢 Session opened for user %s", userID)
	return s
}

// UserID returns the owning user id
func (s *Session) UserID() string {
	return s.userID
}

// state returns the per-bot record, creating it on first touch
func (s *Session) state(botID string) *botState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.bots[botID]
	if !ok {
		st = &botState{}
		s.bots[botID] = st
	}
	return st
}

// lookup returns the per-bot record without creating it
func (s *Session) lookup(botID string) *botState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bots[botID]
}

// Tracked reports whether the operator's last completed toggle for the bot
// was an activation
func (s *Session) Tracked(botID string) bool {
	st := s.lookup(botID)
	if st == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return st.status == statusActive
}

// TrackedBotIDs returns the tracked set
func (s *Session) TrackedBotIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.bots))
	for id, st := range s.bots {
		if st.status == statusActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// Logs returns the displayed log view for one bot: lifecycle events first,
// then the last fetched engine buffer, both most-recent-first
func (s *Session) Logs(botID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.bots[botID]
	if st == nil {
		return nil
	}
	merged := make([]string, 0, len(st.events)+len(st.engineLogs))
	merged = append(merged, st.events...)
	merged = append(merged, st.engineLogs...)
	return merged
}

// Snapshot captures the tracked set, per-bot logs and the order feed
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TrackedBotIDs: make([]string, 0, len(s.bots)),
		Logs:          make(map[string][]string, len(s.bots)),
		Orders:        append([]OrderView(nil), s.feed...),
		Alerts:        append([]string(nil), s.alerts...),
	}
	for id, st := range s.bots {
		if st.status == statusActive {
			snap.TrackedBotIDs = append(snap.TrackedBotIDs, id)
		}
		merged := make([]string, 0, len(st.events)+len(st.engineLogs))
		merged = append(merged, st.events...)
		merged = append(merged, st.engineLogs...)
		snap.Logs[id] = merged
	}
	return snap
}

// appendEvent prepends a timestamped lifecycle event to the bot's log view
func (s *Session) appendEvent(st *botState, format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
	s.mu.Lock()
	st.events = append([]string{line}, st.events...)
	s.mu.Unlock()
}

// appendAlert records a session-level reconciliation notice
func (s *Session) appendAlert(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
	s.mu.Lock()
	s.alerts = append([]string{line}, s.alerts...)
	s.mu.Unlock()
}

// setEngineLogs replaces a bot's engine log view after a successful poll
func (s *Session) setEngineLogs(st *botState, lines []string) {
	s.mu.Lock()
	st.engineLogs = lines
	s.mu.Unlock()
}

// Close tears the session down: every polling loop is cancelled and awaited.
// In-flight lifecycle calls settle on their own goroutines; their results are
// discarded since the state table dies with the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		logger.Infof("🔴 Session closed for user %s", s.userID)
	})
}
