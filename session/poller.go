package session

import (
	"context"
	"sort"
	"strings"
	"time"

	"botdeck/logger"
)

// startLogsLoop begins polling the engine log buffer for one tracked bot.
// Caller holds the bot's mutex.
func (s *Session) startLogsLoop(botID string, st *botState) {
	// A closed session is past wg.Wait; adding to the group again would race
	// with teardown
	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	if st.cancelPoll != nil {
		st.cancelPoll()
	}
	st.cancelPoll = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Poll immediately so the view fills before the first tick
		s.pollLogs(ctx, botID, st)

		ticker := time.NewTicker(s.iv.Logs)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pollLogs(ctx, botID, st)
			}
		}
	}()
}

// stopLogsLoop cancels a bot's logs loop before its next scheduled tick.
// Caller holds the bot's mutex.
func (s *Session) stopLogsLoop(st *botState) {
	s.mu.Lock()
	cancel := st.cancelPoll
	st.cancelPoll = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// pollLogs fetches one log cycle. Failures are invisible by design: the
// previous view stays up rather than flickering empty.
func (s *Session) pollLogs(ctx context.Context, botID string, st *botState) {
	if ctx.Err() != nil {
		return
	}
	lines, err := s.gateway.FetchLogs(ctx, botID)
	if err != nil {
		logger.Debugf("Log poll for bot %s skipped: %v", botID, err)
		return
	}
	s.setEngineLogs(st, lines)
}

// ordersLoop polls the user's order feed for the session lifetime,
// independent of how many bots are tracked
func (s *Session) ordersLoop() {
	defer s.wg.Done()

	s.refreshOrders()

	ticker := time.NewTicker(s.iv.Orders)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.refreshOrders()
		}
	}
}

// refreshOrders replaces the displayed order list with the current feed,
// joining each order's bot id against the user's bot list for display. On
// failure the previous list stays untouched.
func (s *Session) refreshOrders() {
	orders, err := s.orders.ListByUser(s.userID)
	if err != nil {
		logger.Debugf("Order poll for user %s skipped: %v", s.userID, err)
		return
	}

	names := make(map[string]string)
	if bots, err := s.registry.List(s.userID, ""); err == nil {
		for _, bot := range bots {
			names[bot.ID] = bot.Name
		}
	}

	feed := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		label := names[o.BotID]
		if label == "" {
			// Unknown or deleted bot: show the raw id
			label = o.BotID
		}
		feed = append(feed, OrderView{
			BotID:    o.BotID,
			BotLabel: label,
			Ticker:   o.Ticker,
			Price:    o.Price,
			Type:     o.Type,
		})
	}

	s.mu.Lock()
	s.feed = feed
	s.mu.Unlock()
}

// reconcileLoop periodically compares the engine's reported running bots
// against the tracked set. Divergence is surfaced, never papered over: the
// tracked set is mutated only by the lifecycle controller.
func (s *Session) reconcileLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.iv.Reconcile)
	defer ticker.Stop()

	var lastReport string
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			lastReport = s.reconcile(lastReport)
		}
	}
}

// reconcile runs one comparison pass. Returns a fingerprint of the reported
// divergence so an unchanged divergence is not re-announced every tick.
func (s *Session) reconcile(lastReport string) string {
	running, err := s.gateway.FetchActiveBots(s.ctx)
	if err != nil {
		// Transient: next pass will see it
		logger.Debugf("Reconcile pass for user %s skipped: %v", s.userID, err)
		return lastReport
	}

	engineSet := make(map[string]bool, len(running))
	for _, id := range running {
		engineSet[id] = true
	}

	var divergent []string
	for _, id := range s.TrackedBotIDs() {
		if !engineSet[id] {
			divergent = append(divergent, "missing:"+id)
		}
	}
	for _, id := range running {
		if !s.Tracked(id) {
			divergent = append(divergent, "orphan:"+id)
		}
	}

	sort.Strings(divergent)
	report := strings.Join(divergent, ",")
	if report == lastReport {
		return lastReport
	}

	for _, d := range divergent {
		kind, id, _ := strings.Cut(d, ":")
		switch kind {
		case "missing":
			if st := s.lookup(id); st != nil {
				s.appendEvent(st, "⚠️ Engine no longer reports bot %s as running", id)
			}
			logger.Warnf("⚠️  Tracked bot %s not running engine-side (user %s)", id, s.userID)
		case "orphan":
			if st := s.lookup(id); st != nil {
				s.appendEvent(st, "⚠️ Engine reports bot %s running but it is not tracked", id)
			} else {
				s.appendAlert("⚠️ Engine reports unknown bot %s as running", id)
			}
			logger.Warnf("⚠️  Untracked bot %s running engine-side (user %s)", id, s.userID)
		}
	}
	return report
}
