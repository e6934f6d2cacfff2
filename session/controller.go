package session

import (
	"errors"
	"fmt"

	"botdeck/engine"
	"botdeck/logger"
)

// ErrNotFound the bot id does not resolve or is owned by another user
var ErrNotFound = errors.New("bot not found")

// Toggle routes to Activate or Deactivate based on current tracked-set
// membership. Toggles for the same bot id are serialized by the per-bot
// mutex: a second toggle waits for the in-flight call to settle, so two
// immediate toggles always land in the state the second one implies.
func (s *Session) Toggle(botID string) error {
	st := s.state(botID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if s.statusOf(st) == statusActive {
		return s.deactivateLocked(botID, st)
	}
	return s.activateLocked(botID, st)
}

// Activate validates the bot against the registry, asks the engine to start
// it and, on success, adds it to the tracked set and starts its logs loop.
// On engine failure the bot stays untracked and nothing is persisted.
func (s *Session) Activate(botID string) error {
	st := s.state(botID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if s.statusOf(st) == statusActive {
		// Duplicate starts are not assumed safe engine-side
		return nil
	}
	return s.activateLocked(botID, st)
}

// Deactivate asks the engine to stop the bot and removes it from the tracked
// set regardless of the gateway outcome. The control surface stays available
// even when the engine is not; a failed stop is surfaced as a lifecycle
// event, never as a blocked operator.
func (s *Session) Deactivate(botID string) error {
	st := s.state(botID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return s.deactivateLocked(botID, st)
}

func (s *Session) activateLocked(botID string, st *botState) error {
	bot, err := s.registry.Get(s.userID, botID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, botID)
	}

	s.setStatus(st, statusActivating)
	st.name = bot.Name
	s.appendEvent(st, "🚀 Bot %s starting...", bot.Name)

	if err := s.gateway.StartBot(s.ctx, botID, bot.StockSymbol, s.userID); err != nil {
		s.setStatus(st, statusInactive)
		s.appendEvent(st, "❌ Bot %s failed to start: %v", bot.Name, err)
		logger.Warnf("⚠️  Activation failed for bot %s: %v", botID, err)
		return err
	}

	s.setStatus(st, statusActive)
	s.appendEvent(st, "✅ Bot %s activated", bot.Name)
	s.startLogsLoop(botID, st)
	logger.Infof("▶️  Bot %s (%s) activated by user %s", botID, bot.Name, s.userID)
	return nil
}

func (s *Session) deactivateLocked(botID string, st *botState) error {
	label := st.name
	if label == "" {
		label = botID
	}

	s.setStatus(st, statusDeactivating)
	s.appendEvent(st, "🛑 Bot %s stopping...", label)

	stopErr := s.gateway.StopBot(s.ctx, botID)

	// The bot leaves the tracked set whatever the engine said: stopping is
	// always honored client-side and its logs loop must not tick again.
	s.stopLogsLoop(st)
	s.setStatus(st, statusInactive)

	if stopErr != nil {
		s.appendEvent(st, "⚠️ Bot %s stop not confirmed by engine: %v", label, stopErr)
		logger.Warnf("⚠️  Stop call failed for bot %s (untracked anyway): %v", botID, stopErr)
		if !engine.IsUnavailable(stopErr) {
			return stopErr
		}
		return nil
	}

	s.appendEvent(st, "✅ Bot %s stopped", label)
	logger.Infof("⏹  Bot %s deactivated by user %s", botID, s.userID)
	return nil
}

// statusOf reads a bot's status under the session lock
func (s *Session) statusOf(st *botState) botStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return st.status
}

// setStatus writes a bot's status under the session lock
func (s *Session) setStatus(st *botState, status botStatus) {
	s.mu.Lock()
	st.status = status
	s.mu.Unlock()
}
