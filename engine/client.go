// Package engine is the HTTP gateway to the remote automation engine. It is
// the only place in the codebase that talks to the engine; every failure is
// normalized to *UnavailableError so callers can decide whether a failed call
// is fatal (activation) or recoverable (one poll cycle).
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"botdeck/logger"
)

// Client remote engine gateway
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an engine gateway. timeout bounds every call; zero means
// the 5s default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// UnavailableError the engine could not be reached or rejected the call
type UnavailableError struct {
	Op    string // start-bot / stop-bot / fetch-logs / running-bots
	BotID string // empty for non bot-scoped operations
	Err   error

	transient bool // transport-level failure, eligible for one retry
}

func (e *UnavailableError) Error() string {
	if e.BotID != "" {
		return fmt.Sprintf("engine unavailable: %s (bot %s): %v", e.Op, e.BotID, e.Err)
	}
	return fmt.Sprintf("engine unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is an engine availability failure
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

type startBotRequest struct {
	BotID       string `json:"bot_id"`
	StockSymbol string `json:"stock_symbol"`
	UserID      string `json:"user_id"`
}

type stopBotRequest struct {
	BotID string `json:"bot_id"`
}

type backtestRequest struct {
	StrategyID  string `json:"strategy_id"`
	StockSymbol string `json:"stock_symbol"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type logsResponse struct {
	Logs []string `json:"logs"`
}

type runningBotsResponse struct {
	BotIDs []string `json:"bot_ids"`
}

// StartBot tells the engine to begin running a bot. Not assumed idempotent;
// the lifecycle controller guards against duplicate starts.
func (c *Client) StartBot(ctx context.Context, botID, symbol, userID string) error {
	body := startBotRequest{BotID: botID, StockSymbol: symbol, UserID: userID}
	_, err := c.do(ctx, "start-bot", botID, http.MethodPost, "/start-bot", body)
	return err
}

// StopBot tells the engine to halt a bot. Stopping an already-stopped bot is
// acknowledged as a no-op by the engine.
func (c *Client) StopBot(ctx context.Context, botID string) error {
	_, err := c.do(ctx, "stop-bot", botID, http.MethodPost, "/stop-bot", stopBotRequest{BotID: botID})
	return err
}

// Backtest runs a strategy against historical data on the engine and returns
// its result document untouched; the control plane does not interpret it.
func (c *Client) Backtest(ctx context.Context, strategyID, symbol, startDate, endDate string) (json.RawMessage, error) {
	body := backtestRequest{
		StrategyID:  strategyID,
		StockSymbol: symbol,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	data, err := c.do(ctx, "backtest", "", http.MethodPost, "/backtest", body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// FetchLogs returns the engine's current log buffer for a bot,
// most-recent-first. The buffer is replaced wholesale by the caller; no size
// assumption is made here.
func (c *Client) FetchLogs(ctx context.Context, botID string) ([]string, error) {
	path := "/logs?bot_id=" + url.QueryEscape(botID)
	data, err := c.do(ctx, "fetch-logs", botID, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp logsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &UnavailableError{Op: "fetch-logs", BotID: botID, Err: fmt.Errorf("bad response body: %w", err)}
	}
	return resp.Logs, nil
}

// FetchActiveBots returns the ids the engine reports as currently running,
// for reconciliation against the session's tracked set.
func (c *Client) FetchActiveBots(ctx context.Context) ([]string, error) {
	data, err := c.do(ctx, "running-bots", "", http.MethodGet, "/running-bots", nil)
	if err != nil {
		return nil, err
	}
	var resp runningBotsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &UnavailableError{Op: "running-bots", Err: fmt.Errorf("bad response body: %w", err)}
	}
	return resp.BotIDs, nil
}

// do issues one request with at most one retry on transport failure.
// Application errors (non-2xx) are never retried.
func (c *Client) do(ctx context.Context, op, botID, method, path string, body interface{}) ([]byte, error) {
	data, err := c.once(ctx, method, path, body)
	if err == nil {
		return data, nil
	}

	var ue *UnavailableError
	if errors.As(err, &ue) && ue.transient && ctx.Err() == nil {
		logger.Warnf("⚠️  Engine %s failed (%v), retrying once", op, ue.Err)
		if data, retryErr := c.once(ctx, method, path, body); retryErr == nil {
			return data, nil
		}
	}

	if errors.As(err, &ue) {
		ue.Op = op
		ue.BotID = botID
		return nil, ue
	}
	return nil, &UnavailableError{Op: op, BotID: botID, Err: err}
}

// once issues a single HTTP request and reads the body
func (c *Client) once(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, &UnavailableError{Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failure (connection refused, timeout): retryable
		return nil, &UnavailableError{Err: err, transient: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Err: err, transient: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Application error: the engine answered, do not retry
		return nil, &UnavailableError{Err: fmt.Errorf("engine returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
	}
	return data, nil
}
