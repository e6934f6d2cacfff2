package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartBotSendsPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/start-bot", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.StartBot(context.Background(), "b1", "AAPL", "u1")
	require.NoError(t, err)

	assert.Equal(t, "b1", got["bot_id"])
	assert.Equal(t, "AAPL", got["stock_symbol"])
	assert.Equal(t, "u1", got["user_id"])
}

func TestFetchLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "b1", r.URL.Query().Get("bot_id"))
		json.NewEncoder(w).Encode(map[string][]string{"logs": {"newest", "older"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	logs, err := c.FetchLogs(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"newest", "older"}, logs)
}

func TestBacktest(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/backtest", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"total_return":12.5,"trades":42}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	result, err := c.Backtest(context.Background(), "sma", "AAPL", "2024-01-01", "2024-06-30")
	require.NoError(t, err)

	assert.Equal(t, "sma", got["strategy_id"])
	assert.Equal(t, "AAPL", got["stock_symbol"])
	assert.Equal(t, "2024-01-01", got["start_date"])
	assert.Equal(t, "2024-06-30", got["end_date"])

	// The result document passes through untouched
	assert.JSONEq(t, `{"total_return":12.5,"trades":42}`, string(result))
}

func TestRetryOnceOnTransportFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Abort the connection mid-response: transport-level failure
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.StopBot(context.Background(), "b1")
	require.NoError(t, err, "second attempt should have succeeded")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNoRetryOnApplicationError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.StartBot(context.Background(), "b1", "AAPL", "u1")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "non-2xx must not be retried")

	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "start-bot", ue.Op)
	assert.Equal(t, "b1", ue.BotID)
}

func TestUnreachableEngine(t *testing.T) {
	// Reserve a port and close it so the connection is refused
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, 500*time.Millisecond)
	err := c.StopBot(context.Background(), "b1")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestFetchActiveBots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/running-bots", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]string{"bot_ids": {"b1", "b2"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ids, err := c.FetchActiveBots(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids)
}
