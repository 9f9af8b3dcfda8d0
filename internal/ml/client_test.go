package ml

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateParsesOracleResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/evaluate_setup", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{
			"ml_score": 82.5,
			"blacklisted": false,
			"reason": "setup resembles winners",
			"parameter_adjustments": {"min_confidence": 60, "min_rr": 1.5}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 2*time.Second)
	result := client.Evaluate(context.Background(), EvaluateRequest{
		Instrument: "EUR/USD",
		Timeframe:  "M5",
		StrategyID: "trend_following_simple",
	})

	assert.Equal(t, 82.5, result.Score)
	assert.False(t, result.Blacklisted)
	require.NotNil(t, result.Adjustments.MinConfidence)
	assert.Equal(t, 60.0, *result.Adjustments.MinConfidence)
	require.NotNil(t, result.Adjustments.MinRR)
	assert.Equal(t, 1.5, *result.Adjustments.MinRR)
}

func TestEvaluateBlacklist(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ml_score": 10, "blacklisted": true, "reason": "losing setup"}`))
	}))
	defer server.Close()

	result := NewClient(server.URL, 2*time.Second).Evaluate(context.Background(), EvaluateRequest{})
	assert.True(t, result.Blacklisted)
	assert.Equal(t, "losing setup", result.Reason)
}

func TestEvaluateFailsOpenOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result := NewClient(server.URL, 100*time.Millisecond).Evaluate(context.Background(), EvaluateRequest{})
	assert.Equal(t, Neutral(), result)
}

func TestEvaluateFailsOpenOnGarbageResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	result := NewClient(server.URL, 2*time.Second).Evaluate(context.Background(), EvaluateRequest{})
	assert.Equal(t, Neutral(), result)
}

func TestEvaluateDisabledWithoutBaseURL(t *testing.T) {
	client := NewClient("", 2*time.Second)
	assert.False(t, client.Enabled())
	assert.Equal(t, Neutral(), client.Evaluate(context.Background(), EvaluateRequest{}))
}

func TestReloadDisabledWithoutBaseURL(t *testing.T) {
	_, err := NewClient("", time.Second).Reload(context.Background())
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reload", r.URL.Path)
		w.Write([]byte(`{"message": "model reloaded", "mode": "ml"}`))
	}))
	defer server.Close()

	msg, err := NewClient(server.URL, 2*time.Second).Reload(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg, "model reloaded")
	assert.Contains(t, msg, "ml")
}
