package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/pkg/config"
	"TradeQuorum/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestHTTPProviderVote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vote" {
			t.Errorf("path = %s, want /vote", r.URL.Path)
		}
		var req voteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Symbol != "BTCUSDT" {
			t.Errorf("symbol = %s", req.Symbol)
		}
		json.NewEncoder(w).Encode(voteResponse{
			Direction:  "LONG",
			Confidence: 0.8,
			Notional:   2500,
			Rationale:  "breakout above range high",
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.AgentConfig{
		ID:             "momentum-1",
		Type:           "momentum",
		URL:            srv.URL,
		Specialization: "crypto",
	}, 3*time.Second, testLogger(t))

	vote, err := p.Vote(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if vote.AgentID != "momentum-1" || vote.AgentType != "momentum" {
		t.Fatalf("identity not stamped from config: %+v", vote)
	}
	if vote.Direction != models.DirectionLong || vote.Confidence != 0.8 || vote.Notional != 2500 {
		t.Fatalf("vote body mismatch: %+v", vote)
	}
	if vote.Specialization != "crypto" {
		t.Fatalf("specialization = %s", vote.Specialization)
	}
	if vote.SubmittedAt.IsZero() {
		t.Fatal("submitted_at not stamped")
	}
}

func TestHTTPProviderRejectsMalformedVote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(voteResponse{Direction: "SIDEWAYS", Confidence: 0.8})
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.AgentConfig{ID: "x", Type: "momentum", URL: srv.URL}, 3*time.Second, testLogger(t))
	if _, err := p.Vote(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("malformed direction accepted")
	}
}

func TestHTTPProviderRejectsOutOfRangeConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(voteResponse{Direction: "LONG", Confidence: 1.8, Notional: 100})
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.AgentConfig{ID: "x", Type: "momentum", URL: srv.URL}, 3*time.Second, testLogger(t))
	if _, err := p.Vote(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("confidence outside [0,1] accepted")
	}
}

func TestHTTPProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.AgentConfig{ID: "x", Type: "momentum", URL: srv.URL}, 3*time.Second, testLogger(t))
	if _, err := p.Vote(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("5xx accepted")
	}
}

func TestHTTPProviderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.AgentConfig{ID: "x", Type: "momentum", URL: srv.URL, Timeout: 20 * time.Millisecond}, 3*time.Second, testLogger(t))
	if _, err := p.Vote(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("slow agent did not time out")
	}
}

func TestBuildProviders(t *testing.T) {
	cfg := &config.Config{}
	cfg.Engine.VoteTimeout = 3 * time.Second
	cfg.Agents = []config.AgentConfig{
		{ID: "a", Type: "momentum", URL: "http://a"},
		{ID: "b", Type: "sentiment", URL: "http://b", Specialization: "news"},
	}
	providers := BuildProviders(cfg, testLogger(t))
	if len(providers) != 2 {
		t.Fatalf("got %d providers", len(providers))
	}
	if providers[1].AgentID() != "b" || providers[1].Specialization() != "news" {
		t.Fatalf("provider identity wrong: %s/%s", providers[1].AgentID(), providers[1].Specialization())
	}
}
