package agents

import (
	"context"
	"fmt"
	"time"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/domain/service"
	"TradeQuorum/pkg/config"
	xhttp "TradeQuorum/pkg/http"
	"TradeQuorum/pkg/logger"
)

// voteRequest is the payload sent to an agent's /vote endpoint.
type voteRequest struct {
	Symbol string `json:"symbol"`
}

// voteResponse is what an agent answers with. Identity fields are stamped
// from local config, never trusted from the wire.
type voteResponse struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Notional   float64 `json:"notional"`
	Rationale  string  `json:"rationale"`
}

// HTTPProvider queries one remote analysis agent over HTTP. One instance
// per configured agent; safe for concurrent cycles.
type HTTPProvider struct {
	id             string
	agentType      string
	specialization string
	baseURL        string
	client         *xhttp.Client
	log            *logger.Logger
}

// NewHTTPProvider builds a provider for one agent entry. The per-agent
// timeout falls back to the engine-wide vote timeout when unset.
func NewHTTPProvider(agent config.AgentConfig, fallbackTimeout time.Duration, log *logger.Logger) *HTTPProvider {
	timeout := agent.Timeout
	if timeout <= 0 {
		timeout = fallbackTimeout
	}
	return &HTTPProvider{
		id:             agent.ID,
		agentType:      agent.Type,
		specialization: agent.Specialization,
		baseURL:        agent.URL,
		client:         xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:            log.With("agent_provider"),
	}
}

func (p *HTTPProvider) AgentID() string        { return p.id }
func (p *HTTPProvider) Specialization() string { return p.specialization }

// Vote asks the agent for its opinion on symbol. The returned vote carries
// the locally configured identity and the receipt time; a malformed answer
// is an error, not a HOLD.
func (p *HTTPProvider) Vote(ctx context.Context, symbol string) (models.AgentVote, error) {
	var resp voteResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    p.baseURL + "/vote",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: voteRequest{Symbol: symbol},
	}, &resp)
	if err != nil {
		return models.AgentVote{}, fmt.Errorf("agent %s vote: %w", p.id, err)
	}

	vote := models.AgentVote{
		AgentID:        p.id,
		AgentType:      p.agentType,
		Symbol:         symbol,
		Direction:      models.Direction(resp.Direction),
		Confidence:     resp.Confidence,
		Notional:       resp.Notional,
		Rationale:      resp.Rationale,
		Specialization: p.specialization,
		SubmittedAt:    time.Now().UTC(),
	}
	if err := vote.Validate(); err != nil {
		return models.AgentVote{}, fmt.Errorf("agent %s returned malformed vote: %w", p.id, err)
	}
	return vote, nil
}

var _ service.VoteProvider = (*HTTPProvider)(nil)

// BuildProviders constructs a provider per configured agent.
func BuildProviders(cfg *config.Config, log *logger.Logger) []service.VoteProvider {
	out := make([]service.VoteProvider, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		out = append(out, NewHTTPProvider(a, cfg.Engine.VoteTimeout, log))
	}
	return out
}
