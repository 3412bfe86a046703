package portfolio

import (
	"context"
	"fmt"

	"TradeQuorum/internal/domain/models"
	"TradeQuorum/internal/domain/service"
	"TradeQuorum/pkg/config"
	xhttp "TradeQuorum/pkg/http"
)

// HTTPProvider fetches the open-position snapshot from the execution
// collaborator. The snapshot is fetched fresh every cycle; sizing against a
// stale book is worse than sizing against none.
type HTTPProvider struct {
	url    string
	client *xhttp.Client
}

func NewHTTPProvider(cfg *config.Config) *HTTPProvider {
	return &HTTPProvider{
		url:    cfg.Portfolio.URL,
		client: xhttp.NewClient(xhttp.WithTimeout(cfg.Portfolio.Timeout)),
	}
}

type wirePosition struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	Notional     float64 `json:"notional"`
	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
}

type wireSnapshot struct {
	TotalCapital     float64        `json:"total_capital"`
	Positions        []wirePosition `json:"positions"`
	DailyRealizedPnL float64        `json:"daily_realized_pnl"`
}

func (p *HTTPProvider) Snapshot(ctx context.Context) (models.PortfolioSnapshot, error) {
	var resp wireSnapshot
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.url,
	}, &resp)
	if err != nil {
		return models.PortfolioSnapshot{}, fmt.Errorf("portfolio snapshot: %w", err)
	}

	snap := models.PortfolioSnapshot{
		TotalCapital:     resp.TotalCapital,
		Positions:        make(map[string]models.Position, len(resp.Positions)),
		DailyRealizedPnL: resp.DailyRealizedPnL,
	}
	for _, wp := range resp.Positions {
		snap.Positions[wp.Symbol] = models.Position{
			Symbol:       wp.Symbol,
			Side:         models.Direction(wp.Side),
			Notional:     wp.Notional,
			EntryPrice:   wp.EntryPrice,
			CurrentPrice: wp.CurrentPrice,
		}
	}
	return snap, nil
}

var _ service.PortfolioProvider = (*HTTPProvider)(nil)

// StaticProvider serves a fixed-capital, empty-book snapshot for deployments
// where the engine runs standalone (paper evaluation, integration tests).
type StaticProvider struct {
	capital float64
}

func NewStaticProvider(capital float64) *StaticProvider {
	return &StaticProvider{capital: capital}
}

func (p *StaticProvider) Snapshot(context.Context) (models.PortfolioSnapshot, error) {
	return models.PortfolioSnapshot{
		TotalCapital: p.capital,
		Positions:    map[string]models.Position{},
	}, nil
}

var _ service.PortfolioProvider = (*StaticProvider)(nil)

// New picks the HTTP provider when an endpoint is configured, the static
// fallback otherwise.
func New(cfg *config.Config) service.PortfolioProvider {
	if cfg.Portfolio.URL != "" {
		return NewHTTPProvider(cfg)
	}
	return NewStaticProvider(cfg.Portfolio.TotalCapital)
}
