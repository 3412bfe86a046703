package api

import (
	"net/http"

	models "TradeQuorum/internal/domain/models"
	domrepo "TradeQuorum/internal/domain/repository"
	"TradeQuorum/internal/domain/service"
	"TradeQuorum/internal/services/risk"
	"TradeQuorum/internal/usecase"
	xhttp "TradeQuorum/pkg/http"
	xlogger "TradeQuorum/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OpsHandler exposes the operator surface: health, recent decisions,
// breaker states and the kill switch. It never mutates anything except the
// kill switch.
type OpsHandler struct {
	logger      *xlogger.Logger
	recorder    *usecase.DecisionRecorder
	store       domrepo.DecisionStore
	breakers    *risk.BreakerRegistry
	kill        service.KillSwitch
	stream      domrepo.MarketStream
	metricsPath string
}

func NewOpsHandler(
	logger *xlogger.Logger,
	recorder *usecase.DecisionRecorder,
	store domrepo.DecisionStore,
	breakers *risk.BreakerRegistry,
	kill service.KillSwitch,
	stream domrepo.MarketStream,
	metricsPath string,
) *OpsHandler {
	return &OpsHandler{
		logger:      logger,
		recorder:    recorder,
		store:       store,
		breakers:    breakers,
		kill:        kill,
		stream:      stream,
		metricsPath: metricsPath,
	}
}

func (h *OpsHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	if h.metricsPath != "" {
		e.GET(h.metricsPath, echo.WrapHandler(promhttp.Handler()))
	}
	g := e.Group("/api")
	g.GET("/decisions", h.Decisions)
	g.GET("/breakers", h.Breakers)
	g.GET("/killswitch", h.KillSwitchStatus)
	g.POST("/killswitch", h.KillSwitchSet)
}

func (h *OpsHandler) Health(c echo.Context) error {
	status := map[string]interface{}{
		"status":         "ok",
		"feed_connected": h.stream != nil && h.stream.IsConnected(),
		"kill_switch":    h.kill.Active(),
	}
	if err := h.store.Health(c.Request().Context()); err != nil {
		status["status"] = "degraded"
		status["audit_store"] = err.Error()
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *OpsHandler) Decisions(c echo.Context) error {
	req := &models.DecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Since != "" {
		since, ok := xhttp.ParseTime(req.Since)
		if !ok {
			return xhttp.BadRequestResponse(c, map[string]string{
				"since": "must be RFC3339 or unix seconds",
			})
		}
		recs, err := h.store.Recent(c.Request().Context(), req.Symbol, since, req.Limit)
		if err != nil {
			h.logger.Error("audit store query failed", xlogger.Error(err))
			return xhttp.InternalServerErrorResponse(c)
		}
		return xhttp.SuccessResponse(c, recs)
	}
	// recent window is served from the in-memory ring; the durable store
	// only answers historical queries
	return xhttp.SuccessResponse(c, h.recorder.Recent(req.Symbol, req.Limit))
}

func (h *OpsHandler) Breakers(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.breakers.Snapshot())
}

func (h *OpsHandler) KillSwitchStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"active": h.kill.Active(),
		"reason": h.kill.Reason(),
	})
}

func (h *OpsHandler) KillSwitchSet(c echo.Context) error {
	req := &models.KillSwitchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.kill.Set(req.Active, req.Reason)
	h.logger.Warn("kill switch changed",
		xlogger.Bool("active", req.Active),
		xlogger.String("reason", req.Reason))
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"active": h.kill.Active(),
		"reason": h.kill.Reason(),
	})
}
