package api

import (
	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"
)

// StrategyHandler lists, switches and compares strategies.
type StrategyHandler struct {
	logger    *logger.Logger
	registry  *usecase.StrategyRegistry
	portfolio *usecase.PortfolioManager
	limiter   *ratelimit.Limiter
}

func NewStrategyHandler(l *logger.Logger, registry *usecase.StrategyRegistry, portfolio *usecase.PortfolioManager, limiter *ratelimit.Limiter) *StrategyHandler {
	return &StrategyHandler{logger: l, registry: registry, portfolio: portfolio, limiter: limiter}
}

func (h *StrategyHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/strategies", h.List)
	g.POST("/strategy/switch", h.Switch)
	g.GET("/strategy/compare", h.Compare, limited(h.limiter)...)
}

func (h *StrategyHandler) List(c echo.Context) error {
	res := models.StrategiesResponse{Strategies: h.registry.List()}
	if active, err := h.registry.ActiveDescriptor(); err == nil {
		res.Active = active.ID
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *StrategyHandler) Switch(c echo.Context) error {
	req := &models.SwitchStrategyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var prev string
	if cur, err := h.registry.ActiveDescriptor(); err == nil {
		prev = cur.ID
	}
	next, err := h.registry.Switch(req.Strategy)
	if err != nil {
		return fail(c, h.logger, "strategy.switch", err)
	}
	h.logger.Info("strategy switched", logger.String("from", prev), logger.String("to", next.ID))
	return xhttp.SuccessResponse(c, models.SwitchStrategyResponse{Previous: prev, Active: next})
}

func (h *StrategyHandler) Compare(c echo.Context) error {
	req := &models.CompareRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.portfolio.Compare(c.Request().Context(), req.TimeHorizon)
	if err != nil {
		return fail(c, h.logger, "strategy.compare", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// limited returns the rate limit middleware, or nothing when l is nil.
func limited(l *ratelimit.Limiter) []echo.MiddlewareFunc {
	if l == nil {
		return nil
	}
	return []echo.MiddlewareFunc{l.Middleware()}
}
