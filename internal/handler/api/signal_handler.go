package api

import (
	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"
)

// SignalHandler serves per-symbol signals, the monitored board, consensus and charts.
type SignalHandler struct {
	logger  *logger.Logger
	signals *usecase.SignalService
	board   *usecase.SignalBoard
	limiter *ratelimit.Limiter
}

func NewSignalHandler(l *logger.Logger, signals *usecase.SignalService, board *usecase.SignalBoard, limiter *ratelimit.Limiter) *SignalHandler {
	return &SignalHandler{logger: l, signals: signals, board: board, limiter: limiter}
}

func (h *SignalHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.All)
	g.GET("/signals/multi/:symbol", h.Consensus, limited(h.limiter)...)
	g.GET("/signals/:symbol", h.Symbol)
	g.GET("/chart-data/:symbol", h.Chart)
	g.GET("/market/context", h.MarketContext)
}

// All evaluates every monitored symbol.
func (h *SignalHandler) All(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.board.SignalsForAll(c.Request().Context(), req.Strategy)
	if err != nil {
		return fail(c, h.logger, "signals.all", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalHandler) Symbol(c echo.Context) error {
	req := &models.SymbolSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.signals.SignalFor(c.Request().Context(), req.Symbol, req.Strategy)
	if err != nil {
		return fail(c, h.logger, "signals.symbol", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalHandler) Consensus(c echo.Context) error {
	req := &models.ConsensusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.signals.ConsensusFor(c.Request().Context(), req.Symbol)
	if err != nil {
		return fail(c, h.logger, "signals.consensus", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalHandler) Chart(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.signals.ChartData(c.Request().Context(), req.Symbol, repository.Period(req.Period))
	if err != nil {
		return fail(c, h.logger, "chart", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalHandler) MarketContext(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.signals.MarketContext(c.Request().Context()))
}
