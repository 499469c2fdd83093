package api

import (
	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"
)

// RiskHandler serves stop-loss and take-profit plans.
type RiskHandler struct {
	logger  *logger.Logger
	risk    *usecase.RiskService
	board   *usecase.SignalBoard
	limiter *ratelimit.Limiter
}

func NewRiskHandler(l *logger.Logger, risk *usecase.RiskService, board *usecase.SignalBoard, limiter *ratelimit.Limiter) *RiskHandler {
	return &RiskHandler{logger: l, risk: risk, board: board, limiter: limiter}
}

func (h *RiskHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/risk-management")
	g.GET("/batch", h.Batch, limited(h.limiter)...)
	g.GET("/:symbol", h.Symbol)
}

func (h *RiskHandler) Symbol(c echo.Context) error {
	req := &models.RiskRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.risk.PlansFor(c.Request().Context(), req.Symbol, models.RiskLevel(req.RiskLevel), req.Strategy)
	if err != nil {
		return fail(c, h.logger, "risk.symbol", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Batch builds plans for every monitored symbol.
func (h *RiskHandler) Batch(c echo.Context) error {
	req := &models.RiskBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.risk.PlansForAll(c.Request().Context(), h.board.Monitored(), models.RiskLevel(req.RiskLevel), req.Strategy)
	if err != nil {
		return fail(c, h.logger, "risk.batch", err)
	}
	return xhttp.SuccessResponse(c, res)
}
