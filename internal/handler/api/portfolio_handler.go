package api

import (
	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"
)

// PortfolioHandler exposes holdings, valuation and rebalancing.
type PortfolioHandler struct {
	logger    *logger.Logger
	portfolio *usecase.PortfolioManager
}

func NewPortfolioHandler(l *logger.Logger, portfolio *usecase.PortfolioManager) *PortfolioHandler {
	return &PortfolioHandler{logger: l, portfolio: portfolio}
}

func (h *PortfolioHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/portfolio", h.Get)
	g.POST("/portfolio/holdings", h.AddHolding)
	g.DELETE("/portfolio/holdings/:symbol", h.RemoveHolding)
	g.GET("/rebalance", h.Rebalance)
}

// Get values the holdings and projects them under the requested strategy.
func (h *PortfolioHandler) Get(c echo.Context) error {
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	analysis, expected, err := h.portfolio.Overview(c.Request().Context(), req.Strategy)
	if err != nil {
		return fail(c, h.logger, "portfolio.get", err)
	}
	return xhttp.SuccessResponse(c, models.PortfolioResponse{
		Analysis:        analysis,
		ExpectedReturns: expected,
		Targets:         h.portfolio.Targets(),
	})
}

func (h *PortfolioHandler) AddHolding(c echo.Context) error {
	req := &models.AddHoldingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.portfolio.Add(c.Request().Context(), models.Holding{
		Symbol:    req.Symbol,
		Quantity:  req.Quantity,
		CostBasis: req.CostBasis,
		Region:    models.Region(req.Region),
	})
	if err != nil {
		return fail(c, h.logger, "portfolio.add", err)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *PortfolioHandler) RemoveHolding(c echo.Context) error {
	req := &models.RemoveHoldingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.portfolio.Remove(c.Request().Context(), req.Symbol); err != nil {
		return fail(c, h.logger, "portfolio.remove", err)
	}
	return xhttp.SuccessResponse(c, h.portfolio.Holdings())
}

func (h *PortfolioHandler) Rebalance(c echo.Context) error {
	suggestions, analysis := h.portfolio.RebalanceSuggestions(c.Request().Context())
	if suggestions == nil {
		suggestions = []models.RebalanceSuggestion{}
	}
	return xhttp.SuccessResponse(c, models.RebalanceResponse{
		Suggestions: suggestions,
		TotalValue:  analysis.TotalValue,
		Warnings:    analysis.Warnings,
	})
}
