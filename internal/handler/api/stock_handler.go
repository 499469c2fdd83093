package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/usecase"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"
)

// StockHandler manages the monitored symbol lists.
type StockHandler struct {
	logger *logger.Logger
	board  *usecase.SignalBoard
}

func NewStockHandler(l *logger.Logger, board *usecase.SignalBoard) *StockHandler {
	return &StockHandler{logger: l, board: board}
}

func (h *StockHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/stocks")
	g.GET("/monitored", h.Monitored)
	g.POST("/add", h.Add)
	g.DELETE("/remove", h.Remove)
}

func (h *StockHandler) Monitored(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.board.Monitored())
}

func (h *StockHandler) Add(c echo.Context) error {
	req := &models.AddStockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	region, added, err := h.board.AddStock(c.Request().Context(), req.Symbol, models.Region(req.Region))
	if err != nil {
		return fail(c, h.logger, "stocks.add", err)
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	sym, _ := usecase.NormalizeSymbol(req.Symbol)
	return xhttp.DataResponse(c, status, models.StockChangeResponse{
		Symbol:    sym,
		Region:    region,
		Changed:   added,
		Monitored: h.board.Monitored(),
	})
}

func (h *StockHandler) Remove(c echo.Context) error {
	req := &models.RemoveStockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	region := models.Region(req.Region)
	if err := h.board.RemoveStock(c.Request().Context(), req.Symbol, region); err != nil {
		return fail(c, h.logger, "stocks.remove", err)
	}
	sym, _ := usecase.NormalizeSymbol(req.Symbol)
	if region == "" {
		region = models.RegionForSymbol(sym)
	}
	return xhttp.SuccessResponse(c, models.StockChangeResponse{
		Symbol:    sym,
		Region:    region,
		Changed:   true,
		Monitored: h.board.Monitored(),
	})
}
