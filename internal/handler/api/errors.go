package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"SignalDesk/internal/domain/models"
	xhttp "SignalDesk/pkg/http"
	"SignalDesk/pkg/logger"
)

// fail logs err and writes it as an application error.
func fail(c echo.Context, l *logger.Logger, op string, err error) error {
	appErr := toAppError(err)
	fields := []logger.Field{
		logger.String("op", op),
		logger.Int("status", appErr.Status),
		logger.Error(err),
	}
	if appErr.Status >= http.StatusInternalServerError {
		l.Error("handler error", fields...)
	} else {
		l.Warn("handler rejected request", fields...)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps domain errors onto HTTP-aware application errors.
func toAppError(err error) *xhttp.AppError {
	var (
		appErr   *xhttp.AppError
		strategy *models.UnknownStrategyError
		symbol   *models.UnknownSymbolError
		fetch    *models.DataFetchError
		price    *models.MissingPriceError
		short    *models.InsufficientDataError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &strategy):
		return xhttp.NewAppError("ERR_UNKNOWN_STRATEGY", "strategy", err.Error(), http.StatusNotFound).
			WithParam("strategy", strategy.ID).WithError(err)
	case errors.As(err, &symbol):
		return xhttp.NewAppError("ERR_UNKNOWN_SYMBOL", "symbol", err.Error(), http.StatusNotFound).
			WithParam("symbol", symbol.Symbol).WithError(err)
	case errors.As(err, &fetch):
		return xhttp.BadGatewayError(err.Error()).WithParam("symbol", fetch.Symbol).WithError(err)
	case errors.As(err, &price):
		return xhttp.BadGatewayError(err.Error()).WithParam("symbol", price.Symbol).WithError(err)
	case errors.As(err, &short):
		return xhttp.BadRequestError(err.Error()).WithParam("need", short.Need).WithParam("have", short.Have).WithError(err)
	case errors.Is(err, models.ErrNoActiveStrategy):
		return xhttp.InternalError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
