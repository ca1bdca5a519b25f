package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/anonto42/nano-midea/notifier/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

func success(c echo.Context, status int, data any) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// pagination reads page/limit query params with the same bounds on every list endpoint.
func pagination(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit
}

func pageMeta(page, limit int, total int64) echo.Map {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return echo.Map{
		"currentPage":     page,
		"totalPages":      totalPages,
		"totalItems":      total,
		"itemsPerPage":    limit,
		"hasNextPage":     page < totalPages,
		"hasPreviousPage": page > 1,
	}
}

// bindAndValidate binds the request body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// HTTPErrorHandler renders every error as {"success":false,"error":{"code","message"}}.
func HTTPErrorHandler(logg *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, status, message := classify(err)
		if status >= http.StatusInternalServerError {
			logg.Error(c.Request().Context(), "request failed", err)
		}

		body := echo.Map{
			"success": false,
			"error":   echo.Map{"code": code, "message": message},
		}
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logg.Warn(c.Request().Context(), "writing error response", writeErr)
		}
	}
}

func classify(err error) (pkgerrors.Code, int, string) {
	if e := pkgerrors.As(err); e != nil {
		md := pkgerrors.MetadataFor(e.Code())
		message := e.Message()
		if md.HTTPStatus >= http.StatusInternalServerError || message == "" {
			message = md.PublicMessage
		}
		return e.Code(), md.HTTPStatus, message
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return pkgerrors.CodeValidation, http.StatusBadRequest, verrs.Error()
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message, ok := he.Message.(string)
		if !ok {
			message = http.StatusText(he.Code)
		}
		return codeForStatus(he.Code), he.Code, message
	}

	md := pkgerrors.MetadataFor(pkgerrors.CodeInternal)
	return pkgerrors.CodeInternal, md.HTTPStatus, md.PublicMessage
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeAuthenticationFailed
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusMethodNotAllowed:
		return pkgerrors.CodeInvalidOperation
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	}
	return pkgerrors.CodeInternal
}
