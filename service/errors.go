package service

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/pkg/models"
)

const APIKeyHeader = "X-API-Key"

type errorBody struct {
	Detail string `json:"detail"`
}

// httpErrorHandler renders every error as {"detail": msg}. Internal causes are
// logged and never sent.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	fields := []zap.Field{
		zap.Int("code", code),
		zap.String("path", c.Request().URL.Path),
		zap.String("method", c.Request().Method),
		zap.Error(err),
	}
	if code >= http.StatusInternalServerError {
		zap.L().Error("request failed", fields...)
	} else {
		zap.L().Warn("client error response", fields...)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody{Detail: msg})
	}
	if err != nil {
		zap.L().Error("failed to write error response", zap.Error(err))
	}
}

// apiKeyAuth rejects requests whose X-API-Key does not match key. An empty
// key rejects everything.
func apiKeyAuth(key string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:" + APIKeyHeader,
		Validator: func(got string, c echo.Context) (bool, error) {
			if key == "" {
				return false, nil
			}
			return subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "Could not validate API KEY").SetInternal(err)
		},
	})
}

func missingImages() models.HTTPValidationError {
	return models.HTTPValidationError{Detail: []models.ValidationError{{
		Loc:  []any{"body", "images"},
		Msg:  "Field required",
		Type: "missing",
	}}}
}

func invalidImage(index int, msg string) models.HTTPValidationError {
	return models.HTTPValidationError{Detail: []models.ValidationError{{
		Loc:  []any{"body", "images", index},
		Msg:  msg,
		Type: "value_error",
	}}}
}
