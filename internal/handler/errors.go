package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ambulance-fleet-api/internal/apperror"
)

type errorBody struct {
	Kind    apperror.Kind         `json:"erro"`
	Message string                `json:"mensagem"`
	Fields  []apperror.FieldError `json:"erros,omitempty"`
}

// ErrorHandler is the echo HTTPErrorHandler. It is the only place that turns
// errors into status codes; internal causes are logged and never sent.
func ErrorHandler(log *zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var body errorBody
		var ae *apperror.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			body = errorBody{Kind: ae.Kind, Message: ae.Message, Fields: ae.Fields}
			if ae.Kind == apperror.KindInternal {
				log.Error().Err(err).Str("path", c.Path()).Msg("internal error")
			}
		case errors.As(err, &he):
			body = errorBody{Kind: kindForStatus(he.Code), Message: http.StatusText(he.Code)}
			if msg, ok := he.Message.(string); ok && msg != "" {
				body.Message = msg
			}
		default:
			log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
			body = errorBody{Kind: apperror.KindInternal, Message: "internal server error"}
		}

		status := body.Kind.Status()
		if he != nil && body.Kind != apperror.KindInternal {
			status = he.Code
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn().Err(werr).Msg("write error response")
		}
	}
}

func kindForStatus(code int) apperror.Kind {
	switch code {
	case http.StatusUnauthorized:
		return apperror.KindInvalidCredentials
	case http.StatusForbidden:
		return apperror.KindForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperror.KindNotFound
	case http.StatusTooManyRequests:
		return apperror.KindTooManyRequests
	}
	if code >= 500 {
		return apperror.KindInternal
	}
	return apperror.KindBadRequest
}
