// Package middleware holds the gin middleware shared by every route.
package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/localization"
)

// ErrorBody is the error object of a failed response.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is the envelope written for every failed request.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ErrorRenderer writes the last error a handler recorded with c.Error as a
// localized JSON body. Internal causes are only included in development mode.
func ErrorRenderer(loc *localization.Localizer, dev bool, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		e := apperr.From(c.Errors.Last().Err)
		if e.Kind == apperr.KindStore || e.Kind == apperr.KindUpstream {
			log.Error("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"kind", e.Kind.String(),
				"error", e)
		}

		lang := loc.PreferredLanguage(c.GetHeader("Accept-Language"))
		body := ErrorBody{Kind: e.Kind.String(), Message: loc.ErrorMessage(lang, e)}
		if dev && e.Err != nil {
			body.Detail = e.Err.Error()
		}
		c.JSON(e.Kind.HTTPStatus(), ErrorResponse{Success: false, Error: body})
	}
}

// Fail records err for ErrorRenderer and stops the handler chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
