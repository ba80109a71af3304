package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestTimeout puts a deadline on every request context and answers 504
// when the handler gives up because of it. The handler runs on the request
// goroutine, so it must honour ctx.Done(); database and LLM calls do.
// Websocket upgrades are exempt. AI routes get their own LLM deadline from
// the gateway, so the request timeout should stay above it.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Timeout: timeout,
		Skipper: func(c echo.Context) bool {
			return c.IsWebSocket()
		},
		ErrorHandler: func(err error, c echo.Context) error {
			if !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if c.Response().Committed {
				return nil
			}
			return c.JSON(http.StatusGatewayTimeout, map[string]string{
				"message": "request exceeded the allowed processing time",
			})
		},
	})
}
