package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotedeck/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
)

// Recovery returns middleware that turns a panic into a 500 error envelope
// and logs it with the stack trace. It should be first in the chain.
// onPanic, if set, also receives the recovered value and stack.
func Recovery(onPanic func(err any, stack []byte)) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			stack := debug.Stack()

			if onPanic != nil {
				onPanic(r, stack)
			}

			traceID := dto.GetTraceID(c)

			logging.FromContext(c.Request.Context()).Error("panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(stack)),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("trace_id", traceID),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			resp := dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred")
			c.AbortWithStatusJSON(http.StatusInternalServerError, resp.WithTraceID(traceID))
		}()

		c.Next()
	}
}
