package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"

	"github.com/jonno85/bin-relay/internal/domain"
)

// Recoverer turns a panic into a success:false internal envelope. The stack
// is only included when development is true.
func Recoverer(development bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				stack := debug.Stack()
				slog.Error("Recovered from panic", "requestID", RequestID(r.Context()), "panic", rec, "stack", string(stack))

				err := domain.New(domain.KindInternal, "handler", fmt.Sprint(rec))
				if cause, ok := rec.(error); ok {
					err = domain.Wrap(domain.KindInternal, "handler", "An error occurred while processing the file", cause)
				}
				env := domain.FailureEnvelope(err, 0)
				if development {
					env.Name = fmt.Sprintf("%T", rec)
					env.Stack = string(stack)
				}
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, env)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
