package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/npezzotti/taskpulse/internal/auth"
	"github.com/npezzotti/taskpulse/internal/types"
	"go.uber.org/zap"
)

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, user types.Identity) context.Context {
	return context.WithValue(ctx, identityKey, user)
}

func IdentityFrom(ctx context.Context) (types.Identity, bool) {
	user, ok := ctx.Value(identityKey).(types.Identity)
	return user, ok
}

func (s *App) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Error("panic recovered", zap.String("path", r.URL.Path), zap.Error(panicError))
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *App) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.verifier.Verify(auth.TokenFromRequest(r))
		if err != nil {
			s.log.Warn("request rejected",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithIdentity(r.Context(), user)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
