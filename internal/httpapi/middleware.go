package httpapi

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"latiafanny/backend/internal/service"
)

const maxRequestIDLength = 128

type sessionContextKey struct{}

func sessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(Session)
	return session, ok
}

// requestLogger attaches a request-scoped logger to the context and logs one
// line per request once the handler returns.
func requestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			reqLogger := base.With().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_ip", clientKey(r)).
				Logger()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			startedAt := time.Now()
			ctx := reqLogger.WithContext(r.Context())
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// Fields added downstream, such as the actor, live on the logger in ctx.
			zerolog.Ctx(ctx).Info().
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(startedAt)).
				Msg("request")
		})
	}
}

func (a *API) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		w.Header().Set("Vary", "Origin")

		if isMutating(r.Method) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// csrfExemptPaths are called before the client could have fetched a token.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func (a *API) checkCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) || slices.Contains(csrfExemptPaths, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if !a.validateCSRFToken(strings.TrimSpace(r.Header.Get("X-CSRF-Token"))) {
			writeMessage(w, http.StatusForbidden, false, "missing or invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeMessage(w, http.StatusUnauthorized, false, "missing bearer token")
			return
		}

		session, err := a.auth.ParseToken(r.Context(), strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := service.WithActor(r.Context(), session.Actor)
		ctx = context.WithValue(ctx, sessionContextKey{}, session)
		zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("actor", session.Actor.Username)
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := service.ActorFromContext(r.Context())
			if !ok || !slices.Contains(roles, actor.Role) {
				writeMessage(w, http.StatusForbidden, false, "forbidden role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
