package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"latiafanny/backend/internal/domain"
	"latiafanny/backend/internal/scheduler"
	"latiafanny/backend/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        zerolog.Logger
	loginLimiter  *attemptLimiter
	csrfSecret    []byte
	jobs          JobReporter
}

// JobReporter is implemented by the background scheduler.
type JobReporter interface {
	Status() map[string]scheduler.JobStatus
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger zerolog.Logger) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		logger.Fatal().Err(err).Msg("generate csrf secret")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		logger:        logger,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// ReportJobs adds the scheduled jobs to the health check.
func (a *API) ReportJobs(jobs JobReporter) {
	a.jobs = jobs
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (Unix time truncated to the hour), hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	bucket := time.Now().UTC().Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts the current and the previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	currentBucket := time.Now().UTC().Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(currentBucket))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(prevBucket)))
}

type attemptLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	entries   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time), now: time.Now}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now, cutoff)

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

// sweep drops clients with no attempt inside the window, at most once per window.
func (l *attemptLimiter) sweep(now, cutoff time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, history := range l.entries {
		if len(history) == 0 || !history[len(history)-1].After(cutoff) {
			delete(l.entries, key)
		}
	}
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	router := chi.NewRouter()
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, false, "not found")
	})
	router.MethodNotAllowed(writeMethodNotAllowed)

	router.Use(requestLogger(a.logger))
	router.Use(middleware.Recoverer)
	router.Use(a.withSecurityHeaders)
	router.Use(a.checkCSRF)

	router.Get("/healthz", a.handleHealth)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)
		r.Get("/auth/csrf-token", a.handleCSRFToken)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)

			r.Get("/auth/me", a.handleMe)
			r.Post("/auth/logout", a.handleLogout)

			r.Get("/categories", a.handleListCategories)
			r.Get("/categories/{id}", a.handleGetCategory)
			r.Get("/products", a.handleListProducts)
			r.Get("/products/{id}", a.handleGetProduct)
			r.Get("/products/category/{categoryId}", a.handleProductsByCategory)
			r.Get("/inventory", a.handleListInventory)
			r.Get("/inventory/low-stock", a.handleLowStock)
			r.Get("/inventory/out-of-stock", a.handleOutOfStock)
			r.Get("/inventory/{id}", a.handleGetInventoryItem)

			r.Get("/sales", a.handleListSales)
			r.Post("/sales", a.handleCreateSale)
			r.Get("/sales/today", a.handleTodaySales)
			r.Get("/sales/monthly-report", a.handleSalesMonthlyReport)
			r.Get("/sales/payment-breakdown", a.handlePaymentBreakdown)
			r.Get("/sales/payment-breakdown/{date}", a.handlePaymentBreakdown)
			r.Get("/sales/best-selling", a.handleBestSelling)
			r.Get("/sales/best-selling/{limit}", a.handleBestSelling)
			r.Get("/sales/{id}", a.handleGetSale)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(domain.RoleAdmin))

				r.Post("/categories", a.handleCreateCategory)
				r.Put("/categories/{id}", a.handleUpdateCategory)
				r.Patch("/categories/{id}", a.handleUpdateCategory)
				r.Delete("/categories/{id}", a.handleDeleteCategory)

				r.Post("/products", a.handleCreateProduct)
				r.Put("/products/{id}", a.handleUpdateProduct)
				r.Patch("/products/{id}", a.handleUpdateProduct)
				r.Delete("/products/{id}", a.handleDeleteProduct)

				r.Post("/inventory", a.handleCreateInventoryItem)
				r.Put("/inventory/{id}", a.handleUpdateInventoryItem)
				r.Patch("/inventory/{id}", a.handleUpdateInventoryItem)
				r.Delete("/inventory/{id}", a.handleDeleteInventoryItem)

				r.Get("/reports/daily", a.handleDailyReport)
				r.Get("/reports/monthly", a.handleMonthlyReport)
				r.Get("/reports/stock-alerts", a.handleStockAlerts)

				r.Get("/users", a.handleListUsers)
				r.Post("/users", a.handleCreateUser)
				r.Get("/users/{id}", a.handleGetUser)
				r.Put("/users/{id}", a.handleUpdateUser)
				r.Patch("/users/{id}", a.handleUpdateUser)
				r.Delete("/users/{id}", a.handleDeleteUser)
			})
		})
	})

	return router
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	}
	if a.jobs != nil {
		body["jobs"] = a.jobs.Status()
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeMessage(w, http.StatusTooManyRequests, false, "too many login attempts")
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCSRFToken returns a stateless token valid for the current hour bucket.
// Clients send it back in X-CSRF-Token on every mutating request.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	writeData(w, http.StatusOK, a.auth.Profile(session.Actor))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())
	if err := a.auth.Logout(r.Context(), session); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, true, "logged out")
}
