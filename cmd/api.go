package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/underwrite-cli/internal/config"
	"github.com/sells-group/underwrite-cli/internal/engine"
	"github.com/sells-group/underwrite-cli/internal/foreclosure"
	"github.com/sells-group/underwrite-cli/internal/model"
	"github.com/sells-group/underwrite-cli/internal/policy"
	"github.com/sells-group/underwrite-cli/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// api holds the HTTP handlers' collaborators. st may be nil, in which case
// persistence endpoints answer 503.
type api struct {
	eng     *engine.Engine
	st      store.Store
	posture string
}

// newRouter builds the chi router with CORS, rate limiting and request logging.
func newRouter(a *api, sc config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))
	r.Use(rateLimit(sc.RateLimitRPS, sc.RateLimitBurst))

	r.Get("/health", a.health)
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(limitBody)
		v1.Post("/analyze", a.analyze)
		v1.Post("/double-close", a.doubleClose)
		v1.Post("/foreclosure/preview", a.foreclosurePreview)
		v1.Post("/policy/resolve", a.resolvePolicy)
		v1.Get("/runs", a.listRuns)
		v1.Get("/runs/{id}", a.getRun)
	})
	return r
}

// rateLimit rejects requests beyond rps with 429. A non-positive rps
// disables limiting.
func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok", "engine_version": a.eng.Version()}
	if a.st != nil {
		if err := a.st.Ping(r.Context()); err != nil {
			zap.L().Warn("health: store ping failed", zap.Error(err))
			body["status"] = "degraded"
			writeJSONResponse(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSONResponse(w, http.StatusOK, body)
}

func (a *api) analyze(w http.ResponseWriter, r *http.Request) {
	var env model.Envelope
	if !decodeBody(w, r, &env) {
		return
	}
	if env.Posture == "" {
		env.Posture = a.posture
	}

	save := r.URL.Query().Get("save") == "true"
	if save && a.st == nil {
		writeError(w, http.StatusServiceUnavailable, "run store is not configured")
		return
	}

	var st store.Store
	if save {
		st = a.st
	}
	res, err := analyzeOne(r.Context(), a.eng, st, env)
	if err != nil {
		zap.L().Error("analyze failed", zap.String("deal_id", env.DealID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analyze failed")
		return
	}
	writeJSONResponse(w, http.StatusOK, res)
}

type doubleCloseRequest struct {
	Record        model.DoubleCloseRecord `json:"record"`
	Posture       string                  `json:"posture"`
	SandboxConfig policy.Config           `json:"sandboxConfig,omitempty"`
}

func (a *api) doubleClose(w http.ResponseWriter, r *http.Request) {
	var req doubleCloseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Posture == "" {
		req.Posture = a.posture
	}
	writeJSONResponse(w, http.StatusOK, a.eng.DoubleClose(req.Record, req.Posture, req.SandboxConfig))
}

func (a *api) foreclosurePreview(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, ok := foreclosure.ParseDate(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = t
	}

	var raw json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}
	state, err := foreclosure.DecodeForm(raw, asOf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid foreclosure details")
		return
	}
	writeJSONResponse(w, http.StatusOK, state)
}

type resolveRequest struct {
	Posture       string        `json:"posture"`
	SandboxConfig policy.Config `json:"sandboxConfig,omitempty"`
}

type resolveResponse struct {
	Posture      string              `json:"posture"`
	Policy       policy.Config       `json:"policy"`
	Underwriting policy.Underwriting `json:"underwriting"`
}

func (a *api) resolvePolicy(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Posture == "" {
		req.Posture = a.posture
	}
	p, err := policy.ParsePosture(req.Posture)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resolved, u := a.eng.ResolvePolicy(string(p), req.SandboxConfig)
	writeJSONResponse(w, http.StatusOK, resolveResponse{Posture: string(p), Policy: resolved, Underwriting: u})
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	if a.st == nil {
		writeError(w, http.StatusServiceUnavailable, "run store is not configured")
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		OrgID:   q.Get("org_id"),
		DealID:  q.Get("deal_id"),
		Posture: q.Get("posture"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}

	runs, err := a.st.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) {
	if a.st == nil {
		writeError(w, http.StatusServiceUnavailable, "run store is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := a.st.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run failed", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSONResponse(w, http.StatusOK, run)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", s)
	}
	return n, nil
}

// decodeBody decodes the JSON request body into v, writing a 400 or 413 on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONResponse(w, status, map[string]string{"error": msg})
}
