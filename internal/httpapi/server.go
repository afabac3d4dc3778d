package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/qrinout/server/internal/monitoring"
	"github.com/qrinout/server/internal/qrinout/policy"
	"github.com/qrinout/server/internal/qrinout/service"
	"github.com/qrinout/server/internal/qrinout/store"
	"github.com/qrinout/server/internal/qrinout/timesource"
	"github.com/qrinout/server/internal/qrinout/token"
	"github.com/qrinout/server/internal/qrinout/types"
)

type Dependencies struct {
	Logger         *zap.Logger
	Addr           string
	ScanService    *service.ScanService
	Issuer         *service.Issuer
	DisplayAuth    *service.DisplayAuth
	GuestDirectory *service.GuestDirectory
	Settings       store.SettingsStore
	TimeSource     *timesource.Service
	Metrics        *monitoring.Metrics

	// AllowedOrigins for browser displays. Empty disables CORS entirely.
	AllowedOrigins []string
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     *mux.Router
	scans      *service.ScanService
	issuer     *service.Issuer
	auth       *service.DisplayAuth
	guests     *service.GuestDirectory
	settings   store.SettingsStore
	clock      *timesource.Service
	metrics    *monitoring.Metrics
}

func NewServer(d Dependencies) *Server {
	r := mux.NewRouter()

	s := &Server{
		logger:   d.Logger,
		router:   r,
		scans:    d.ScanService,
		issuer:   d.Issuer,
		auth:     d.DisplayAuth,
		guests:   d.GuestDirectory,
		settings: d.Settings,
		clock:    d.TimeSource,
		metrics:  d.Metrics,
	}

	r.HandleFunc("/v1/guest/verify", s.handleGuestVerify).Methods(http.MethodPost)
	r.HandleFunc("/v1/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/v1/display/login", s.handleDisplayLogin).Methods(http.MethodPost)
	r.HandleFunc("/v1/display/token", s.requireDisplaySession(s.handleDisplayToken)).Methods(http.MethodGet)
	r.HandleFunc("/v1/time", s.handleTimeStatus).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = loggingMiddleware(d.Logger, d.Metrics, handler)
	if len(d.AllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler(handler)
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleGuestVerify(w http.ResponseWriter, r *http.Request) {
	var req types.GuestVerifyRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	g, err := s.guests.Verify(r.Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrGuestNotFound) {
			writeError(w, http.StatusNotFound, "guest_not_found", "no active guest matches that name and email")
			return
		}
		s.logger.Error("guest verify failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, types.GuestVerifyResponse{
		GuestID:            g.ID,
		Name:               g.Name,
		Timezone:           g.Timezone,
		AllowedCheckpoints: g.AllowedCheckpoints,
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	action := store.Action(req.Action)
	if !action.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_action", "action must be check_in or check_out")
		return
	}

	// An unresolvable guest is a request error, not a scan outcome: there
	// is no identity to attribute an activity record to.
	guest, err := s.guests.Lookup(r.Context(), req.GuestID)
	if err != nil {
		if errors.Is(err, service.ErrGuestNotFound) {
			writeError(w, http.StatusNotFound, "guest_not_found", "unknown or removed guest")
			return
		}
		s.logger.Error("guest lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	settings, err := s.settings.LoadSettings(r.Context())
	if err != nil {
		s.logger.Error("load settings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	now := s.clock.Now(r.Context(), settings.AdminTimezone)

	result, err := s.scans.Authorize(r.Context(), req.TokenText, guest, action, now.Time, now.Trusted)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAction) {
			writeError(w, http.StatusBadRequest, "invalid_action", err.Error())
			return
		}
		s.logger.Error("scan authorize failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	s.metrics.ScanOutcome(string(action), result.Reason)

	writeJSON(w, http.StatusOK, types.ScanResponse{
		Accepted:    result.Accepted,
		Reason:      result.Reason,
		Action:      string(action),
		ServerTime:  now.Time.Format(time.RFC3339),
		TimeTrusted: now.Trusted,
	})
}

func (s *Server) handleDisplayLogin(w http.ResponseWriter, r *http.Request) {
	var req types.DisplayLoginRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	session, expiresAt, err := s.auth.Login(r.Context(), req.CheckpointID, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, "bad_credentials", "invalid checkpoint or password")
			return
		}
		s.logger.Error("display login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	if s.metrics != nil {
		s.metrics.DisplaySessions.Inc()
	}

	writeJSON(w, http.StatusOK, types.DisplayLoginResponse{
		SessionToken: session,
		ExpiresAt:    expiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDisplayToken(w http.ResponseWriter, r *http.Request) {
	checkpointID := displaySessionCheckpoint(r)

	state, err := s.issuer.Display(r.Context(), checkpointID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckpointRemoved), errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusGone, "checkpoint_removed", "checkpoint no longer exists")
		default:
			s.logger.Error("display state failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	resp := types.DisplayStateResponse{
		CheckpointID: state.Checkpoint.ID,
		Name:         state.Checkpoint.Name,
		Open:         state.Open,
		HoursMessage: state.HoursMessage,
	}
	if state.Open {
		resp.Mode = string(state.Mode)
		resp.TokenText = state.Token.Text
		if state.Mode == token.ModeRenewing {
			resp.Sequence = state.Token.Sequence
			resp.ExpiresAt = state.Token.ExpiresAt.UTC().Format(time.RFC3339)
			resp.Countdown = policy.FormatCountdown(state.Countdown)
		}
		if s.metrics != nil {
			s.metrics.TokensIssued.WithLabelValues(string(state.Mode)).Inc()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimeStatus(w http.ResponseWriter, r *http.Request) {
	tz := r.URL.Query().Get("timezone")
	if tz == "" {
		settings, err := s.settings.LoadSettings(r.Context())
		if err != nil {
			s.logger.Error("load settings failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		tz = settings.AdminTimezone
	}

	res := s.clock.Now(r.Context(), tz)
	writeJSON(w, http.StatusOK, types.TimeStatusResponse{
		CurrentTime: res.Time.Format(time.RFC3339),
		Timezone:    tz,
		Trusted:     res.Trusted,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeStrict decodes a JSON body rejecting unknown fields. It writes the
// error response itself and reports whether decoding succeeded.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

// maxRequestBody caps request payloads. The largest legitimate body is a
// scan request carrying a full token, well under 4 KiB.
const maxRequestBody = 4096

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}
