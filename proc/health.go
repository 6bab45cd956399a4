package proc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leeineian/confessor/confess"
	"github.com/leeineian/confessor/sys"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthStatus struct {
	Status      string `json:"status"`
	Store       bool   `json:"store"`
	Gateway     bool   `json:"gateway"`
	Confessions int    `json:"confessions"`
}

// HealthHandler serves /healthz and /metrics.
type HealthHandler struct {
	store     *confess.Store
	gatewayUp func() bool
	gatherer  prometheus.Gatherer
}

func NewHealthHandler(store *confess.Store, gatewayUp func() bool, gatherer prometheus.Gatherer) *HealthHandler {
	return &HealthHandler{store: store, gatewayUp: gatewayUp, gatherer: gatherer}
}

func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

func (h *HealthHandler) Check() HealthStatus {
	st := HealthStatus{
		Store:       h.store.Healthy(),
		Gateway:     h.gatewayUp == nil || h.gatewayUp(),
		Confessions: h.store.Count(),
	}
	st.Status = "ok"
	if !st.Store || !st.Gateway {
		st.Status = "degraded"
	}
	return st
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := h.Check()
	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(st)
}

// NewHealthRouter builds the chi router for the health server.
func NewHealthRouter(h *HealthHandler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

// NewHealthServer builds an HTTP server with the project's timeouts.
func NewHealthServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// RunHealthServer serves until ctx ends, then shuts down gracefully.
func RunHealthServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		sys.LogHealth(sys.MsgHealthListening, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			sys.LogError(sys.MsgHealthFail, err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	sys.LogHealth(sys.MsgHealthShutdown)
	return nil
}
