// Package rest exposes the proxy endpoints and helper routes over HTTP.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/charadev96/walletd/internal/client/qr"
	"github.com/charadev96/walletd/internal/server/proxy"
	"github.com/charadev96/walletd/internal/shared/log"
	"github.com/charadev96/walletd/internal/shared/ratelimit"
)

const MaxQRSize = 2048

// Reporter receives unexpected server-side errors.
type Reporter interface {
	CaptureError(err error)
}

type Handler struct {
	Proxy   *proxy.Proxy
	Balance proxy.Endpoint
	BTCTxs  proxy.Endpoint
	ETHTxs  proxy.Endpoint

	Limiter  *ratelimit.Limiter
	Gatherer prometheus.Gatherer
	Reporter Reporter
	Logger   *zerolog.Logger
}

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.requestID, h.accessLog)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	if h.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.rateLimit)
	api.HandleFunc("/balance", h.Relay(h.Balance)).Methods(http.MethodGet)
	api.HandleFunc("/btc/transactions", h.Relay(h.BTCTxs)).Methods(http.MethodGet)
	api.HandleFunc("/eth/transactions", h.Relay(h.ETHTxs)).Methods(http.MethodGet)
	api.HandleFunc("/qr", h.QR).Methods(http.MethodGet)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Relay serves one proxy endpoint. Every outcome is a JSON body.
func (h *Handler) Relay(ep proxy.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := h.Proxy.Fetch(r.Context(), ep, r.URL.Query().Get("address"))

		var verr *proxy.ValidationError
		var uerr *proxy.UpstreamError
		switch {
		case err == nil:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Message)
		case errors.As(err, &uerr):
			writeJSON(w, http.StatusInternalServerError, ep.FailureBody(uerr))
		default:
			h.report(err)
			writeJSON(w, http.StatusInternalServerError, ep.FailureBody(err))
		}
	}
}

// QR renders ?data= as a PNG. size defaults to qr.DefaultSize.
func (h *Handler) QR(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := q.Get("data")
	if strings.TrimSpace(data) == "" {
		writeError(w, http.StatusBadRequest, "Data parameter is required")
		return
	}

	size := qr.DefaultSize
	if raw := q.Get("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > MaxQRSize {
			writeError(w, http.StatusBadRequest, "Size parameter is invalid")
			return
		}
		size = v
	}

	png, err := qr.Render(data, size)
	if err != nil {
		h.logger().Warn().Err(err).Msg("failed to render qr code")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Failed to render QR code",
			"details": err.Error(),
		})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) report(err error) {
	h.logger().Error().Err(err).Msg("unexpected handler error")
	if h.Reporter != nil {
		h.Reporter.CaptureError(err)
	}
}

func (h *Handler) logger() *zerolog.Logger {
	return log.OrNop(h.Logger)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
