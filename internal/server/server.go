// Package server exposes the relay over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"SignalRelay/internal/relay"
)

const maxBodyBytes = 1 << 20

// SignalHandler is the relay core as seen by the HTTP layer.
type SignalHandler interface {
	HandleSignal(ctx context.Context, body []byte) relay.Result
	Cooldown() time.Duration
}

// Options configures a Server.
type Options struct {
	Addr            string
	Path            string
	Environment     string
	ShutdownTimeout time.Duration
	Logger          zerolog.Logger
}

// Server serves the webhook endpoint.
type Server struct {
	relay SignalHandler
	opts  Options
	log   zerolog.Logger
	http  *http.Server
	now   func() time.Time
}

// New creates a Server that hands POST bodies to h.
func New(h SignalHandler, opts Options) *Server {
	if opts.Path == "" {
		opts.Path = "/webhook"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{relay: h, opts: opts, log: opts.Logger, now: time.Now}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler with CORS and access logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.opts.Path, s.webhook)
	return s.accessLog(cors(mux))
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Str("path", s.opts.Path).Msg("http server listening")
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "online",
			"message":     "TradingView 信號機器人正常運行",
			"timestamp":   s.now().UTC().Format("2006-01-02T15:04:05.000Z"),
			"environment": s.opts.Environment,
		})
	case http.MethodPost:
		s.post(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"success": false,
			"error":   "method not allowed",
			"allowed": []string{http.MethodGet, http.MethodPost},
		})
	}
}

func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"success": false, "error": "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "read request body"})
		return
	}

	res := s.relay.HandleSignal(r.Context(), body)
	minutes := s.relay.Cooldown().Minutes()

	switch res.Outcome {
	case relay.Accepted:
		var signal any = res.Signal
		if len(res.Body) > 0 {
			signal = res.Body
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"status":   "sent",
			"message":  "交易信號已成功發送到 Telegram",
			"signal":   signal,
			"telegram": res.Receipt,
			"cooldown": minutes,
		})
	case relay.Suppressed:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"status":   "cooldown",
			"message":  "cooldown",
			"cooldown": minutes,
		})
	case relay.Rejected:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   res.Reason,
		})
	default:
		msg := "internal error"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   msg,
			"kind":    res.Kind(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
