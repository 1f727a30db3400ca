package core

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// debugServer serves pprof and Prometheus metrics on one optional local
// listener. Bind it to loopback unless you know what you are doing.
type debugServer struct {
	mu   sync.Mutex
	log  zerolog.Logger
	srv  *http.Server
	ln   net.Listener
	addr string
}

func newDebugServer(log zerolog.Logger) *debugServer {
	return &debugServer{log: log.With().Str("comp", "debug").Logger()}
}

// Addr returns the bound address, or "" when the server is not running.
func (d *debugServer) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

func (d *debugServer) Start(addr string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.srv != nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	d.srv = srv
	d.ln = ln
	d.addr = ln.Addr().String()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Warn().Err(err).Msg("debug server exited")
		}
	}()
	d.log.Info().Str("addr", d.addr).Msg("debug server listening")
	return nil
}

func (d *debugServer) Stop(ctx context.Context) {
	d.mu.Lock()
	srv := d.srv
	d.srv = nil
	d.ln = nil
	d.addr = ""
	d.mu.Unlock()
	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
	}
}
