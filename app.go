package httpcore

import (
	"crypto/tls"
	"errors"
	"net"

	"github.com/halfpipe/httpcore/config"
	"github.com/halfpipe/httpcore/message"
	"github.com/halfpipe/httpcore/transport"
)

var (
	errGracefulShutdown = errors.New("httpcore: graceful shutdown requested")
	errShutdown         = errors.New("httpcore: shutdown requested")
)

// App is the builder-style entry point, following the teacher's indi.go App: accumulate
// listeners, each with its own Handler, with Listen/ListenTLS/ListenAutoTLS/ListenUnix, then
// call Serve.
type App struct {
	cfg *config.Config

	sup   transport.Supervisor
	errCh chan error

	onStart, onStop func()
	pendingErr      error
}

func New(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}

	return &App{
		cfg: cfg,
		sup: transport.NewSupervisor(),
		// buffered by one so a Stop/GracefulStop racing with the supervisor's own Run
		// finishing never leaves either side blocked sending to a channel nobody reads again
		errCh: make(chan error, 1),
	}
}

// Tune replaces the App's config with overrides, each zero-valued field of which is filled
// from config.Default. Listeners added before Tune keep the config they were added with.
func (a *App) Tune(overrides config.Config) *App {
	a.cfg = config.Fill(overrides)
	return a
}

// NotifyOnStart calls cb once every listener is bound and accepting connections.
func (a *App) NotifyOnStart(cb func()) *App {
	a.onStart = cb
	return a
}

// NotifyOnStop calls cb once every listener has stopped accepting and every connection it
// held has finished.
func (a *App) NotifyOnStop(cb func()) *App {
	a.onStop = cb
	return a
}

// Listen adds a plain TCP listener.
func (a *App) Listen(addr string, handler message.Handler) *App {
	a.add(addr, transport.NewTCP(), handler)
	return a
}

// ListenUnix adds a Unix domain socket listener at path.
func (a *App) ListenUnix(path string, handler message.Handler) *App {
	a.add(path, transport.NewUnix(), handler)
	return a
}

// ListenTLS adds a TCP+TLS listener using an explicit certificate set.
func (a *App) ListenTLS(addr string, certs []tls.Certificate, handler message.Handler) *App {
	a.add(addr, transport.NewTLS(certs), handler)
	return a
}

// ListenAutoTLS adds a TCP+TLS listener whose certificates are fetched on demand via ACME for
// the given domains, cached under certCacheDir.
func (a *App) ListenAutoTLS(addr, certCacheDir string, handler message.Handler, domains ...string) *App {
	a.add(addr, transport.NewAutoTLS(certCacheDir, domains...), handler)
	return a
}

func (a *App) add(addr string, t transport.Transport, handler message.Handler) {
	engine := NewEngine(a.cfg, handler)

	if err := a.sup.Add(addr, t, func(conn net.Conn) {
		engine.Serve(transport.NewClient(conn, a.cfg.NET.ReadTimeout, a.cfg.NET.WriteTimeout, make([]byte, a.cfg.NET.ReadBufferSize)))
	}); err != nil {
		a.pendingErr = err
	}
}

// Serve blocks, running every configured listener until Stop, GracefulStop, or a listener
// fails irrecoverably.
func (a *App) Serve() error {
	if a.pendingErr != nil {
		return a.pendingErr
	}

	go func() {
		a.errCh <- a.sup.Run(a.cfg.NET, a.cfg.TCP)
	}()

	callIfNotNil(a.onStart)

	err := <-a.errCh
	if errors.Is(err, errGracefulShutdown) || errors.Is(err, errShutdown) {
		a.sup.Stop()
		err = nil
	}

	callIfNotNil(a.onStop)
	return err
}

// GracefulStop stops accepting new connections but lets in-flight ones finish. Non-blocking.
func (a *App) GracefulStop() {
	a.errCh <- errGracefulShutdown
}

// Stop stops accepting new connections and tears down the supervisor immediately. In-flight
// connections still run to completion since the engine doesn't expose a mid-request cancel.
// Non-blocking.
func (a *App) Stop() {
	a.errCh <- errShutdown
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
