package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/config"
)

// ErrRunning is returned by ListenAndServe when the acceptor is already serving.
var ErrRunning = errors.New("telnet acceptor already running")

// SessionHandler runs the session for one connected client.
type SessionHandler interface {
	// HandleSession returns when the client leaves or ctx is cancelled.
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor listens for Telnet clients and runs a session per connection.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewAcceptor creates an acceptor for cfg.Addr().
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	if handler == nil {
		panic("telnet.NewAcceptor: handler must not be nil")
	}
	if logger == nil {
		panic("telnet.NewAcceptor: logger must not be nil")
	}
	return &Acceptor{cfg: cfg, handler: handler, logger: logger}
}

// ListenAndServe accepts connections until ctx is cancelled or Stop is
// called. Every open session's context is cancelled on the way out.
//
// Postcondition: Returns nil after a clean shutdown, once all sessions have
// returned.
func (a *Acceptor) ListenAndServe(ctx context.Context) error {
	start := time.Now()
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	if a.listener != nil {
		a.mu.Unlock()
		listener.Close()
		return ErrRunning
	}
	a.listener = listener
	a.cancel = cancel
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	a.logger.Info("telnet acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("startup", time.Since(start)),
	)

	for {
		raw, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}
		a.wg.Add(1)
		go a.serve(ctx, raw)
	}

	cancel()
	a.wg.Wait()
	a.mu.Lock()
	a.listener = nil
	a.cancel = nil
	a.mu.Unlock()
	a.logger.Info("telnet acceptor stopped")
	return nil
}

func (a *Acceptor) serve(ctx context.Context, raw net.Conn) {
	defer a.wg.Done()
	start := time.Now()
	logger := a.logger.With(zap.String("remote_addr", raw.RemoteAddr().String()))
	logger.Info("client connected")

	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	defer conn.Close()
	if err := conn.Negotiate(); err != nil {
		logger.Warn("telnet negotiation failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// Closing the connection unblocks a pending ReadLine on shutdown.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := a.handler.HandleSession(ctx, conn); err != nil {
		logger.Debug("session ended", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	logger.Info("session ended cleanly", zap.Duration("duration", time.Since(start)))
}

// Stop cancels a running ListenAndServe. It does not wait for it to return.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// Addr returns the listening address, or "" when not listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}
