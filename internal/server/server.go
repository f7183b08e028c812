// Package server owns the HTTP listener of the control surface and supports
// moving it to another port at runtime.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/orrn/printbridge/internal/config"
)

const (
	FallbackPort     = 9999
	drainTimeout     = 2 * time.Second
	restartedMessage = "Server restarted on port %d"
)

// PortConflictError reports a port that is already bound by someone else.
type PortConflictError struct {
	Port        int
	Suggestions []int
}

func newPortConflictError(port int) *PortConflictError {
	return &PortConflictError{
		Port:        port,
		Suggestions: []int{port + 1, port + 10, FallbackPort},
	}
}

func (e *PortConflictError) Error() string {
	return fmt.Sprintf("Port %d is already in use. Try: %d, %d, or %d",
		e.Port, e.Suggestions[0], e.Suggestions[1], e.Suggestions[2])
}

// PersistFunc saves the port after a successful change.
type PersistFunc func(port int) error

type Controller struct {
	host         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	persist      PersistFunc

	mu      sync.Mutex
	handler http.Handler
	srv     *http.Server
	ln      net.Listener
	port    int
}

func New(cfg config.ServerConfig, persist PersistFunc) *Controller {
	return &Controller{
		host:         cfg.Host,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		persist:      persist,
	}
}

// Start binds port and serves handler on it.
func (c *Controller) Start(handler http.Handler, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.srv != nil {
		return fmt.Errorf("server already running on port %d", c.port)
	}

	ln, err := c.listen(port)
	if err != nil {
		return err
	}

	c.handler = handler
	c.serve(ln, port)
	return nil
}

// ChangePort binds the new port before releasing the old one, so the server
// never goes without a listener. On conflict the old server keeps running.
func (c *Controller) ChangePort(ctx context.Context, port int) (string, error) {
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid port: %d", port)
	}

	c.mu.Lock()
	if c.srv == nil {
		c.mu.Unlock()
		return "", fmt.Errorf("server is not running")
	}
	if port == c.port {
		c.mu.Unlock()
		return fmt.Sprintf(restartedMessage, port), nil
	}

	ln, err := c.listen(port)
	if err != nil {
		c.mu.Unlock()
		return "", err
	}

	old := c.srv
	c.serve(ln, port)
	c.mu.Unlock()

	// The request that asked for the move may be in flight on old.
	go func() {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		defer cancel()
		shutdown(drainCtx, old)
	}()

	if c.persist != nil {
		if err := c.persist(port); err != nil {
			log.WithError(err).WithField("port", port).Error("failed to persist port")
		}
	}

	log.WithField("port", port).Info("server moved to new port")
	return fmt.Sprintf(restartedMessage, port), nil
}

func (c *Controller) listen(port int) (net.Listener, error) {
	addr := net.JoinHostPort(c.host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if isAddrInUse(err) {
			return nil, newPortConflictError(port)
		}
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// serve must be called with c.mu held.
func (c *Controller) serve(ln net.Listener, port int) {
	srv := &http.Server{
		Handler:      c.handler,
		ReadTimeout:  c.readTimeout,
		WriteTimeout: c.writeTimeout,
	}

	c.srv = srv
	c.ln = ln
	c.port = port

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("port", port).Error("http server stopped")
		}
	}()

	log.WithField("address", ln.Addr().String()).Info("http server listening")
}

func (c *Controller) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.srv != nil
}

// Addr returns the bound listener address, or "" when stopped.
func (c *Controller) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln == nil {
		return ""
	}
	return c.ln.Addr().String()
}

func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	srv := c.srv
	c.srv = nil
	c.ln = nil
	c.mu.Unlock()

	if srv == nil {
		return nil
	}
	return shutdown(ctx, srv)
}

// shutdown drains srv and force-closes it when ctx expires first, which
// long-lived event streams make likely.
func shutdown(ctx context.Context, srv *http.Server) error {
	if err := srv.Shutdown(ctx); err != nil {
		return srv.Close()
	}
	return nil
}

func isAddrInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "address already in use") ||
		strings.Contains(msg, "Only one usage of each socket address")
}
