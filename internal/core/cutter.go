package core

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultRawPort          = 9100
	defaultReadWriteTimeout = 10 * time.Second
)

// CutCommand feeds six lines (ESC d 6) then issues the partial cut GS V 0.
var CutCommand = []byte{0x1B, 0x64, 0x06, 0x1D, 0x56, 0x00}

// RawSender writes bytes to a printer's raw TCP port.
type RawSender struct {
	dialTimeout time.Duration
}

// NewRawSender returns a sender. A zero timeout leaves dialing to the
// transport default.
func NewRawSender(dialTimeout time.Duration) *RawSender {
	return &RawSender{dialTimeout: dialTimeout}
}

// Send dials ip:port, writes payload, half-closes the write side and closes
// the connection.
func (s *RawSender) Send(ctx context.Context, ip string, port int, payload []byte) error {
	if port == 0 {
		port = DefaultRawPort
	}
	address := net.JoinHostPort(ip, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(defaultReadWriteTimeout))

	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("%w: write to %s: %v", ErrConnectionFailed, address, err)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.CloseWrite(); err != nil {
			return fmt.Errorf("%w: close write to %s: %v", ErrConnectionFailed, address, err)
		}
	}

	return nil
}

// SendCut sends CutCommand. Failures are logged and absorbed; there is no
// retry.
func (s *RawSender) SendCut(ctx context.Context, ip string, port int) {
	logger := log.WithFields(log.Fields{
		"printer_ip": ip,
		"port":       port,
	})

	if err := s.Send(ctx, ip, port, CutCommand); err != nil {
		logger.WithError(err).Warn("cut command failed")
		return
	}

	logger.Info("cut command sent")
}
