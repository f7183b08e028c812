package core

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listenRaw accepts one connection and delivers everything read until EOF.
func listenRaw(t *testing.T) (string, int, <-chan []byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		got <- data
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, got
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRawSender_SendCutWritesExactBytes(t *testing.T) {
	ip, port, got := listenRaw(t)

	NewRawSender(time.Second).SendCut(context.Background(), ip, port)

	select {
	case data := <-got:
		assert.Equal(t, []byte{0x1B, 0x64, 0x06, 0x1D, 0x56, 0x00}, data)
	case <-time.After(2 * time.Second):
		t.Fatal("cut command not received")
	}
}

func TestRawSender_SendReportsConnectionFailure(t *testing.T) {
	port := closedPort(t)

	err := NewRawSender(time.Second).Send(context.Background(), "127.0.0.1", port, CutCommand)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnectionFailed))
	assert.Contains(t, err.Error(), strconv.Itoa(port))
}

func TestRawSender_SendCutAbsorbsErrors(t *testing.T) {
	port := closedPort(t)

	assert.NotPanics(t, func() {
		NewRawSender(time.Second).SendCut(context.Background(), "127.0.0.1", port)
	})
}
