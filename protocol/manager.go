// Copyright 2026 The Parsec Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/parsec-foundation/parsec/lib/clock"
	"github.com/parsec-foundation/parsec/lib/codec"
)

// Reconnect backoff: first retry after 5s, doubling up to 60s. A
// successful connection resets the delay.
const (
	reconnectInitialDelay = 5 * time.Second
	reconnectMaxDelay     = 60 * time.Second
)

// DialFunc opens a fresh authenticated stream to the backend. It is
// expected to run the handshake before returning.
type DialFunc func(ctx context.Context) (net.Conn, error)

// exchangeWire pairs a command payload with a request ID so replies
// can be matched to concurrent callers on one stream.
type exchangeWire struct {
	ID      uint64 `cbor:"id"`
	Payload []byte `cbor:"payload"`
}

// Manager owns one backend stream and multiplexes concurrent requests
// over it. Each in-flight request has an entry in the pending map;
// the reader goroutine routes replies by ID. A cancelled caller
// removes its entry, and the late reply is discarded when it arrives.
//
// When the stream breaks, every in-flight request fails with a
// BackendConnectionError and the next call reconnects, waiting out the
// current backoff delay first.
type Manager struct {
	dial   DialFunc
	clock  clock.Clock
	logger *slog.Logger

	// dialMu serializes connection attempts so concurrent callers do
	// not race to dial.
	dialMu  sync.Mutex
	backoff time.Duration

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex
	pending map[uint64]chan []byte
	nextID  uint64
	closed  bool
}

// NewManager builds a connection manager. The dial function is invoked
// lazily on the first request and again after each disconnect.
func NewManager(dial DialFunc, clk clock.Clock, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dial:    dial,
		clock:   clk,
		logger:  logger,
		pending: make(map[uint64]chan []byte),
	}
}

// Do sends one command payload and waits for its reply. Cancelling ctx
// abandons the request; the connection stays usable for others.
func (m *Manager) Do(ctx context.Context, payload []byte) ([]byte, error) {
	conn, err := m.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &BackendConnectionError{Kind: ConnectionOffline, Err: fmt.Errorf("manager closed")}
	}
	m.nextID++
	id := m.nextID
	reply := make(chan []byte, 1)
	m.pending[id] = reply
	m.mu.Unlock()

	frame, err := codec.Marshal(&exchangeWire{ID: id, Payload: payload})
	if err != nil {
		m.forget(id)
		return nil, err
	}
	m.writeMu.Lock()
	err = WriteFrame(conn, frame, MaxPayloadFrame)
	m.writeMu.Unlock()
	if err != nil {
		m.forget(id)
		m.dropConn(conn, err)
		return nil, &BackendConnectionError{Kind: ConnectionOffline, Err: err}
	}

	select {
	case <-ctx.Done():
		m.forget(id)
		return nil, ctx.Err()
	case raw, ok := <-reply:
		if !ok {
			return nil, &BackendConnectionError{Kind: ConnectionOffline, Err: fmt.Errorf("connection lost")}
		}
		return raw, nil
	}
}

// Close tears down the stream and fails every in-flight request.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	conn := m.conn
	m.conn = nil
	pending := m.pending
	m.pending = make(map[uint64]chan []byte)
	m.mu.Unlock()

	for _, reply := range pending {
		close(reply)
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (m *Manager) ensureConnected(ctx context.Context) (net.Conn, error) {
	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, &BackendConnectionError{Kind: ConnectionOffline, Err: fmt.Errorf("manager closed")}
	}
	if m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	m.mu.Unlock()

	if m.backoff > 0 {
		m.logger.Debug("waiting before backend reconnect", "delay", m.backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.clock.After(m.backoff):
		}
	}

	conn, err := m.dial(ctx)
	if err != nil {
		if m.backoff == 0 {
			m.backoff = reconnectInitialDelay
		} else if m.backoff < reconnectMaxDelay {
			m.backoff *= 2
			if m.backoff > reconnectMaxDelay {
				m.backoff = reconnectMaxDelay
			}
		}
		m.logger.Warn("backend dial failed", "error", err, "next_delay", m.backoff)
		return nil, &BackendConnectionError{Kind: ConnectionOffline, Err: err}
	}
	m.backoff = 0

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	go m.readLoop(conn)
	m.logger.Debug("backend connection established")
	return conn, nil
}

func (m *Manager) readLoop(conn net.Conn) {
	for {
		frame, err := ReadFrame(conn, MaxPayloadFrame)
		if err != nil {
			m.dropConn(conn, err)
			return
		}
		var wire exchangeWire
		if err := codec.Unmarshal(frame, &wire); err != nil {
			m.logger.Warn("malformed reply frame", "error", err)
			m.dropConn(conn, err)
			return
		}
		m.mu.Lock()
		reply, ok := m.pending[wire.ID]
		delete(m.pending, wire.ID)
		m.mu.Unlock()
		if !ok {
			// The awaiter was cancelled; drop the late reply.
			m.logger.Debug("discarding reply for abandoned request", "id", wire.ID)
			continue
		}
		reply <- wire.Payload
	}
}

// dropConn detaches a broken stream and fails its in-flight requests.
// A newer connection is left untouched.
func (m *Manager) dropConn(conn net.Conn, cause error) {
	m.mu.Lock()
	if m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	pending := m.pending
	m.pending = make(map[uint64]chan []byte)
	m.mu.Unlock()

	conn.Close()
	for _, reply := range pending {
		close(reply)
	}
	if len(pending) > 0 || !m.isClosed() {
		m.logger.Warn("backend connection lost", "error", cause, "failed_requests", len(pending))
	}
}

// forget removes a pending request entry so the read loop discards
// its reply if one arrives later.
func (m *Manager) forget(id uint64) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
