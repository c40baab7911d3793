// Package livebus pushes verdict deltas to subscribed TCP clients over a
// newline-delimited, compact-JSON wire protocol.
package livebus

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/git-afsantos/hplrv/internal/manager"
)

const (
	defaultMaxConnections = 64
	defaultQueueSize      = 256
	// writerRateLimit caps how many lines/sec a single slow client's
	// writer goroutine will attempt to flush, so a client that reads
	// slowly degrades gracefully instead of spinning hot on retries.
	writerRateLimit = rate.Limit(1000)
)

// Bus is a TCP server that broadcasts a status snapshot on connect and
// verdict deltas thereafter. It implements manager.Sink.
type Bus struct {
	addr       string
	maxConns   int
	queueSize  int
	logger     *slog.Logger
	statusFn   func() []manager.StatusEntry

	mu       sync.Mutex
	listener net.Listener
	clients  map[*client]struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	connSem  chan struct{}
}

type client struct {
	conn    net.Conn
	queue   chan []byte
	limiter *rate.Limiter
}

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithMaxConnections overrides the default connection cap (64).
func WithMaxConnections(n int) Option {
	return func(b *Bus) { b.maxConns = n }
}

// New creates a Bus that serves statusFn's snapshot to newly connected
// clients. Call Start to begin accepting connections.
func New(statusFn func() []manager.StatusEntry, opts ...Option) *Bus {
	b := &Bus{
		maxConns:  defaultMaxConnections,
		queueSize: defaultQueueSize,
		logger:    slog.Default(),
		statusFn:  statusFn,
		clients:   map[*client]struct{}{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start binds addr ("host:port") and begins accepting connections.
func (b *Bus) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("live-update bus listen: %w", err)
	}
	b.mu.Lock()
	b.addr = addr
	b.listener = ln
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.connSem = make(chan struct{}, b.maxConns)
	b.mu.Unlock()

	b.wg.Add(1)
	go b.acceptLoop()
	b.logger.Info("live-update bus started", "addr", ln.Addr().String())
	return nil
}

// Stop closes the listener, disconnects every client, and waits for all
// goroutines to exit. Safe to call once; a second call is a no-op.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.cancel == nil {
		b.mu.Unlock()
		return
	}
	cancel := b.cancel
	b.cancel = nil
	ln := b.listener
	b.mu.Unlock()

	cancel()
	if ln != nil {
		ln.Close()
	}

	b.mu.Lock()
	for c := range b.clients {
		close(c.queue)
	}
	b.clients = map[*client]struct{}{}
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("live-update bus stopped")
}

func (b *Bus) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			if !isClosedErr(err) {
				b.logger.Warn("live-update bus accept error", "error", err)
			}
			return
		}

		select {
		case b.connSem <- struct{}{}:
		default:
			b.logger.Warn("live-update bus connection limit reached, rejecting", "remote", conn.RemoteAddr())
			conn.Close()
			continue
		}

		b.wg.Add(1)
		go b.handleConn(conn)
	}
}

func (b *Bus) handleConn(conn net.Conn) {
	defer b.wg.Done()
	defer func() { <-b.connSem }()
	defer conn.Close()

	c := &client{
		conn:    conn,
		queue:   make(chan []byte, b.queueSize),
		limiter: rate.NewLimiter(writerRateLimit, 1),
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	b.logger.Info("live-update bus client connected", "remote", conn.RemoteAddr())
	defer func() {
		b.mu.Lock()
		delete(b.clients, c)
		b.mu.Unlock()
		b.logger.Info("live-update bus client disconnected", "remote", conn.RemoteAddr())
	}()

	snapshot, err := json.Marshal(toStatusLines(b.statusFn()))
	if err != nil {
		b.logger.Warn("live-update bus encode snapshot", "error", fmt.Errorf("%w: %v", ErrTransport, err))
		return
	}
	if err := b.writeLine(c, snapshot); err != nil {
		b.logger.Warn("live-update bus write snapshot", "error", err, "remote", conn.RemoteAddr())
		return
	}

	// A reader goroutine exists only to notice the client closing its
	// end; the bus never expects client-sent lines.
	go func() {
		r := bufio.NewReader(conn)
		for {
			if _, err := r.ReadByte(); err != nil {
				b.mu.Lock()
				if _, ok := b.clients[c]; ok {
					delete(b.clients, c)
					close(c.queue)
				}
				b.mu.Unlock()
				return
			}
		}
	}()

	b.writerLoop(c)
}

func (b *Bus) writerLoop(c *client) {
	for line := range c.queue {
		if err := b.writeLine(c, line); err != nil {
			b.logger.Warn("live-update bus write error", "error", err, "remote", c.conn.RemoteAddr())
			return
		}
	}
}

func (b *Bus) writeLine(c *client, line []byte) error {
	if err := c.limiter.Wait(b.ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if _, err := c.conn.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// Publish implements manager.Sink: it broadcasts delta to every
// connected client's queue without blocking. A full queue drops the
// update for that one slow client; others are unaffected.
func (b *Bus) Publish(delta manager.VerdictDelta) {
	line, err := json.Marshal(toDeltaLine(delta))
	if err != nil {
		b.logger.Warn("live-update bus encode delta", "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.queue <- line:
		default:
			b.logger.Warn("live-update bus client queue full, dropping delta", "remote", c.conn.RemoteAddr())
		}
	}
}

func isClosedErr(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
