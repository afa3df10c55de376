package surface

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/sourcegraph/jsonrpc2"
)

// ErrAppClosed is returned by ServeConn and ServeListener after Shutdown.
var ErrAppClosed = errors.New("surface: app is shut down")

// Connection lifecycle states.
const (
	ConnOpen     = "open"
	ConnDraining = "draining"
	ConnClosed   = "closed"
)

const (
	eventDrain = "drain"
	eventClose = "close"
)

// conn is one persistent JSON-RPC connection. Requests are accepted only
// while it is open; once draining it waits for in-flight handlers before
// moving to closed.
type conn struct {
	id     string
	app    *App
	logger *slog.Logger
	rpc    *jsonrpc2.Conn

	mu       sync.Mutex // guards fsm transitions against inflight.Add
	fsm      *fsm.FSM
	inflight sync.WaitGroup

	peerGone  atomic.Bool
	stop      chan struct{}
	closeOnce sync.Once
}

func (a *App) newConn() *conn {
	c := &conn{
		id:   uuid.NewString(),
		app:  a,
		stop: make(chan struct{}),
	}
	c.logger = a.log().With(slog.String("conn", c.id))
	c.fsm = fsm.NewFSM(ConnOpen,
		fsm.Events{
			{Name: eventDrain, Src: []string{ConnOpen}, Dst: ConnDraining},
			{Name: eventClose, Src: []string{ConnDraining}, Dst: ConnClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.logger.Debug("connection state changed",
					slog.String("from", e.Src),
					slog.String("to", e.Dst))
			},
		},
	)
	return c
}

// ServeConn serves JSON-RPC 2.0 with Content-Length framing on rwc until
// the peer disconnects, ctx is cancelled or the app shuts down. Each
// request runs on its own goroutine with a context detached from the
// connection's cancellation. ServeConn returns after every in-flight
// handler has completed.
func (a *App) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) error {
	c := a.newConn()
	if !a.track(c) {
		rwc.Close()
		return ErrAppClosed
	}
	defer a.untrack(c)

	c.logger.Info("connection opened")
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	c.rpc = jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(c))

	select {
	case <-c.rpc.DisconnectNotify():
		c.peerGone.Store(true)
	case <-ctx.Done():
	case <-c.stop:
	}

	c.drain()
	if err := c.rpc.Close(); err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		c.logger.Debug("close connection", slog.Any("error", err))
	}
	c.logger.Info("connection closed")
	return nil
}

// Handle implements jsonrpc2.Handler.
func (c *conn) Handle(ctx context.Context, rc *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if !c.acquire() {
		if !req.Notif {
			c.reply(ctx, rc, req, nil, NewError(CodeInternal, "connection is draining"))
		}
		return
	}
	defer c.inflight.Done()

	call := newCall(context.WithoutCancel(ctx), req.Method, TransportJSONRPC)
	call.connID = c.id

	var payload json.RawMessage
	if req.Params != nil {
		payload = *req.Params
	}
	result, envErr := c.app.invoke(call, payload)
	if req.Notif {
		return
	}
	if c.peerGone.Load() {
		c.logger.Debug("dropping reply for disconnected peer",
			slog.String("method", req.Method))
		return
	}
	c.reply(ctx, rc, req, result, envErr)
}

func (c *conn) reply(ctx context.Context, rc *jsonrpc2.Conn, req *jsonrpc2.Request, result any, envErr *Error) {
	var err error
	if envErr != nil {
		err = rc.ReplyWithError(ctx, req.ID, toRPCError(envErr))
	} else {
		err = rc.Reply(ctx, req.ID, result)
	}
	if err != nil && !errors.Is(err, jsonrpc2.ErrClosed) {
		c.logger.Warn("failed to send reply",
			slog.String("method", req.Method),
			slog.Any("error", err))
	}
}

func toRPCError(e *Error) *jsonrpc2.Error {
	rpcErr := &jsonrpc2.Error{Code: int64(e.Code), Message: e.Message}
	if len(e.Data) > 0 {
		rpcErr.SetError(e.Data)
	}
	return rpcErr
}

func (c *conn) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fsm.Is(ConnOpen) {
		return false
	}
	c.inflight.Add(1)
	return true
}

func (c *conn) drain() {
	c.mu.Lock()
	if err := c.fsm.Event(context.Background(), eventDrain); err != nil {
		c.logger.Debug("drain", slog.Any("error", err))
	}
	c.mu.Unlock()

	c.inflight.Wait()

	c.mu.Lock()
	if err := c.fsm.Event(context.Background(), eventClose); err != nil {
		c.logger.Debug("close", slog.Any("error", err))
	}
	c.mu.Unlock()
}

// State returns the lifecycle state.
func (c *conn) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsm.Current()
}

func (c *conn) requestStop() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (a *App) track(c *conn) bool {
	a.connMu.Lock()
	defer a.connMu.Unlock()
	if a.shutdown {
		return false
	}
	a.conns[c.id] = c
	a.connWG.Add(1)
	return true
}

func (a *App) untrack(c *conn) {
	a.connMu.Lock()
	delete(a.conns, c.id)
	a.connMu.Unlock()
	a.connWG.Done()
}

// ConnStates returns the lifecycle state of every live connection, keyed
// by connection ID.
func (a *App) ConnStates() map[string]string {
	a.connMu.Lock()
	defer a.connMu.Unlock()
	out := make(map[string]string, len(a.conns))
	for id, c := range a.conns {
		out[id] = c.State()
	}
	return out
}

// ServeListener accepts connections on ln and serves each with ServeConn.
// It returns nil once ctx is cancelled or the app shuts down.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
		case <-a.closing:
		}
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || a.isShutdown() {
				return nil
			}
			return errors.Wrap(err, "accept")
		}
		go func() {
			if err := a.ServeConn(ctx, nc); err != nil {
				a.log().Debug("serve connection", slog.Any("error", err))
			}
		}()
	}
}

func (a *App) isShutdown() bool {
	a.connMu.Lock()
	defer a.connMu.Unlock()
	return a.shutdown
}

// Shutdown stops accepting connections and drains every live one. It
// returns once all connections are closed, or with ctx's error if ctx is
// done first.
func (a *App) Shutdown(ctx context.Context) error {
	a.closeOnce.Do(func() { close(a.closing) })

	a.connMu.Lock()
	a.shutdown = true
	for _, c := range a.conns {
		c.requestStop()
	}
	a.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		a.connWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
