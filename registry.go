// Package surface serves compiled method contracts to remote callers over
// JSON-RPC 2.0.
//
// A dispatch table is built from contracts with BuildTable or Bind and
// mounted on an App, which serves it over HTTP (App.Handler) and over
// persistent Content-Length framed connections (App.ServeConn,
// App.ServeListener).
package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"

	"github.com/broady/surface/surfacegen/ir"
)

// App is the central router for mounted dispatch tables.
// It manages interceptors, middleware, error handling and live connections.
// Use Handler() to get an http.Handler for use with http.ListenAndServe.
type App struct {
	mu                 sync.RWMutex
	handlers           map[string]*Handler
	order              []string
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	interceptors       []UnaryInterceptor
	middlewares        []func(http.Handler) http.Handler
	logger             *slog.Logger
	maxRequestBodySize int64
	paramEncoding      ParamEncoding
	paramSchemas       bool

	connMu    sync.Mutex
	conns     map[string]*conn
	connWG    sync.WaitGroup
	shutdown  bool
	closing   chan struct{}
	closeOnce sync.Once
}

func NewApp() *App {
	return &App{
		handlers:           make(map[string]*Handler),
		conns:              make(map[string]*conn),
		closing:            make(chan struct{}),
		maxRequestBodySize: 1 << 20, // 1MB default
		paramEncoding:      ParamsEither,
	}
}

// WithErrorTransformer adds a custom error transformer.
// It returns the app for chaining.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors enables masking of internal error messages.
// The original error is still available to interceptors and logging.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithUnaryInterceptor adds an interceptor.
// Interceptors execute in the order they were added.
func (a *App) WithUnaryInterceptor(i UnaryInterceptor) *App {
	a.interceptors = append(a.interceptors, i)
	return a
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithLogger sets a custom logger for the app.
// If not set, slog.Default() will be used.
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMaxRequestBodySize sets the maximum HTTP request body size.
// A value of 0 means no limit. Default is 1MB (1 << 20).
func (a *App) WithMaxRequestBodySize(size int64) *App {
	a.maxRequestBodySize = size
	return a
}

// WithParamEncoding selects which payload forms are accepted.
// Default is ParamsEither.
func (a *App) WithParamEncoding(enc ParamEncoding) *App {
	a.paramEncoding = enc
	return a
}

// WithParamSchemas validates every raw payload against the compiled JSON
// Schema of its method before decoding.
func (a *App) WithParamSchemas() *App {
	a.paramSchemas = true
	return a
}

func (a *App) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// Mount installs every handler of t. A handler whose name is already
// mounted replaces the old one, keeping its position, and a warning is
// logged.
func (a *App) Mount(t *Table) *App {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range t.Contracts() {
		h, _ := t.Lookup(c.Name)
		if _, exists := a.handlers[c.Name]; exists {
			a.log().Warn("duplicate method registration",
				slog.String("method", c.Name))
		} else {
			a.order = append(a.order, c.Name)
		}
		a.handlers[c.Name] = h
	}
	return a
}

// Contracts returns the mounted contracts in mount order.
func (a *App) Contracts() []ir.MethodContract {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]ir.MethodContract, len(a.order))
	for i, name := range a.order {
		out[i] = a.handlers[name].Contract()
	}
	return out
}

// Lookup returns the mounted handler of a wire name.
func (a *App) Lookup(name string) (*Handler, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.handlers[name]
	return h, ok
}

// Invoke dispatches one call as a transport would.
func (a *App) Invoke(ctx context.Context, method string, payload json.RawMessage) (any, *Error) {
	return a.invoke(newCall(ctx, method, ""), payload)
}

func (a *App) invoke(call *Call, payload json.RawMessage) (any, *Error) {
	h, ok := a.Lookup(call.method)
	if !ok {
		return nil, Errorf(CodeMethodNotFound, "method not found: %s", call.method)
	}
	d := a.dispatcher()
	return d.dispatch(call, h, payload)
}

func (a *App) dispatcher() *dispatcher {
	return &dispatcher{
		encoding:    a.paramEncoding,
		schemas:     a.paramSchemas,
		interceptor: chainInterceptors(a.interceptors),
		transform:   a.errorTransformer,
		mask:        a.maskInternalErrors,
		logger:      a.log(),
	}
}

// dispatcher runs one call through schema validation, decoding, the
// interceptor chain and the handler, and maps failures to envelopes.
type dispatcher struct {
	encoding    ParamEncoding
	schemas     bool
	interceptor UnaryInterceptor
	transform   ErrorTransformer
	mask        bool
	logger      *slog.Logger
}

func (d *dispatcher) dispatch(call *Call, h *Handler, payload json.RawMessage) (any, *Error) {
	if d.schemas {
		if envErr := h.checkSchema(payload); envErr != nil {
			return nil, envErr
		}
	}
	params, envErr := h.Decode(payload, d.encoding)
	if envErr != nil {
		return nil, envErr
	}
	return d.run(call, h, params)
}

func (d *dispatcher) run(call *Call, h *Handler, params any) (res any, envErr *Error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger := d.logger
			if logger == nil {
				logger = slog.Default()
			}
			logger.Error("PANIC recovered",
				slog.String("method", h.Name()),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			res = nil
			envErr = d.mapError(NewError(CodeInternal, fmt.Sprintf("internal server error (panic): %v", rec)))
		}
	}()

	final := func(ctx context.Context, params any) (any, error) {
		return h.Invoke(ctx, params)
	}

	var err error
	if d.interceptor != nil {
		res, err = d.interceptor(call, params, final)
	} else {
		res, err = final(call, params)
	}
	if err != nil {
		return nil, d.mapError(err)
	}
	return res, nil
}

func (d *dispatcher) mapError(err error) *Error {
	var envErr *Error
	if d.transform != nil {
		envErr = d.transform(err)
	}
	if envErr == nil {
		envErr = DefaultErrorTransformer(err)
	}
	if d.mask && envErr.Code == CodeInternal {
		envErr = NewError(CodeInternal, "internal server error")
	}
	return envErr
}
