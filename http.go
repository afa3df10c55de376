package surface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/jsonrpc2"
)

// idlessReply answers a request whose id could not be read. jsonrpc2.ID
// has no null form, so these replies carry a nil *jsonrpc2.ID.
type idlessReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *jsonrpc2.ID    `json:"id"`
	Error   *jsonrpc2.Error `json:"error"`
}

func idless(e *Error) *idlessReply {
	return &idlessReply{JSONRPC: "2.0", Error: toRPCError(e)}
}

// Handler returns an http.Handler for use with http.ListenAndServe or other
// HTTP servers. The returned handler includes all configured middleware.
//
//	POST /          JSON-RPC 2.0 request or batch
//	GET  /{method}  query parameters decoded into the keyed parameter object
//
// Example:
//
//	app := surface.NewApp().Mount(table).WithMiddleware(cors)
//	http.ListenAndServe(":8080", app.Handler())
func (a *App) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	// Apply middleware in reverse order so first added is outermost
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

func (a *App) serveHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			a.log().Error("PANIC recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			writeError(w, NewError(CodeInternal, fmt.Sprintf("internal server error (panic): %v", rec)), a.logger)
		}
	}()

	switch r.Method {
	case http.MethodPost:
		if r.URL.Path != "/" {
			writeError(w, NewError(CodeMethodNotFound, "route not found"), a.logger)
			return
		}
		a.servePost(w, r)
	case http.MethodGet:
		a.serveQuery(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = encodeErrorResponse(w, Errorf(CodeInvalidRequest, "method %s not allowed", r.Method))
	}
}

func (a *App) servePost(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if a.maxRequestBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, a.maxRequestBodySize)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.writeRPC(w, idless(Errorf(CodeInvalidRequest, "request body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		a.writeRPC(w, idless(Errorf(CodeParseError, "read body: %v", err)))
		return
	}

	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		a.writeRPC(w, idless(NewError(CodeParseError, "parse error")))
		return
	}

	if len(data) > 0 && data[0] == '[' {
		a.serveBatch(w, r, data)
		return
	}

	resp := a.handleRPC(w, r, data)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.writeRPC(w, resp)
}

// serveBatch runs every element of a batch concurrently and answers with
// the non-notification responses in request order. jsonrpc2 has no batch
// support, so the fan-out is done here and each element goes through
// handleRPC.
func (a *App) serveBatch(w http.ResponseWriter, r *http.Request, data []byte) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		a.writeRPC(w, idless(NewError(CodeParseError, "parse error")))
		return
	}
	if len(elems) == 0 {
		a.writeRPC(w, idless(NewError(CodeInvalidRequest, "empty batch")))
		return
	}

	responses := make([]any, len(elems))
	var wg sync.WaitGroup
	for i, elem := range elems {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if resp := a.handleRPC(nil, r, elem); resp != nil {
				responses[i] = resp
			}
		}()
	}
	wg.Wait()

	out := make([]any, 0, len(responses))
	for _, resp := range responses {
		if resp != nil {
			out = append(out, resp)
		}
	}
	if len(out) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	a.writeRPC(w, out)
}

// handleRPC runs one request object and returns its reply, or nil for a
// notification. w is nil inside a batch.
//
// The handler context is detached from the request so that a client
// disconnect does not abort the host operation.
func (a *App) handleRPC(w http.ResponseWriter, r *http.Request, raw json.RawMessage) any {
	var req jsonrpc2.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return idless(Errorf(CodeInvalidRequest, "invalid request: %v", err))
	}
	var version struct {
		JSONRPC string `json:"jsonrpc"`
	}
	_ = json.Unmarshal(raw, &version)

	var result any
	var envErr *Error
	switch {
	case version.JSONRPC != "2.0":
		envErr = NewError(CodeInvalidRequest, `jsonrpc must be "2.0"`)
	case req.Method == "":
		envErr = NewError(CodeInvalidRequest, "missing method")
	default:
		call := newCall(context.WithoutCancel(r.Context()), req.Method, TransportHTTP)
		call.request = r
		call.writer = w

		var payload json.RawMessage
		if req.Params != nil {
			payload = *req.Params
		}
		result, envErr = a.invoke(call, payload)
	}

	if req.Notif {
		if envErr != nil {
			a.log().Debug("notification failed",
				slog.String("method", req.Method),
				slog.Any("error", envErr))
		}
		return nil
	}

	resp := &jsonrpc2.Response{ID: req.ID}
	if envErr == nil {
		if err := resp.SetResult(result); err != nil {
			envErr = Errorf(CodeInternal, "encode result: %v", err)
		}
	}
	if envErr != nil {
		resp.Result = nil
		resp.Error = toRPCError(envErr)
	}
	return resp
}

func (a *App) writeRPC(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log().Error("failed to encode response", slog.Any("error", err))
	}
}

// serveQuery serves GET /{method}. Parameters come from the query string;
// the response uses the {"result"} / {"error"} envelope.
func (a *App) serveQuery(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")
	h, ok := a.Lookup(method)
	if method == "" || !ok {
		writeError(w, NewError(CodeMethodNotFound, "route not found"), a.logger)
		return
	}

	params, envErr := h.DecodeQuery(r.URL.Query())
	if envErr != nil {
		writeError(w, envErr, a.logger)
		return
	}

	call := newCall(context.WithoutCancel(r.Context()), method, TransportHTTP)
	call.request = r
	call.writer = w

	result, envErr := a.dispatcher().run(call, h, params)
	if envErr != nil {
		writeError(w, envErr, a.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := encodeResponse(w, result); err != nil {
		a.log().Error("failed to encode response", slog.Any("error", err))
	}
}
