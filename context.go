package surface

import (
	"context"
	"net/http"
)

type contextKey struct {
	name string
}

var callKey = &contextKey{"call"}

// Transport names reported by Call.Transport.
const (
	TransportHTTP    = "http"
	TransportJSONRPC = "jsonrpc"
)

// Call is the context of one method invocation. It embeds the request
// context and is what interceptors receive.
type Call struct {
	context.Context

	method    string
	transport string
	connID    string
	request   *http.Request
	writer    http.ResponseWriter
}

func newCall(parent context.Context, method, transport string) *Call {
	c := &Call{method: method, transport: transport}
	c.Context = context.WithValue(parent, callKey, c)
	return c
}

// NewTestCall returns a Call for exercising interceptors outside a transport.
func NewTestCall(parent context.Context, method string) *Call {
	return newCall(parent, method, "")
}

// Method returns the wire name of the invoked method.
func (c *Call) Method() string { return c.method }

// Transport returns TransportHTTP or TransportJSONRPC.
func (c *Call) Transport() string { return c.transport }

// ConnID returns the persistent connection ID, or "" for HTTP calls.
func (c *Call) ConnID() string { return c.connID }

// HTTPRequest returns the HTTP request, or nil for connection calls.
func (c *Call) HTTPRequest() *http.Request { return c.request }

// SetHeader sets an HTTP response header. It is a no-op outside HTTP.
func (c *Call) SetHeader(key, value string) {
	if c.writer != nil {
		c.writer.Header().Set(key, value)
	}
}

// FromContext returns the Call stored in ctx.
func FromContext(ctx context.Context) (*Call, bool) {
	if c, ok := ctx.(*Call); ok {
		return c, true
	}
	c, ok := ctx.Value(callKey).(*Call)
	return c, ok
}

// MethodFromContext returns the wire name of the current call.
func MethodFromContext(ctx context.Context) (string, bool) {
	c, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return c.method, true
}

// ConnIDFromContext returns the connection ID of the current call.
func ConnIDFromContext(ctx context.Context) (string, bool) {
	c, ok := FromContext(ctx)
	if !ok || c.connID == "" {
		return "", false
	}
	return c.connID, true
}
