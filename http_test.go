package surface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/surface/testutil"
)

func TestHTTP_Call(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().Call("add_account", nil).Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertHeader(t, w, "Content-Type", "application/json")
	testutil.AssertRPCResult(t, w, 7)
}

func TestHTTP_KeyedAndPositional(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().Call("sub", map[string]int{"b": 1, "a": 5}).Serve(app.Handler())
	testutil.AssertRPCResult(t, w, 4)

	w = testutil.NewRequest().Call("sub", []int{5, 1}).Serve(app.Handler())
	testutil.AssertRPCResult(t, w, 4)
}

func TestHTTP_BusinessError(t *testing.T) {
	host := newTestHost()
	host.fail = true
	app := newTestApp(host)

	w := testutil.NewRequest().Call("add_account", nil).Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
	errResp := testutil.AssertRPCError(t, w, 1)
	assert.Equal(t, "no space left", errResp.Message)
}

func TestHTTP_GetConfigNull(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().Call("get_config", map[string]string{"key": "addr"}).Serve(app.Handler())
	resp := testutil.DecodeRPC(t, w)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, "null", string(resp.Result))
	assert.JSONEq(t, "1", string(resp.ID))
}

func TestHTTP_Notification(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().Notify("ping", nil).Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusNoContent)
	assert.Empty(t, w.Body.String())
}

func TestHTTP_Batch(t *testing.T) {
	app := newTestApp(newTestHost())

	body := `[
		{"jsonrpc": "2.0", "id": 1, "method": "sub", "params": [5, 1]},
		{"jsonrpc": "2.0", "method": "ping"},
		{"jsonrpc": "2.0", "id": "x", "method": "nope"},
		{"jsonrpc": "2.0", "id": 3, "method": "echo", "params": [[1, 2, 3]]},
		42
	]`
	w := testutil.NewRequest().POST("/").WithBody(body).Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)

	var responses []testutil.RPCResponse
	testutil.DecodeJSON(t, w, &responses)
	require.Len(t, responses, 4)

	assert.JSONEq(t, "1", string(responses[0].ID))
	assert.JSONEq(t, "4", string(responses[0].Result))

	assert.JSONEq(t, `"x"`, string(responses[1].ID))
	require.NotNil(t, responses[1].Error)
	assert.Equal(t, int(CodeMethodNotFound), responses[1].Error.Code)

	assert.JSONEq(t, "3", string(responses[2].ID))
	assert.JSONEq(t, "[1,2,3]", string(responses[2].Result))

	assert.JSONEq(t, "null", string(responses[3].ID))
	require.NotNil(t, responses[3].Error)
	assert.Equal(t, int(CodeInvalidRequest), responses[3].Error.Code)
}

func TestHTTP_BatchOfNotifications(t *testing.T) {
	app := newTestApp(newTestHost())

	body := `[{"jsonrpc": "2.0", "method": "ping"}, {"jsonrpc": "2.0", "method": "add_account"}]`
	w := testutil.NewRequest().POST("/").WithBody(body).Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusNoContent)
}

func TestHTTP_RequestErrors(t *testing.T) {
	app := newTestApp(newTestHost())

	tests := []struct {
		name     string
		body     string
		wantCode ErrorCode
	}{
		{"parse error", `{"jsonrpc": "2.0", "method":`, CodeParseError},
		{"empty body", ``, CodeParseError},
		{"empty batch", `[]`, CodeInvalidRequest},
		{"wrong version", `{"jsonrpc": "1.0", "id": 1, "method": "ping"}`, CodeInvalidRequest},
		{"missing method", `{"jsonrpc": "2.0", "id": 1}`, CodeInvalidRequest},
		{"not an object", `"ping"`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc": "2.0", "id": 1, "method": "nope"}`, CodeMethodNotFound},
		{"invalid params", `{"jsonrpc": "2.0", "id": 1, "method": "sub", "params": "x"}`, CodeInvalidParams},
		{"panic", `{"jsonrpc": "2.0", "id": 1, "method": "boom"}`, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.NewRequest().POST("/").WithBody(tt.body).Serve(app.Handler())
			testutil.AssertStatus(t, w, http.StatusOK)
			testutil.AssertRPCError(t, w, int(tt.wantCode))
		})
	}
}

func TestHTTP_ParseErrorHasNullID(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().POST("/").WithBody(`{`).Serve(app.Handler())
	var raw map[string]json.RawMessage
	testutil.DecodeJSON(t, w, &raw)
	assert.JSONEq(t, "null", string(raw["id"]))
	assert.NotContains(t, raw, "result")
}

func TestHTTP_BodyTooLarge(t *testing.T) {
	app := newTestApp(newTestHost()).WithMaxRequestBodySize(16)

	w := testutil.NewRequest().Call("sub", []int{5, 1}).Serve(app.Handler())
	testutil.AssertRPCError(t, w, int(CodeInvalidRequest))
}

func TestHTTP_SetHeader(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().Call("ping", nil).Serve(app.Handler())
	testutil.AssertHeader(t, w, "X-Pinged", "ping")
}

func TestHTTP_Query(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().GET("/sub").WithQuery("a", "5").WithQuery("b", "1").Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, map[string]any{"result": 4})

	w = testutil.NewRequest().GET("/get_config").WithQuery("account_id", "1").WithQuery("key", "addr").Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, map[string]any{"result": nil})

	w = testutil.NewRequest().GET("/add_account").Serve(app.Handler())
	testutil.AssertJSONResponse(t, w, map[string]any{"result": 7})
}

func TestHTTP_QueryErrors(t *testing.T) {
	host := newTestHost()
	host.fail = true
	app := newTestApp(host)

	tests := []struct {
		name       string
		path       string
		query      map[string]string
		wantStatus int
		wantCode   ErrorCode
	}{
		{"unknown method", "/nope", nil, http.StatusNotFound, CodeMethodNotFound},
		{"root", "/", nil, http.StatusNotFound, CodeMethodNotFound},
		{"bad query", "/sub", map[string]string{"a": "five"}, http.StatusBadRequest, CodeInvalidParams},
		{"business error", "/add_account", nil, http.StatusInternalServerError, CodeServerError},
		{"panic", "/boom", nil, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.NewRequest().GET(tt.path)
			for k, v := range tt.query {
				b.WithQuery(k, v)
			}
			w := b.Serve(app.Handler())
			testutil.AssertStatus(t, w, tt.wantStatus)
			testutil.AssertJSONError(t, w, int(tt.wantCode))
		})
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	app := newTestApp(newTestHost())

	req, w := testutil.NewRequest().Build()
	req.Method = http.MethodPut
	app.Handler().ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusMethodNotAllowed)
	testutil.AssertHeader(t, w, "Allow", "GET, POST")
}

func TestHTTP_PostToOtherPath(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().POST("/rpc").WithBody(`{}`).Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestHTTP_Middleware(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	app := newTestApp(newTestHost()).WithMiddleware(mw("outer")).WithMiddleware(mw("inner"))

	testutil.NewRequest().Call("ping", nil).Serve(app.Handler())
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestHTTP_DisconnectFinishesInflight(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"post", http.MethodPost, "/", `{"jsonrpc": "2.0", "id": 1, "method": "wait"}`},
		{"query", http.MethodGet, "/wait", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newTestHost()
			app := newTestApp(host)

			ctx, cancel := context.WithCancel(context.Background())
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)).WithContext(ctx)
			w := httptest.NewRecorder()

			served := make(chan struct{})
			go func() {
				defer close(served)
				app.Handler().ServeHTTP(w, req)
			}()

			<-host.started
			cancel()
			close(host.release)

			select {
			case <-served:
			case <-time.After(2 * time.Second):
				t.Fatal("handler did not return after release")
			}
			assert.Equal(t, int32(1), host.completed.Load())
			assert.Equal(t, "", host.waitErr.Load(), "handler context was canceled by the client disconnect")
		})
	}
}

func TestHTTP_NullIDIsNotification(t *testing.T) {
	app := newTestApp(newTestHost())

	w := testutil.NewRequest().POST("/").WithBody(`{"jsonrpc": "2.0", "id": null, "method": "ping"}`).Serve(app.Handler())
	testutil.AssertStatus(t, w, http.StatusNoContent)
}

func TestHTTP_StringIDAndErrorData(t *testing.T) {
	app := newTestApp(newTestHost())

	body := `{"jsonrpc": "2.0", "id": "abc", "method": "save_contact", "params": {"contact": {"id": 1}}}`
	w := testutil.NewRequest().POST("/").WithBody(body).Serve(app.Handler())
	resp := testutil.DecodeRPC(t, w)
	assert.JSONEq(t, `"abc"`, string(resp.ID))
	require.NotNil(t, resp.Error)
	assert.Equal(t, int(CodeInvalidParams), resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Data)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "result")
}
