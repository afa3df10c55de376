package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/broady/surface/surfacegen/provider"
)

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app.handlers == nil {
		t.Error("expected handlers map to be initialized")
	}
	if app.paramEncoding != ParamsEither {
		t.Errorf("paramEncoding = %q, want %q", app.paramEncoding, ParamsEither)
	}
	if app.maxRequestBodySize != 1<<20 {
		t.Errorf("maxRequestBodySize = %d, want 1MB", app.maxRequestBodySize)
	}
}

func TestApp_Options(t *testing.T) {
	app := NewApp().
		WithErrorTransformer(func(error) *Error { return nil }).
		WithMaskInternalErrors().
		WithParamSchemas().
		WithParamEncoding(ParamsKeyed).
		WithUnaryInterceptor(func(ctx *Call, params any, next HandlerFunc) (any, error) { return next(ctx, params) })

	if app.errorTransformer == nil {
		t.Error("expected error transformer to be set")
	}
	if !app.maskInternalErrors {
		t.Error("expected maskInternalErrors to be true")
	}
	if !app.paramSchemas {
		t.Error("expected paramSchemas to be true")
	}
	if app.paramEncoding != ParamsKeyed {
		t.Errorf("paramEncoding = %q, want keyed", app.paramEncoding)
	}
	if len(app.interceptors) != 1 {
		t.Errorf("expected 1 interceptor, got %d", len(app.interceptors))
	}
}

func TestApp_MountDuplicate(t *testing.T) {
	logger, buf := bufferLogger()
	first := newTestHost()
	second := newTestHost()
	second.fail = true

	app := NewApp().WithLogger(logger).Mount(newTestTable(first))
	before := app.Contracts()

	app.Mount(MustBind(second, []provider.MethodDecl{{Name: "add_account", Func: (*testHost).AddAccount}}))

	if !strings.Contains(buf.String(), "duplicate method registration") {
		t.Errorf("expected duplicate warning, got %s", buf.String())
	}

	after := app.Contracts()
	if len(after) != len(before) {
		t.Fatalf("Contracts() = %d after remount, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i].Name != after[i].Name {
			t.Errorf("Contracts()[%d] = %s, want %s", i, after[i].Name, before[i].Name)
		}
	}

	_, envErr := app.Invoke(context.Background(), "add_account", nil)
	if envErr == nil || envErr.Code != CodeServerError {
		t.Errorf("add_account() error = %v, want the replacement handler's failure", envErr)
	}
}

func TestApp_MountIdempotent(t *testing.T) {
	tbl := newTestTable(newTestHost())
	app := NewApp().WithLogger(quietLogger()).Mount(tbl).Mount(tbl)

	if got, want := len(app.Contracts()), len(tbl.Contracts()); got != want {
		t.Errorf("Contracts() = %d, want %d", got, want)
	}
}

func TestApp_InterceptorOrder(t *testing.T) {
	var order []string
	record := func(name string) UnaryInterceptor {
		return func(ctx *Call, params any, next HandlerFunc) (any, error) {
			order = append(order, name+":"+ctx.Method())
			res, err := next(ctx, params)
			order = append(order, name+":done")
			return res, err
		}
	}
	app := newTestApp(newTestHost()).
		WithUnaryInterceptor(record("first")).
		WithUnaryInterceptor(record("second"))

	res, envErr := app.Invoke(context.Background(), "sub", json.RawMessage(`[3, 1]`))
	if envErr != nil || res != 2 {
		t.Fatalf("sub() = %v, %v, want 2", res, envErr)
	}

	want := []string{"first:sub", "second:sub", "second:done", "first:done"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestApp_InterceptorSeesParams(t *testing.T) {
	var seen any
	app := newTestApp(newTestHost()).WithUnaryInterceptor(func(ctx *Call, params any, next HandlerFunc) (any, error) {
		seen = params
		return next(ctx, params)
	})

	app.Invoke(context.Background(), "sub", json.RawMessage(`{"a": 3, "b": 1}`))

	data, _ := json.Marshal(seen)
	if string(data) != `{"a":3,"b":1}` {
		t.Errorf("params = %s, want keyed parameter object", data)
	}
}

func TestApp_InterceptorShortCircuit(t *testing.T) {
	host := newTestHost()
	app := newTestApp(host).WithUnaryInterceptor(func(ctx *Call, params any, next HandlerFunc) (any, error) {
		return nil, NewError(CodeInvalidRequest, "denied")
	})

	_, envErr := app.Invoke(context.Background(), "add_account", nil)
	if envErr == nil || envErr.Code != CodeInvalidRequest || envErr.Message != "denied" {
		t.Errorf("add_account() error = %v, want denied", envErr)
	}
}

func TestApp_InterceptorReplacesParams(t *testing.T) {
	app := newTestApp(newTestHost()).WithUnaryInterceptor(func(ctx *Call, params any, next HandlerFunc) (any, error) {
		return next(ctx, "not the param object")
	})

	_, envErr := app.Invoke(context.Background(), "sub", json.RawMessage(`[3, 1]`))
	if envErr == nil || envErr.Code != CodeInternal {
		t.Errorf("sub() error = %v, want internal", envErr)
	}
}

func TestApp_ErrorTransformer(t *testing.T) {
	host := newTestHost()
	host.fail = true
	app := newTestApp(host).WithErrorTransformer(func(err error) *Error {
		if strings.Contains(err.Error(), "space") {
			return NewError(42, "quota")
		}
		return nil
	})

	_, envErr := app.Invoke(context.Background(), "add_account", nil)
	if envErr == nil || envErr.Code != 42 || envErr.Message != "quota" {
		t.Errorf("add_account() error = %v, want 42 quota", envErr)
	}
}

func TestApp_MaskInternalErrors(t *testing.T) {
	app := newTestApp(newTestHost()).WithMaskInternalErrors()

	_, envErr := app.Invoke(context.Background(), "boom", nil)
	if envErr == nil || envErr.Code != CodeInternal {
		t.Fatalf("boom() error = %v, want internal", envErr)
	}
	if envErr.Message != "internal server error" {
		t.Errorf("Message = %q, want masked", envErr.Message)
	}

	host := newTestHost()
	host.fail = true
	app = newTestApp(host).WithMaskInternalErrors()
	_, envErr = app.Invoke(context.Background(), "add_account", nil)
	if envErr.Message != "no space left" {
		t.Errorf("business error Message = %q, want unmasked", envErr.Message)
	}
}

func TestApp_PanicLogged(t *testing.T) {
	logger, buf := bufferLogger()
	app := NewApp().WithLogger(logger).Mount(newTestTable(newTestHost()))

	app.Invoke(context.Background(), "boom", nil)
	if !strings.Contains(buf.String(), "PANIC recovered") || !strings.Contains(buf.String(), "stack") {
		t.Errorf("expected panic log with stack, got %s", buf.String())
	}
}

func TestApp_ParamEncoding(t *testing.T) {
	tests := []struct {
		enc     ParamEncoding
		payload string
		wantErr bool
	}{
		{ParamsKeyed, `{"a": 3, "b": 1}`, false},
		{ParamsKeyed, `[3, 1]`, true},
		{ParamsPositional, `[3, 1]`, false},
		{ParamsPositional, `{"a": 3, "b": 1}`, true},
	}
	for _, tt := range tests {
		app := newTestApp(newTestHost()).WithParamEncoding(tt.enc)
		_, envErr := app.Invoke(context.Background(), "sub", json.RawMessage(tt.payload))
		if (envErr != nil) != tt.wantErr {
			t.Errorf("%s sub(%s) error = %v, wantErr %v", tt.enc, tt.payload, envErr, tt.wantErr)
		}
		if envErr != nil && envErr.Code != CodeInvalidParams {
			t.Errorf("%s sub(%s) code = %d, want %d", tt.enc, tt.payload, envErr.Code, CodeInvalidParams)
		}
	}
}

func TestApp_ParamSchemas(t *testing.T) {
	app := newTestApp(newTestHost()).WithParamSchemas()

	_, envErr := app.Invoke(context.Background(), "get_config", json.RawMessage(`{"account_id": -1, "key": "addr"}`))
	if envErr == nil || envErr.Code != CodeInvalidParams {
		t.Fatalf("get_config() error = %v, want invalid params", envErr)
	}
	if _, ok := envErr.Data["causes"]; !ok {
		t.Errorf("Data = %v, want schema causes", envErr.Data)
	}

	_, envErr = app.Invoke(context.Background(), "sub", json.RawMessage(`[1, 2, 3]`))
	if envErr == nil || envErr.Code != CodeInvalidParams {
		t.Errorf("sub() error = %v, want invalid params for extra items", envErr)
	}

	res, envErr := app.Invoke(context.Background(), "sub", json.RawMessage(`[3, 1]`))
	if envErr != nil || res != 2 {
		t.Errorf("sub() = %v, %v, want 2", res, envErr)
	}
}

func TestApp_ContextCanceledIsBusinessError(t *testing.T) {
	app := NewApp().WithLogger(quietLogger()).Mount(MustBind(newTestHost(), []provider.MethodDecl{
		{Name: "cancelled", Func: func(ctx context.Context) error { return context.Canceled }},
	}))

	_, envErr := app.Invoke(context.Background(), "cancelled", nil)
	if envErr == nil || envErr.Code != CodeServerError {
		t.Errorf("cancelled() error = %v, want code 1", envErr)
	}
}

func TestApp_HostReturnsEnvelope(t *testing.T) {
	app := NewApp().WithLogger(quietLogger()).Mount(MustBind(newTestHost(), []provider.MethodDecl{
		{Name: "teapot", Func: func(ctx context.Context) error {
			return fmt.Errorf("brewing: %w", NewError(418, "teapot"))
		}},
	}))

	_, envErr := app.Invoke(context.Background(), "teapot", nil)
	if envErr == nil || envErr.Code != 418 {
		t.Errorf("teapot() error = %v, want code 418", envErr)
	}
}
