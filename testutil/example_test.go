package testutil_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/broady/surface"
	"github.com/broady/surface/surfacegen/provider"
	"github.com/broady/surface/testutil"
)

type greeter struct{}

type Person struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (greeter) Greet(ctx context.Context, p Person) (string, error) {
	if p.Name == "mallory" {
		return "", errors.New("not welcome")
	}
	return "Hello, " + p.Name, nil
}

func (greeter) Search(ctx context.Context, query string, limit int) []string {
	out := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, query)
	}
	return out
}

func (greeter) Key(ctx context.Context) string {
	call, _ := surface.FromContext(ctx)
	if req := call.HTTPRequest(); req != nil {
		return req.Header.Get("X-API-Key")
	}
	return ""
}

func newGreeterApp() http.Handler {
	tbl := surface.MustBind(greeter{}, []provider.MethodDecl{
		{Name: "greet", Func: greeter.Greet, ParamNames: []string{"person"}},
		{Name: "search", Func: greeter.Search, ParamNames: []string{"query", "limit"}},
		{Name: "key", Func: greeter.Key},
	})
	return surface.NewApp().Mount(tbl).Handler()
}

// TestRequestBuilder demonstrates the fluent API for building requests.
func TestRequestBuilder(t *testing.T) {
	w := testutil.NewRequest().
		Call("greet", []any{Person{Name: "Alice", Email: "alice@example.com"}}).
		Serve(newGreeterApp())

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertRPCResult(t, w, "Hello, Alice")
}

func TestRequestBuilder_Validation(t *testing.T) {
	w := testutil.NewRequest().
		Call("greet", map[string]any{"person": Person{Name: "Alice", Email: "invalid-email"}}).
		Serve(newGreeterApp())

	errResp := testutil.AssertRPCError(t, w, -32602)
	if errResp.Data["person.email"] == nil && errResp.Data["email"] == nil {
		t.Errorf("expected email detail, got %v", errResp.Data)
	}
}

func TestRequestBuilder_BusinessError(t *testing.T) {
	w := testutil.NewRequest().
		Call("greet", []any{Person{Name: "mallory", Email: "m@example.com"}}).
		Serve(newGreeterApp())

	errResp := testutil.AssertRPCError(t, w, 1)
	if errResp.Message != "not welcome" {
		t.Errorf("Message = %q, want %q", errResp.Message, "not welcome")
	}
}

// TestRequestBuilder_GET demonstrates the query form of a call.
func TestRequestBuilder_GET(t *testing.T) {
	w := testutil.NewRequest().
		GET("/search").
		WithQuery("query", "golang").
		WithQuery("limit", "2").
		Serve(newGreeterApp())

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSONResponse(t, w, map[string]any{"result": []string{"golang", "golang"}})
}

func TestRequestBuilder_CustomHeader(t *testing.T) {
	w := testutil.NewRequest().
		Call("key", nil).
		WithHeader("X-API-Key", "secret").
		Serve(newGreeterApp())

	testutil.AssertRPCResult(t, w, "secret")
}

func TestRequestBuilder_Notify(t *testing.T) {
	w := testutil.NewRequest().
		Notify("key", nil).
		Serve(newGreeterApp())

	testutil.AssertStatus(t, w, http.StatusNoContent)
}

func ExampleRequestBuilder() {
	req, w := testutil.NewRequest().
		Call("search", map[string]any{"query": "go", "limit": 1}).
		Build()

	newGreeterApp().ServeHTTP(w, req)
	_ = w.Code
}
