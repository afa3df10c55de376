package surface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestNewError(t *testing.T) {
	err := NewError(CodeMethodNotFound, "method not found")
	if err.Code != CodeMethodNotFound {
		t.Errorf("expected code %s, got %s", CodeMethodNotFound, err.Code)
	}
	if err.Message != "method not found" {
		t.Errorf("expected message 'method not found', got %s", err.Message)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(CodeInvalidParams, "invalid field: %s", "email")
	if err.Code != CodeInvalidParams {
		t.Errorf("expected code %s, got %s", CodeInvalidParams, err.Code)
	}
	if err.Message != "invalid field: email" {
		t.Errorf("expected formatted message, got %s", err.Message)
	}
}

func TestErrorError(t *testing.T) {
	err := NewError(CodeServerError, "something went wrong")
	expected := "server_error: something went wrong"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{CodeServerError, "server_error"},
		{CodeParseError, "parse_error"},
		{CodeInvalidRequest, "invalid_request"},
		{CodeMethodNotFound, "method_not_found"},
		{CodeInvalidParams, "invalid_params"},
		{CodeInternal, "internal"},
		{42, "code(42)"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", int(tt.code), got, tt.want)
		}
	}
}

func TestError_JSON(t *testing.T) {
	got := encode(t, NewError(CodeServerError, "no such account"))
	if got != `{"code":1,"message":"no such account"}` {
		t.Errorf("envelope = %s", got)
	}

	got = encode(t, NewError(CodeInvalidParams, "bad").WithDetail("key", "required"))
	if got != `{"code":-32602,"message":"bad","data":{"key":"required"}}` {
		t.Errorf("envelope with data = %s", got)
	}
}

func TestWithDetail(t *testing.T) {
	base := NewError(CodeInvalidParams, "bad")
	withOne := base.WithDetail("a", 1)
	withTwo := withOne.WithDetail("b", 2)

	if base.Data != nil {
		t.Error("WithDetail must not modify the receiver")
	}
	if len(withOne.Data) != 1 || len(withTwo.Data) != 2 {
		t.Errorf("Data sizes = %d, %d, want 1, 2", len(withOne.Data), len(withTwo.Data))
	}
}

func TestWithDetails(t *testing.T) {
	base := NewError(CodeInvalidParams, "bad").WithDetail("a", 1)
	if got := base.WithDetails(nil); got != base {
		t.Error("WithDetails(nil) should return the receiver")
	}
	merged := base.WithDetails(map[string]any{"a": 2, "b": 3})
	if merged.Data["a"] != 2 || merged.Data["b"] != 3 {
		t.Errorf("Data = %v", merged.Data)
	}
	if base.Data["a"] != 1 {
		t.Error("WithDetails must not modify the receiver")
	}
}

func TestDefaultErrorTransformer(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			name:     "envelope passthrough",
			input:    NewError(CodeMethodNotFound, "not found"),
			wantCode: CodeMethodNotFound,
			wantMsg:  "not found",
		},
		{
			name:     "wrapped envelope",
			input:    fmt.Errorf("lookup: %w", NewError(418, "teapot")),
			wantCode: 418,
			wantMsg:  "teapot",
		},
		{
			name:     "context deadline exceeded",
			input:    context.DeadlineExceeded,
			wantCode: CodeServerError,
			wantMsg:  "request timeout",
		},
		{
			name:     "context canceled",
			input:    context.Canceled,
			wantCode: CodeServerError,
			wantMsg:  "context canceled",
		},
		{
			name:     "generic error",
			input:    errors.New("something failed"),
			wantCode: CodeServerError,
			wantMsg:  "something failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultErrorTransformer(tt.input)
			if got.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}

	if DefaultErrorTransformer(nil) != nil {
		t.Error("DefaultErrorTransformer(nil) should be nil")
	}
}

func TestDefaultErrorTransformer_Validation(t *testing.T) {
	type params struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"min=3"`
	}
	err := validate.Struct(&params{Email: "nope", Name: "al"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	got := DefaultErrorTransformer(err)
	if got.Code != CodeInvalidParams {
		t.Errorf("code = %s, want %s", got.Code, CodeInvalidParams)
	}
	if got.Data["email"] != "must be a valid email address" {
		t.Errorf("Data[email] = %v", got.Data["email"])
	}
	if got.Data["name"] != "must be at least 3 characters" {
		t.Errorf("Data[name] = %v", got.Data["name"])
	}
	if !strings.Contains(got.Message, "email: must be a valid email address") {
		t.Errorf("Message = %q", got.Message)
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		t.Error("expected validator.ValidationErrors")
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeParseError, http.StatusBadRequest},
		{CodeInvalidRequest, http.StatusBadRequest},
		{CodeInvalidParams, http.StatusBadRequest},
		{CodeMethodNotFound, http.StatusNotFound},
		{CodeInternal, http.StatusInternalServerError},
		{CodeServerError, http.StatusInternalServerError},
		{418, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.code.HTTPStatus(); got != tt.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, NewError(CodeMethodNotFound, "route not found"), quietLogger())

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"error":{"code":-32601,"message":"route not found"}}` {
		t.Errorf("body = %s", got)
	}
}
