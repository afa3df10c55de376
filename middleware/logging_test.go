package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/broady/surface"
)

func jsonLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}

func TestLoggingInterceptor_Success(t *testing.T) {
	logger, buf := jsonLogger(slog.LevelDebug)
	interceptor := LoggingInterceptor(logger)

	result, err := interceptor(surface.NewTestCall(context.Background(), "add_account"), "params",
		func(ctx context.Context, params any) (any, error) {
			return "response", nil
		})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "response" {
		t.Errorf("result = %v, want response", result)
	}

	out := buf.String()
	for _, want := range []string{"call started", "call completed", `"method":"add_account"`, `"duration"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLoggingInterceptor_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"business error", errors.New("no space left"), `"code":1`},
		{"envelope", surface.NewError(surface.CodeInvalidParams, "bad"), `"code":-32602`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := jsonLogger(slog.LevelInfo)
			interceptor := LoggingInterceptor(logger)

			_, err := interceptor(surface.NewTestCall(context.Background(), "add_account"), nil,
				func(ctx context.Context, params any) (any, error) {
					return nil, tt.err
				})
			if err != tt.err {
				t.Errorf("err = %v, want %v", err, tt.err)
			}

			out := buf.String()
			if !strings.Contains(out, "call failed") {
				t.Errorf("expected 'call failed' in:\n%s", out)
			}
			if !strings.Contains(out, tt.wantCode) {
				t.Errorf("expected %s in:\n%s", tt.wantCode, out)
			}
			if strings.Contains(out, "call started") {
				t.Error("start line should be debug level")
			}
		})
	}
}

func TestLoggingInterceptor_NilLogger(t *testing.T) {
	interceptor := LoggingInterceptor(nil)
	_, err := interceptor(surface.NewTestCall(context.Background(), "ping"), nil,
		func(ctx context.Context, params any) (any, error) { return nil, nil })
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoggingInterceptor_PassthroughParams(t *testing.T) {
	interceptor := LoggingInterceptor(slog.New(slog.DiscardHandler))
	var seen any
	interceptor(surface.NewTestCall(context.Background(), "sub"), []int{3, 1},
		func(ctx context.Context, params any) (any, error) {
			seen = params
			return nil, nil
		})
	if got, ok := seen.([]int); !ok || len(got) != 2 {
		t.Errorf("params = %v, want passthrough", seen)
	}
}
