package surface

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChainInterceptors_Empty(t *testing.T) {
	if chainInterceptors(nil) != nil {
		t.Error("expected nil chain for no interceptors")
	}
}

func TestChainInterceptors_Single(t *testing.T) {
	called := false
	i := func(ctx *Call, params any, next HandlerFunc) (any, error) {
		called = true
		return next(ctx, params)
	}

	chain := chainInterceptors([]UnaryInterceptor{i})
	res, err := chain(NewTestCall(context.Background(), "m"), "req", func(ctx context.Context, params any) (any, error) {
		return params, nil
	})
	if err != nil || res != "req" {
		t.Errorf("chain() = %v, %v", res, err)
	}
	if !called {
		t.Error("interceptor was not called")
	}
}

func TestChainInterceptors_Order(t *testing.T) {
	var order []int
	mk := func(n int) UnaryInterceptor {
		return func(ctx *Call, params any, next HandlerFunc) (any, error) {
			order = append(order, n)
			return next(ctx, params)
		}
	}

	chain := chainInterceptors([]UnaryInterceptor{mk(1), mk(2), mk(3)})
	chain(NewTestCall(context.Background(), "m"), nil, func(ctx context.Context, params any) (any, error) {
		order = append(order, 0)
		return nil, nil
	})

	want := []int{1, 2, 3, 0}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestChainInterceptors_WrappedContext(t *testing.T) {
	type key struct{}
	var sawMethod string

	outer := func(ctx *Call, params any, next HandlerFunc) (any, error) {
		return next(context.WithValue(ctx, key{}, "v"), params)
	}
	inner := func(ctx *Call, params any, next HandlerFunc) (any, error) {
		sawMethod = ctx.Method()
		if ctx.Value(key{}) != "v" {
			t.Error("inner interceptor lost the wrapped value")
		}
		return next(ctx, params)
	}

	chain := chainInterceptors([]UnaryInterceptor{outer, inner})
	chain(NewTestCall(context.Background(), "get_config"), nil, func(ctx context.Context, params any) (any, error) {
		return nil, nil
	})
	if sawMethod != "get_config" {
		t.Errorf("inner saw method %q, want get_config", sawMethod)
	}
}

func TestChainInterceptors_ShortCircuit(t *testing.T) {
	denied := errors.New("denied")
	handlerCalled := false

	chain := chainInterceptors([]UnaryInterceptor{
		func(ctx *Call, params any, next HandlerFunc) (any, error) { return nil, denied },
		func(ctx *Call, params any, next HandlerFunc) (any, error) { return next(ctx, params) },
	})
	_, err := chain(NewTestCall(context.Background(), "m"), nil, func(ctx context.Context, params any) (any, error) {
		handlerCalled = true
		return nil, nil
	})
	if !errors.Is(err, denied) {
		t.Errorf("err = %v, want denied", err)
	}
	if handlerCalled {
		t.Error("handler should not run after a short circuit")
	}
}

func TestChainInterceptors_DeadlineReachesHandler(t *testing.T) {
	type key struct{}
	var innerDeadline, hostDeadline bool
	var hostValue any
	var hostMethod string

	outer := func(ctx *Call, params any, next HandlerFunc) (any, error) {
		tctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		return next(context.WithValue(tctx, key{}, "v"), params)
	}
	inner := func(ctx *Call, params any, next HandlerFunc) (any, error) {
		_, innerDeadline = ctx.Deadline()
		return next(ctx, params)
	}

	chain := chainInterceptors([]UnaryInterceptor{outer, inner})
	_, err := chain(NewTestCall(context.Background(), "add_account"), nil, func(ctx context.Context, params any) (any, error) {
		_, hostDeadline = ctx.Deadline()
		hostValue = ctx.Value(key{})
		hostMethod, _ = MethodFromContext(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("chain() error = %v", err)
	}
	if !innerDeadline {
		t.Error("inner interceptor did not see the deadline set by the outer one")
	}
	if !hostDeadline {
		t.Error("handler did not see the deadline set by the outer interceptor")
	}
	if hostValue != "v" {
		t.Errorf("handler value = %v, want v", hostValue)
	}
	if hostMethod != "add_account" {
		t.Errorf("MethodFromContext() = %q, want add_account", hostMethod)
	}
}

func TestChainInterceptors_CancelReachesHandler(t *testing.T) {
	outer := func(ctx *Call, params any, next HandlerFunc) (any, error) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		return next(cctx, params)
	}
	inner := func(ctx *Call, params any, next HandlerFunc) (any, error) {
		return next(ctx, params)
	}

	chain := chainInterceptors([]UnaryInterceptor{outer, inner})
	_, err := chain(NewTestCall(context.Background(), "m"), nil, func(ctx context.Context, params any) (any, error) {
		return nil, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
