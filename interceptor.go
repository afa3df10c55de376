package surface

import (
	"context"
)

// HandlerFunc represents the next handler in an interceptor chain.
type HandlerFunc func(ctx context.Context, params any) (res any, err error)

// UnaryInterceptor is a hook that wraps method execution.
//
//	func timing(ctx *surface.Call, params any, next surface.HandlerFunc) (any, error) {
//	    start := time.Now()
//	    res, err := next(ctx, params)
//	    log.Printf("%s took %v", ctx.Method(), time.Since(start))
//	    return res, err
//	}
//
// params is a pointer to the decoded parameter object, or nil for methods
// without parameters. Interceptors may short-circuit by returning an error
// without calling next.
type UnaryInterceptor func(ctx *Call, params any, next HandlerFunc) (res any, err error)

// chainInterceptors combines multiple interceptors into a single one.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []UnaryInterceptor) UnaryInterceptor {
	if len(interceptors) == 0 {
		return nil
	}
	if len(interceptors) == 1 {
		return interceptors[0]
	}
	return func(ctx *Call, params any, handler HandlerFunc) (any, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chain
			chain = func(ctx context.Context, params any) (any, error) {
				return current(callFor(ctx), params, next)
			}
		}
		return chain(ctx, params)
	}
}

// callFor returns ctx as a Call. When an interceptor wrapped the Call in a
// derived context, the result is a copy of the Call carrying that context.
func callFor(ctx context.Context) *Call {
	if c, ok := ctx.(*Call); ok {
		return c
	}
	c, ok := FromContext(ctx)
	if !ok {
		return newCall(ctx, "", "")
	}
	cp := *c
	cp.Context = ctx
	return &cp
}
