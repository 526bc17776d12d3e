package core

import "context"

// CallContext is supplied by the host for every invocation.
type CallContext interface {
	CallerID() string
	OwnerID() string
	// Provenance returns the first observed argument origin, if the host has one.
	Provenance() (ProvenanceTuple, bool)
}

type StaticCallContext struct {
	Caller string
	Owner  string
	Origin *ProvenanceTuple
}

func (c StaticCallContext) CallerID() string {
	return c.Caller
}

func (c StaticCallContext) OwnerID() string {
	return c.Owner
}

func (c StaticCallContext) Provenance() (ProvenanceTuple, bool) {
	if c.Origin == nil {
		return ProvenanceTuple{}, false
	}
	return *c.Origin, true
}

func AccessFromCall(call CallContext) AccessContext {
	if call == nil {
		return AccessContext{}
	}
	return AccessContext{CallerID: call.CallerID(), OwnerID: call.OwnerID()}
}

type callContextKey struct{}

func ContextWithCall(ctx context.Context, call CallContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if call == nil {
		return ctx
	}
	return context.WithValue(ctx, callContextKey{}, call)
}

func CallFromContext(ctx context.Context) (CallContext, bool) {
	if ctx == nil {
		return nil, false
	}
	call, ok := ctx.Value(callContextKey{}).(CallContext)
	return call, ok && call != nil
}

var _ CallContext = StaticCallContext{}
