package query

import (
	"context"

	"github.com/goliatone/go-peers/core"
)

type StatusReader interface {
	Status(ctx context.Context, call core.CallContext) (core.RegistrationStatus, error)
}

type ProvenanceChecker interface {
	IsAuthorized(ctx context.Context, call core.CallContext) bool
}

type RegistrationLister interface {
	ListRegistered(ctx context.Context) ([]core.RegistrationRecord, error)
}

type GetStatusQuery struct {
	reader StatusReader
}

func NewGetStatusQuery(reader StatusReader) *GetStatusQuery {
	return &GetStatusQuery{reader: reader}
}

func (q *GetStatusQuery) Query(ctx context.Context, msg GetStatusMessage) (core.RegistrationStatus, error) {
	if q == nil || q.reader == nil {
		return core.RegistrationStatus{}, queryDependencyError("query: status reader is required")
	}
	return q.reader.Status(ctx, resolveCall(ctx, msg.Caller))
}

type IsAuthorizedQuery struct {
	checker ProvenanceChecker
}

func NewIsAuthorizedQuery(checker ProvenanceChecker) *IsAuthorizedQuery {
	return &IsAuthorizedQuery{checker: checker}
}

func (q *IsAuthorizedQuery) Query(ctx context.Context, msg IsAuthorizedMessage) (bool, error) {
	if q == nil || q.checker == nil {
		return false, queryDependencyError("query: provenance checker is required")
	}
	return q.checker.IsAuthorized(ctx, resolveCall(ctx, msg.Caller)), nil
}

type ListRegisteredPeersQuery struct {
	lister RegistrationLister
}

func NewListRegisteredPeersQuery(lister RegistrationLister) *ListRegisteredPeersQuery {
	return &ListRegisteredPeersQuery{lister: lister}
}

func (q *ListRegisteredPeersQuery) Query(
	ctx context.Context,
	_ ListRegisteredPeersMessage,
) ([]core.RegistrationRecord, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: registration lister is required")
	}
	return q.lister.ListRegistered(ctx)
}

func resolveCall(ctx context.Context, caller Caller) core.CallContext {
	if call, ok := core.CallFromContext(ctx); ok {
		return call
	}
	return caller.callContext()
}
