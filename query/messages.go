package query

import "github.com/goliatone/go-peers/core"

const (
	TypeGetStatus          = "peers.query.status.get"
	TypeIsAuthorized       = "peers.query.provenance.authorized"
	TypeListRegisteredPeer = "peers.query.peer.list"
)

// Caller is used when the dispatch context carries no core.CallContext. It is
// trusted as-is; hosts must fill it only from trusted invocation data.
type Caller struct {
	CallerID string
	OwnerID  string
	Origin   *core.ProvenanceTuple
}

func (c Caller) callContext() core.CallContext {
	return core.StaticCallContext{Caller: c.CallerID, Owner: c.OwnerID, Origin: c.Origin}
}

type GetStatusMessage struct {
	Caller Caller
}

func (GetStatusMessage) Type() string { return TypeGetStatus }

// Validate is a no-op; the caller may come from the dispatch context and is
// checked by the service.
func (GetStatusMessage) Validate() error { return nil }

type IsAuthorizedMessage struct {
	Caller Caller
}

func (IsAuthorizedMessage) Type() string { return TypeIsAuthorized }

func (IsAuthorizedMessage) Validate() error { return nil }

type ListRegisteredPeersMessage struct{}

func (ListRegisteredPeersMessage) Type() string { return TypeListRegisteredPeer }

func (ListRegisteredPeersMessage) Validate() error { return nil }
