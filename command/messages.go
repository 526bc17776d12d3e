package command

import (
	"strings"

	"github.com/goliatone/go-peers/core"
)

const (
	TypeRegisterPeer  = "peers.command.peer.register"
	TypeRemovePeer    = "peers.command.peer.remove"
	TypePinProvenance = "peers.command.provenance.pin"
)

// Caller identifies who is issuing a command when the dispatch context does
// not already carry a core.CallContext. OwnerID == CallerID makes the caller
// the owner, so hosts must fill Caller only from trusted invocation data and
// never from the payload of an untrusted peer.
type Caller struct {
	CallerID string
	OwnerID  string
	Origin   *core.ProvenanceTuple
}

func (c Caller) callContext() core.CallContext {
	return core.StaticCallContext{Caller: c.CallerID, Owner: c.OwnerID, Origin: c.Origin}
}

type RegisterPeerMessage struct {
	Caller       Caller
	TargetPeerID string
}

func (RegisterPeerMessage) Type() string { return TypeRegisterPeer }

func (m RegisterPeerMessage) Validate() error {
	if strings.TrimSpace(m.TargetPeerID) == "" {
		return commandValidationError("target_peer_id", "target peer id is required")
	}
	return nil
}

type RemovePeerMessage struct {
	Caller       Caller
	TargetPeerID string
}

func (RemovePeerMessage) Type() string { return TypeRemovePeer }

func (m RemovePeerMessage) Validate() error {
	if strings.TrimSpace(m.TargetPeerID) == "" {
		return commandValidationError("target_peer_id", "target peer id is required")
	}
	return nil
}

type PinProvenanceMessage struct {
	Tuple core.ProvenanceTuple
}

func (PinProvenanceMessage) Type() string { return TypePinProvenance }

// Validate accepts any tuple. Pinning an all-empty tuple is how a host
// expects calls that carry no origin fields.
func (m PinProvenanceMessage) Validate() error {
	return nil
}
