package core

import (
	"strings"
	"time"
)

// RegistrationRecord is the stored state for a single peer. Absence of a record
// is equivalent to IsRegistered=false.
type RegistrationRecord struct {
	PeerID       string
	IsRegistered bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type RegistrationStatus struct {
	IsRegistered bool
}

// AccessContext carries the identities of a single invocation. Both values are
// trusted exactly as supplied by the host.
type AccessContext struct {
	CallerID string
	OwnerID  string
}

func (a AccessContext) IsOwner() bool {
	return a.CallerID != "" && a.CallerID == a.OwnerID
}

func (a AccessContext) Validate() error {
	if strings.TrimSpace(a.CallerID) == "" {
		return invalidArgument("caller_id", "caller id is required")
	}
	return nil
}

// ProvenanceTuple identifies where a call claims to originate from.
type ProvenanceTuple struct {
	PeerPK    string
	ServiceID string
	FnName    string
	JSONPath  string
}

// Equal compares all four fields ordinally. No normalization is applied.
func (t ProvenanceTuple) Equal(other ProvenanceTuple) bool {
	return t.PeerPK == other.PeerPK &&
		t.ServiceID == other.ServiceID &&
		t.FnName == other.FnName &&
		t.JSONPath == other.JSONPath
}

func (t ProvenanceTuple) Map() map[string]any {
	return map[string]any{
		"peer_pk":    t.PeerPK,
		"service_id": t.ServiceID,
		"fn_name":    t.FnName,
		"json_path":  t.JSONPath,
	}
}

// Result is the boundary envelope returned by mutating service operations.
type Result struct {
	RetCode ErrorCode
	ErrMsg  string
}

func (r Result) OK() bool {
	return r.RetCode == CodeSuccess
}

type StatusResult struct {
	RetCode ErrorCode
	ErrMsg  string
	Status  RegistrationStatus
}

func (r StatusResult) OK() bool {
	return r.RetCode == CodeSuccess
}

func validatePeerID(field string, peerID string) error {
	if strings.TrimSpace(peerID) == "" {
		return invalidArgument(field, "peer id is required")
	}
	return nil
}
