package sqlstore

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Peer ids are not UUIDs; the repository id is derived from the peer id so it
// stays stable across reads.
func peerRegistrationHandlers() repository.ModelHandlers[*peerRegistrationRecord] {
	return repository.ModelHandlers[*peerRegistrationRecord]{
		NewRecord: func() *peerRegistrationRecord {
			return &peerRegistrationRecord{}
		},
		GetID: func(record *peerRegistrationRecord) uuid.UUID {
			if record == nil || record.PeerID == "" {
				return uuid.Nil
			}
			return peerUUID(record.PeerID)
		},
		SetID: func(*peerRegistrationRecord, uuid.UUID) {},
		GetIdentifier: func() string {
			return "peer_id"
		},
		GetIdentifierValue: func(record *peerRegistrationRecord) string {
			if record == nil {
				return ""
			}
			return record.PeerID
		},
	}
}

func peerUUID(peerID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(peerID))
}
