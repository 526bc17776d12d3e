package sqlstore

import (
	"time"

	"github.com/goliatone/go-peers/core"
	"github.com/uptrace/bun"
)

const registrationsTable = "peer_registrations"

type peerRegistrationRecord struct {
	bun.BaseModel `bun:"table:peer_registrations,alias:pr"`

	PeerID       string    `bun:"peer_id,pk"`
	IsRegistered bool      `bun:"is_registered,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newPeerRegistrationRecord(peerID string, isRegistered bool, now time.Time) *peerRegistrationRecord {
	return &peerRegistrationRecord{
		PeerID:       peerID,
		IsRegistered: isRegistered,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *peerRegistrationRecord) toDomain() core.RegistrationRecord {
	if r == nil {
		return core.RegistrationRecord{}
	}
	return core.RegistrationRecord{
		PeerID:       r.PeerID,
		IsRegistered: r.IsRegistered,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}
