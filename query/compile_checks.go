package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-peers/core"
)

var (
	_ gocmd.Querier[GetStatusMessage, core.RegistrationStatus]             = (*GetStatusQuery)(nil)
	_ gocmd.Querier[IsAuthorizedMessage, bool]                             = (*IsAuthorizedQuery)(nil)
	_ gocmd.Querier[ListRegisteredPeersMessage, []core.RegistrationRecord] = (*ListRegisteredPeersQuery)(nil)
)
