package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RegisterPeerMessage]  = (*RegisterPeerCommand)(nil)
	_ gocmd.Commander[RemovePeerMessage]    = (*RemovePeerCommand)(nil)
	_ gocmd.Commander[PinProvenanceMessage] = (*PinProvenanceCommand)(nil)
)
