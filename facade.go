package peers

import (
	"fmt"

	peerscommand "github.com/goliatone/go-peers/command"
	peersquery "github.com/goliatone/go-peers/query"
)

type CommandQueryService interface {
	peerscommand.MutatingService
	peerscommand.ProvenancePinner
	peersquery.StatusReader
	peersquery.ProvenanceChecker
}

type Commands struct {
	RegisterPeer  *peerscommand.RegisterPeerCommand
	RemovePeer    *peerscommand.RemovePeerCommand
	PinProvenance *peerscommand.PinProvenanceCommand
}

type Queries struct {
	GetStatus           *peersquery.GetStatusQuery
	IsAuthorized        *peersquery.IsAuthorizedQuery
	ListRegisteredPeers *peersquery.ListRegisteredPeersQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	lister peersquery.RegistrationLister
}

// WithRegistrationLister overrides the lister used by the list query.
func WithRegistrationLister(lister peersquery.RegistrationLister) FacadeOption {
	return func(options *facadeOptions) {
		options.lister = lister
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("peers: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	lister := cfg.lister
	if lister == nil {
		lister, _ = service.(peersquery.RegistrationLister)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RegisterPeer:  peerscommand.NewRegisterPeerCommand(service),
		RemovePeer:    peerscommand.NewRemovePeerCommand(service),
		PinProvenance: peerscommand.NewPinProvenanceCommand(service),
	}
	facade.queries = Queries{
		GetStatus:           peersquery.NewGetStatusQuery(service),
		IsAuthorized:        peersquery.NewIsAuthorizedQuery(service),
		ListRegisteredPeers: peersquery.NewListRegisteredPeersQuery(lister),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
