package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-peers/core"
)

type MutatingService interface {
	RegisterPeer(ctx context.Context, call core.CallContext, targetPeerID string) error
	RemovePeer(ctx context.Context, call core.CallContext, targetPeerID string) error
}

type ProvenancePinner interface {
	SetExpectedCaller(ctx context.Context, tuple core.ProvenanceTuple)
}

type RegisterPeerCommand struct {
	service MutatingService
}

func NewRegisterPeerCommand(service MutatingService) *RegisterPeerCommand {
	return &RegisterPeerCommand{service: service}
}

// Execute stores a core.Result in the dispatch context when a collector is
// present, so envelope-style callers get the numeric code as well.
func (c *RegisterPeerCommand) Execute(ctx context.Context, msg RegisterPeerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: register peer service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	err := c.service.RegisterPeer(ctx, resolveCall(ctx, msg.Caller), msg.TargetPeerID)
	storeResult(ctx, resultFromError(err))
	return err
}

type RemovePeerCommand struct {
	service MutatingService
}

func NewRemovePeerCommand(service MutatingService) *RemovePeerCommand {
	return &RemovePeerCommand{service: service}
}

func (c *RemovePeerCommand) Execute(ctx context.Context, msg RemovePeerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: remove peer service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	err := c.service.RemovePeer(ctx, resolveCall(ctx, msg.Caller), msg.TargetPeerID)
	storeResult(ctx, resultFromError(err))
	return err
}

type PinProvenanceCommand struct {
	pinner ProvenancePinner
}

func NewPinProvenanceCommand(pinner ProvenancePinner) *PinProvenanceCommand {
	return &PinProvenanceCommand{pinner: pinner}
}

func (c *PinProvenanceCommand) Execute(ctx context.Context, msg PinProvenanceMessage) error {
	if c == nil || c.pinner == nil {
		return commandDependencyError("command: provenance pinner is required")
	}
	c.pinner.SetExpectedCaller(ctx, msg.Tuple)
	return nil
}

// resolveCall prefers the call context attached by the host over the one
// carried in the message.
func resolveCall(ctx context.Context, caller Caller) core.CallContext {
	if call, ok := core.CallFromContext(ctx); ok {
		return call
	}
	return caller.callContext()
}

func resultFromError(err error) core.Result {
	if err == nil {
		return core.Result{RetCode: core.CodeSuccess}
	}
	return core.Result{RetCode: core.ClassifyError(err), ErrMsg: err.Error()}
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
