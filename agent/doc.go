// Package agent provides the behavioral contract every agent implements:
// lifecycle, permission checks, bus handler registration, delegation, and
// health reporting.
//
// Agents never hold references to each other. All coordination flows
// through the message bus carried in the agent Context, which the host
// assembles per instance.
//
// # Basic Usage
//
// Embed Base and supply an execute function during initialization:
//
//	type EchoAgent struct {
//	    agent.Base
//	}
//
//	func (a *EchoAgent) Initialize(ctx context.Context, actx *agent.Context) error {
//	    return a.Base.Initialize(ctx, actx, a.Execute)
//	}
//
//	func (a *EchoAgent) Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
//	    return input, nil
//	}
//
// After Initialize the agent is subscribed on its own id: request-type
// messages run Execute and reply with its output, notifications run
// Execute and discard it.
//
// # Permissions
//
// Permissions are supplied at construction and never change. An action is
// resolved in a fixed namespace order: named tool, fs:<op>, net:<op>,
// then the literal "delegate". Anything unrecognized is denied.
//
// # Delegation
//
// Delegate performs two independent checks before any message leaves the
// agent: the delegation capability itself, then the explicit target
// allow-list. Holding general delegation rights never implies authority
// over an unlisted target.
package agent
