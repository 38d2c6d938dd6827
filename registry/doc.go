// Package registry instantiates agents from declarative configuration
// and manages their lifecycle as a group.
//
// The registry holds three tables: declarative configs keyed by agent
// id, factories keyed by implementation kind, and live instances keyed
// by agent id. A config's Kind field selects its factory explicitly;
// identifiers carry no routing meaning.
//
// # Basic Usage
//
//	reg := registry.New(logger)
//	reg.RegisterKind("git", func(cfg agent.Config) (agent.Agent, error) {
//	    return NewGitAgent(cfg), nil
//	})
//	reg.Register(agent.Config{ID: "git.agent", Kind: "git"})
//
//	inst, err := reg.CreateInstance(ctx, "git.agent", actx)
//	// ... host runs ...
//	reg.ShutdownAll(ctx)
//
// At most one live instance exists per agent id. Unregistering a config
// with a live instance drains the instance via Cleanup first.
package registry
