package agent

import "strings"

// FileSystemPermissions gate file-system operations.
type FileSystemPermissions struct {
	Read    bool `json:"read" toml:"read"`
	Write   bool `json:"write" toml:"write"`
	Execute bool `json:"execute" toml:"execute"`
}

// NetworkPermissions gate outbound network operations.
type NetworkPermissions struct {
	WebFetch  bool `json:"webfetch" toml:"webfetch"`
	WebSearch bool `json:"websearch" toml:"websearch"`
	Docs      bool `json:"docs" toml:"docs"`
}

// DelegationPermissions gate delegation to other agents. CanDelegate is
// the capability itself; AllowedTargets is the explicit allow-list that
// must also name the target.
type DelegationPermissions struct {
	CanDelegate    bool     `json:"can_delegate" toml:"can_delegate"`
	AllowedTargets []string `json:"allowed_targets" toml:"allowed_targets"`
}

// Permissions is an agent's capability set. It is supplied at
// construction and never mutated afterwards; agents cannot grant
// themselves anything.
type Permissions struct {
	// Tools are arbitrary named capabilities checked by exact name.
	Tools []string `json:"tools" toml:"tools"`

	FileSystem FileSystemPermissions `json:"filesystem" toml:"filesystem"`
	Network    NetworkPermissions    `json:"network" toml:"network"`
	Delegation DelegationPermissions `json:"delegation" toml:"delegation"`
}

// Allows reports whether the action is permitted. Resolution order is
// fixed: named tool, then fs:<op>, then net:<op>, then the literal
// "delegate". Unrecognized actions are denied.
func (p Permissions) Allows(action string) bool {
	for _, tool := range p.Tools {
		if tool == action {
			return true
		}
	}

	if op, ok := strings.CutPrefix(action, "fs:"); ok {
		switch op {
		case "read":
			return p.FileSystem.Read
		case "write":
			return p.FileSystem.Write
		case "execute":
			return p.FileSystem.Execute
		}
		return false
	}

	if op, ok := strings.CutPrefix(action, "net:"); ok {
		switch op {
		case "webfetch":
			return p.Network.WebFetch
		case "websearch":
			return p.Network.WebSearch
		case "docs":
			return p.Network.Docs
		}
		return false
	}

	if action == "delegate" {
		return p.Delegation.CanDelegate
	}

	return false
}

// AllowsTarget reports whether the delegation allow-list names target.
// It does not check the delegation capability itself.
func (p Permissions) AllowsTarget(target string) bool {
	for _, t := range p.Delegation.AllowedTargets {
		if t == target {
			return true
		}
	}
	return false
}

// clone deep-copies the permission set so callers cannot mutate an
// agent's capabilities through retained slices.
func (p Permissions) clone() Permissions {
	out := p
	out.Tools = append([]string(nil), p.Tools...)
	out.Delegation.AllowedTargets = append([]string(nil), p.Delegation.AllowedTargets...)
	return out
}
