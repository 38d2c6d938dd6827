package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vinayprograms/agentbus/agent"
	"github.com/vinayprograms/agentbus/errors"
)

const sampleConfig = `
[bus]
max_payload_size = 65536
max_queue_size = 256
request_timeout = "5s"

[bus.batching]
enabled = true
size = 16
interval = "25ms"

[[agents]]
id = "git.agent"
kind = "git"
name = "Git Automation"
category = "specialized"
capabilities = ["commit", "push"]

[agents.permissions]
tools = ["bash"]

[agents.permissions.filesystem]
read = true
write = true

[agents.permissions.delegation]
can_delegate = false

[agents.behavior]
conservative = true
error_mode = "strict"

[[agents]]
id = "orchestrator"
kind = "orchestrator"
category = "primary"

[agents.permissions.delegation]
can_delegate = true
allowed_targets = ["git.agent"]
`

func TestParse(t *testing.T) {
	f, err := Parse(sampleConfig)
	if err != nil {
		t.Fatal(err)
	}

	if f.Bus.MaxPayloadSize != 65536 || f.Bus.MaxQueueSize != 256 {
		t.Errorf("bus limits = %d/%d", f.Bus.MaxPayloadSize, f.Bus.MaxQueueSize)
	}
	if f.Bus.RequestTimeout.Std() != 5*time.Second {
		t.Errorf("request timeout = %v", f.Bus.RequestTimeout.Std())
	}
	if !f.Bus.Batching.Enabled || f.Bus.Batching.Size != 16 || f.Bus.Batching.Interval.Std() != 25*time.Millisecond {
		t.Errorf("batching = %+v", f.Bus.Batching)
	}

	if len(f.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(f.Agents))
	}
	git := f.Agents[0]
	if git.ID != "git.agent" || git.Kind != "git" || git.Category != agent.CategorySpecialized {
		t.Errorf("git config = %+v", git)
	}
	if !git.Permissions.Allows("bash") || !git.Permissions.Allows("fs:write") || git.Permissions.Allows("delegate") {
		t.Error("git permissions decoded wrong")
	}
	if git.Behavior.ErrorMode != agent.ErrorModeStrict || !git.Behavior.Conservative {
		t.Errorf("git behavior = %+v", git.Behavior)
	}

	orch := f.Agents[1]
	if !orch.Permissions.Allows("delegate") || !orch.Permissions.AllowsTarget("git.agent") {
		t.Error("orchestrator delegation decoded wrong")
	}
}

func TestParseBusConfigDefaults(t *testing.T) {
	f, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	// Zero values; the bus package fills its own defaults.
	cfg := f.BusConfig()
	if cfg.MaxPayloadSize != 0 || cfg.MaxQueueSize != 0 || cfg.RequestTimeout != 0 {
		t.Errorf("zero section must map to zero config: %+v", cfg)
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	content := `
[[agents]]
id = "twin"
kind = "echo"

[[agents]]
id = "twin"
kind = "echo"
`
	if _, err := Parse(content); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("got %v, want INVALID_INPUT", err)
	}
}

func TestParseRejectsInvalidAgent(t *testing.T) {
	content := `
[[agents]]
id = "nameless"
`
	if _, err := Parse(content); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing kind: got %v", err)
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	content := `
[bus]
request_timeout = "soon"
`
	if _, err := Parse(content); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("got %v, want INVALID_INPUT", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Agents) != 2 {
		t.Errorf("agents = %d", len(f.Agents))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file must fail")
	}
}
