package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/phrasecue/internal/core"
)

// registered under the test namespace so Validate recognises the ID.
type validateTestModule struct{}

func (validateTestModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "test.validate", New: func() core.Module { return validateTestModule{} }}
}

func init() {
	core.RegisterModule(validateTestModule{})
}

func moduleNode(t *testing.T, body string) yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(body), &node); err != nil {
		t.Fatal(err)
	}
	return node
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{"test.validate": moduleNode(t, "a: 1")},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want string
	}{
		{"missing version", &Config{Modules: map[string]yaml.Node{"test.validate": {}}}, "version field is required"},
		{"bad version", &Config{Version: "2", Modules: map[string]yaml.Node{"test.validate": {}}}, "unsupported version"},
		{"no modules", &Config{Version: "1"}, "at least one module"},
		{"unknown module", &Config{Version: "1", Modules: map[string]yaml.Node{"nope.nope": {}}}, "unknown module"},
		{
			"telemetry without endpoint",
			&Config{
				Version:   "1",
				Modules:   map[string]yaml.Node{"test.validate": {}},
				Telemetry: &TelemetryConfig{Enabled: true},
			},
			"telemetry.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("PHRASECUE_TEST_BIND", "127.0.0.1:9999")

	raw := `
version: "1"
modules:
  test.validate:
    bind: ${PHRASECUE_TEST_BIND}
    model: ${PHRASECUE_TEST_MISSING:-claude-sonnet-4-5}
`
	path := filepath.Join(t.TempDir(), "phrasecue.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var section struct {
		Bind  string `yaml:"bind"`
		Model string `yaml:"model"`
	}
	node := cfg.Modules["test.validate"]
	if err := node.Decode(&section); err != nil {
		t.Fatal(err)
	}
	if section.Bind != "127.0.0.1:9999" {
		t.Errorf("bind = %q", section.Bind)
	}
	if section.Model != "claude-sonnet-4-5" {
		t.Errorf("model = %q", section.Model)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrasecue.yaml")
	if err := os.WriteFile(path, []byte("version: ${PHRASECUE_NO_SUCH_VAR}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unresolved variable") {
		t.Errorf("Load = %v, want unresolved variable error", err)
	}
}

func TestResolve_Sorted(t *testing.T) {
	t.Parallel()

	cfg := &Config{Modules: map[string]yaml.Node{"b.two": {}, "a.one": {}, "c.three": {}}}
	ids := Resolve(cfg)
	want := []string{"a.one", "b.two", "c.three"}
	for i, w := range want {
		if ids[i] != w {
			t.Fatalf("Resolve = %v, want %v", ids, want)
		}
	}
}
