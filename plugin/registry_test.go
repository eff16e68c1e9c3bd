package plugin

import (
	"strings"
	"testing"
)

type noopPlugin struct{ name string }

func (p *noopPlugin) Name() string           { return p.name }
func (p *noopPlugin) Validators() Validators { return nil }
func (p *noopPlugin) Parsers() Parsers       { return nil }
func (p *noopPlugin) Navigators() Navigators { return nil }

func TestRegistry(t *testing.T) {
	Register("registry-test", func() Plugin { return &noopPlugin{name: "registry-test"} })

	plug, err := New("registry-test")
	if err != nil {
		t.Fatalf("new plugin: %v", err)
	}
	if plug.Name() != "registry-test" {
		t.Fatalf("plugin name = %q", plug.Name())
	}

	// New builds a fresh instance each call.
	if other, _ := New("registry-test"); other == plug {
		t.Fatal("New returned a shared instance")
	}

	found := false
	for _, name := range Names() {
		if name == "registry-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Names() = %v, missing registered plugin", Names())
	}
}

func TestNewUnknownPlugin(t *testing.T) {
	_, err := New("no-such-site")
	if err == nil || !strings.Contains(err.Error(), "unknown plugin") {
		t.Fatalf("New = %v, want unknown plugin error", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("registry-dup", func() Plugin { return &noopPlugin{name: "registry-dup"} })
	Register("registry-dup", func() Plugin { return &noopPlugin{name: "registry-dup"} })
}
