package anyllm

import (
	"strings"
	"testing"
)

// ── createBackend ─────────────────────────────────────────────────────────────

// TestCreateBackend_LocalServers checks that the local-server backends
// construct without credentials.
func TestCreateBackend_LocalServers(t *testing.T) {
	for _, name := range []string{"ollama", "llamacpp", "llamafile"} {
		backend, err := createBackend(name)
		if err != nil {
			t.Errorf("createBackend(%q): unexpected error: %v", name, err)
			continue
		}
		if backend == nil {
			t.Errorf("createBackend(%q): nil backend", name)
		}
	}
}

// TestCreateBackend_CaseInsensitive checks that provider names are matched
// case-insensitively.
func TestCreateBackend_CaseInsensitive(t *testing.T) {
	if _, err := createBackend("LlamaCpp"); err != nil {
		t.Errorf("createBackend(%q): unexpected error: %v", "LlamaCpp", err)
	}
}

// TestCreateBackend_Unknown checks the error for an unsupported name.
func TestCreateBackend_Unknown(t *testing.T) {
	_, err := createBackend("doesnotexist")
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	if !strings.Contains(err.Error(), "unsupported provider") {
		t.Errorf("unexpected error: %v", err)
	}
}

// ── New ───────────────────────────────────────────────────────────────────────

// TestNew_Validation checks the argument validation in New.
func TestNew_Validation(t *testing.T) {
	if _, err := New("", "some-model"); err == nil {
		t.Error("expected error for empty provider name, got nil")
	}
	if _, err := New("llamacpp", ""); err == nil {
		t.Error("expected error for empty model, got nil")
	}
}

// TestNew_ModelID checks that the configured model is reported back.
func TestNew_ModelID(t *testing.T) {
	p, err := New("llamacpp", "qwen2.5-7b-instruct")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.ModelID(); got != "qwen2.5-7b-instruct" {
		t.Errorf("ModelID: got %q, want %q", got, "qwen2.5-7b-instruct")
	}
}
