package hooks

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleConfig = `
hooks:
  - event: mail.outgoing
    callbacks:
      - target: sanitizer
        member: ScrubMail
        arity: 1
      - target: sanitizer
        member: Stamp
        arity: 1
  - event: app.started
    callbacks:
      - target: demo
        member: Announce
        arity: 0
`

func TestParseConfigPreservesOrder(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	bindings := cfg.Bindings()
	if len(bindings) != 2 {
		t.Fatalf("Expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0].Event != "mail.outgoing" || bindings[1].Event != "app.started" {
		t.Errorf("Document order not preserved: %v", bindings)
	}
	chain := bindings[0].Callbacks
	if len(chain) != 2 || chain[0].String() != "sanitizer.ScrubMail/1" || chain[1].String() != "sanitizer.Stamp/1" {
		t.Errorf("Callback order wrong: %v", chain)
	}
}

func TestParseConfigBadYAML(t *testing.T) {
	if _, err := ParseConfig([]byte("hooks: [broken")); err == nil {
		t.Error("Expected parse error for malformed YAML")
	}
}

func TestLoadConfigRegistersDeferredReferences(t *testing.T) {
	svc := New(
		WithLogger(quietLogger()),
		WithTarget("sanitizer", FuncTarget{
			"ScrubMail": func(args []any) (Result, error) {
				m := args[0].(map[string]any)
				delete(m, "password")
				return Continue(m), nil
			},
			"Stamp": func(args []any) (Result, error) {
				m := args[0].(map[string]any)
				m["scrubbed"] = true
				return Continue(m), nil
			},
		}),
		WithTarget("demo", FuncTarget{
			"Announce": func(args []any) (Result, error) { return Continue(nil), nil },
		}),
	)
	defer svc.Close()

	if err := svc.LoadConfig([]byte(sampleConfig)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	out, err := svc.Call(context.Background(), "mail.outgoing", map[string]any{
		"password": "hunter2",
		"body":     "hi",
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	m := out.(map[string]any)
	if _, ok := m["password"]; ok {
		t.Error("ScrubMail should have removed the password")
	}
	if m["scrubbed"] != true {
		t.Error("Stamp should have marked the document")
	}
}

func TestLoadConfigPartialEffectOnFailure(t *testing.T) {
	// The second of three bindings is malformed: the first stays applied,
	// the third is never processed, and the failure is reported only via
	// the metrics side channel.
	svc := New(WithLogger(quietLogger()))
	defer svc.Close()

	bad := `
hooks:
  - event: first
    callbacks:
      - target: t
        member: One
        arity: 1
  - event: second
    callbacks:
      - target: t
        member: ""
        arity: 1
  - event: third
    callbacks:
      - target: t
        member: Three
        arity: 1
`
	if err := svc.LoadConfig([]byte(bad)); err != nil {
		t.Fatalf("LoadConfig should not surface per-entry failures, got %v", err)
	}

	status, _ := svc.Status()
	if len(status["first"]) != 1 {
		t.Error("Binding before the failure should stay applied")
	}
	if _, ok := status["second"]; ok {
		t.Error("Failing binding should not be applied")
	}
	if _, ok := status["third"]; ok {
		t.Error("Bindings after the failure should not be applied")
	}
	if m := svc.Metrics(); m.RegistrationFailures != 1 {
		t.Errorf("Expected 1 registration failure, got %d", m.RegistrationFailures)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	svc := New(WithLogger(quietLogger()))
	defer svc.Close()

	if err := svc.LoadConfigFile(path); err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	status, _ := svc.Status()
	if len(status) != 2 {
		t.Errorf("Expected 2 hooks registered from file, got %d", len(status))
	}

	if err := svc.LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}
