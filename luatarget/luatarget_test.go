package luatarget

import (
	"context"
	"errors"
	"testing"

	"github.com/infinityoneframework/hooks"
)

func TestInvokeGlobalFunction(t *testing.T) {
	target := New()
	defer target.Close()

	if err := target.DoString(`
		function double(n)
			return n * 2
		end
	`); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}

	res, err := target.Invoke("double", []any{21})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if res.Halted() {
		t.Error("Single return should continue")
	}
	if res.Value() != int64(42) {
		t.Errorf("Expected 42, got %v (%T)", res.Value(), res.Value())
	}
}

func TestHaltHelper(t *testing.T) {
	target := New()
	defer target.Close()

	if err := target.DoString(`
		function check(doc)
			if doc.spam then
				return halt(doc)
			end
			return doc
		end
	`); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}

	res, err := target.Invoke("check", []any{map[string]any{"spam": true}})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !res.Halted() {
		t.Error("halt(doc) should produce a halted result")
	}
	doc := res.Value().(map[string]any)
	if doc["spam"] != true {
		t.Errorf("Halted value should round-trip, got %v", doc)
	}

	res, err = target.Invoke("check", []any{map[string]any{"body": "hi"}})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if res.Halted() {
		t.Error("Clean document should continue")
	}
}

func TestValueBridging(t *testing.T) {
	target := New()
	defer target.Close()

	if err := target.DoString(`
		function reshape(doc)
			return { name = doc.name, tags = { "a", "b" }, count = #doc.items }
		end
	`); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}

	res, err := target.Invoke("reshape", []any{map[string]any{
		"name":  "ada",
		"items": []any{1, 2, 3},
	}})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	out := res.Value().(map[string]any)
	if out["name"] != "ada" {
		t.Errorf("Expected name=ada, got %v", out["name"])
	}
	if out["count"] != int64(3) {
		t.Errorf("Expected count=3, got %v", out["count"])
	}
	tags, ok := out["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "a" {
		t.Errorf("Expected tags [a b], got %v", out["tags"])
	}
}

func TestUnknownFunction(t *testing.T) {
	target := New()
	defer target.Close()

	if _, err := target.Invoke("missing", nil); !errors.Is(err, hooks.ErrUnknownMember) {
		t.Errorf("Expected ErrUnknownMember, got %v", err)
	}
}

func TestLuaErrorPropagates(t *testing.T) {
	target := New()
	defer target.Close()

	if err := target.DoString(`
		function fail()
			error("scripted failure")
		end
	`); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}

	if _, err := target.Invoke("fail", nil); err == nil {
		t.Error("Lua error() should propagate as an Invoke error")
	}
}

func TestClosedTarget(t *testing.T) {
	target := New()
	target.Close()

	if _, err := target.Invoke("anything", nil); err == nil {
		t.Error("Invoke on a closed target should fail")
	}
}

func TestDeferredDispatchThroughService(t *testing.T) {
	target := New()
	defer target.Close()

	if err := target.DoString(`
		function scrub(doc)
			doc.password = nil
			doc.scrubbed = true
			return doc
		end
	`); err != nil {
		t.Fatalf("DoString failed: %v", err)
	}

	svc := hooks.New(hooks.WithTarget("scripts", target))
	defer svc.Close()

	svc.Register("user.scrub", hooks.Deferred("scripts", "scrub", 1))

	out, err := svc.Call(context.Background(), "user.scrub", map[string]any{
		"name":     "ada",
		"password": "hunter2",
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	doc := out.(map[string]any)
	if _, ok := doc["password"]; ok {
		t.Error("Lua callback should have removed the password")
	}
	if doc["scrubbed"] != true {
		t.Error("Lua callback should have marked the document")
	}
}
