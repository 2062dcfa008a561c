package hooks

import (
	"context"
	"testing"
)

func TestSetFieldChainFromNil(t *testing.T) {
	svc := New()
	defer svc.Close()

	svc.Register("doc.build",
		SetField("user.name", "ada"),
		SetField("user.admin", true),
		SetField("attempts", 3),
	)

	out, err := svc.Call(context.Background(), "doc.build", nil)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if got := Field(out, "user.name").String(); got != "ada" {
		t.Errorf("Expected user.name=ada, got %q", got)
	}
	if !Field(out, "user.admin").Bool() {
		t.Error("Expected user.admin=true")
	}
	if got := Field(out, "attempts").Int(); got != 3 {
		t.Errorf("Expected attempts=3, got %d", got)
	}
}

func TestDeleteField(t *testing.T) {
	svc := New()
	defer svc.Close()

	svc.Register("doc.scrub", DeleteField("secret"))

	out, err := svc.Call(context.Background(), "doc.scrub", `{"secret":"x","keep":1}`)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if Field(out, "secret").Exists() {
		t.Error("secret should have been deleted")
	}
	if Field(out, "keep").Int() != 1 {
		t.Error("Unrelated fields should survive")
	}
}

func TestHaltOnShortCircuits(t *testing.T) {
	svc := New()
	defer svc.Close()

	svc.Register("mail.out",
		HaltOn("spam"),
		SetField("delivered", true),
	)

	// Not marked: the chain runs to the end.
	out, err := svc.Call(context.Background(), "mail.out", `{"body":"hello"}`)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !Field(out, "delivered").Bool() {
		t.Error("Unmarked document should be delivered")
	}

	// Marked: the halt stops the chain before delivery.
	out, err = svc.Call(context.Background(), "mail.out", `{"body":"buy now","spam":true}`)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if Field(out, "delivered").Exists() {
		t.Error("Spam document should have halted before delivery")
	}
}

func TestHaltOnFalsyValues(t *testing.T) {
	svc := New()
	defer svc.Close()

	svc.Register("check", HaltOn("flag"), SetField("ran", true))

	for _, doc := range []string{`{}`, `{"flag":false}`, `{"flag":0}`, `{"flag":null}`, `{"flag":""}`} {
		out, err := svc.Call(context.Background(), "check", doc)
		if err != nil {
			t.Fatalf("Call failed for %s: %v", doc, err)
		}
		if !Field(out, "ran").Bool() {
			t.Errorf("Falsy flag in %s should not halt", doc)
		}
	}
}
