package hooks

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSON accumulator helpers.
//
// Chains frequently thread a JSON document (as a string) through their
// callbacks: each stage reads or rewrites a few paths and passes the
// document on. These constructors build the common stages so callers do
// not hand-roll the marshaling in every callback. Paths use gjson syntax
// ("user.name", "items.0.sku").

// SetField returns a unary callback that sets path to value in a JSON
// document accumulator and continues with the updated document. A nil or
// non-string accumulator is treated as an empty document, so SetField
// chains compose from Call(ctx, name, nil).
func SetField(path string, value any) Callback {
	return Unary(func(acc any) Result {
		doc := jsonDoc(acc)
		updated, err := sjson.Set(doc, path, value)
		if err != nil {
			// Invalid path: pass the document through untouched.
			return Continue(doc)
		}
		return Continue(updated)
	})
}

// DeleteField returns a unary callback that removes path from a JSON
// document accumulator.
func DeleteField(path string) Callback {
	return Unary(func(acc any) Result {
		doc := jsonDoc(acc)
		updated, err := sjson.Delete(doc, path)
		if err != nil {
			return Continue(doc)
		}
		return Continue(updated)
	})
}

// HaltOn returns a unary callback that halts the chain with the current
// document when path exists and is truthy (non-false, non-zero, non-null),
// and continues unchanged otherwise. Use it to short-circuit a pipeline
// once an earlier stage has marked the document rejected:
//
//	svc.Register("mail.out",
//	    hooks.SetField("spam", true),
//	    hooks.HaltOn("spam"),
//	    hooks.SetField("delivered", true), // skipped when spam is set
//	)
func HaltOn(path string) Callback {
	return Unary(func(acc any) Result {
		doc := jsonDoc(acc)
		if v := gjson.Get(doc, path); v.Exists() && truthy(v) {
			return Halt(doc)
		}
		return Continue(doc)
	})
}

// Field reads path from a JSON document accumulator, typically on the
// final value returned from Call.
func Field(doc any, path string) gjson.Result {
	return gjson.Get(jsonDoc(doc), path)
}

func jsonDoc(acc any) string {
	switch v := acc.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return "{}"
	}
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.False, gjson.Null:
		return false
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	default:
		return true
	}
}
