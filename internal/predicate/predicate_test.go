package predicate

import (
	"testing"

	"github.com/git-afsantos/hplrv/internal/hplast"
)

func msg(topic string, data map[string]any) hplast.Message {
	return hplast.Message{Topic: topic, Data: data}
}

func TestParseVacuous(t *testing.T) {
	for _, raw := range []string{"", "true"} {
		e, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if !e.IsVacuous() {
			t.Errorf("Parse(%q).IsVacuous() = false, want true", raw)
		}
		ok, err := e.Evaluate(msg("t", nil), nil)
		if err != nil || !ok {
			t.Errorf("vacuous predicate did not evaluate true: %v %v", ok, err)
		}
	}
}

func TestEvaluateNumericComparisons(t *testing.T) {
	e, err := Parse("x > 0")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		x    float64
		want bool
	}{
		{1, true},
		{0, false},
		{-1, false},
	}
	for _, c := range cases {
		ok, err := e.Evaluate(msg("t", map[string]any{"x": c.x}), nil)
		if err != nil {
			t.Fatalf("x=%v: %v", c.x, err)
		}
		if ok != c.want {
			t.Errorf("x=%v: got %v, want %v", c.x, ok, c.want)
		}
	}
}

func TestEvaluateConjunction(t *testing.T) {
	e, err := Parse("x > 0 and x < 10")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Evaluate(msg("t", map[string]any{"x": 5.0}), nil)
	if err != nil || !ok {
		t.Fatalf("x=5: got %v, %v, want true", ok, err)
	}
	ok, err = e.Evaluate(msg("t", map[string]any{"x": 50.0}), nil)
	if err != nil || ok {
		t.Fatalf("x=50: got %v, %v, want false", ok, err)
	}
}

func TestEvaluateStringComparisons(t *testing.T) {
	e, err := Parse(`status == "ok"`)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Evaluate(msg("t", map[string]any{"status": "ok"}), nil)
	if err != nil || !ok {
		t.Fatalf("got %v, %v, want true", ok, err)
	}
	ok, err = e.Evaluate(msg("t", map[string]any{"status": "fail"}), nil)
	if err != nil || ok {
		t.Fatalf("got %v, %v, want false", ok, err)
	}
}

func TestEvaluateLen(t *testing.T) {
	e, err := Parse("len(xs) > 0")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.Evaluate(msg("t", map[string]any{"xs": []any{}}), nil)
	if err != nil || ok {
		t.Fatalf("empty: got %v, %v, want false", ok, err)
	}
	ok, err = e.Evaluate(msg("t", map[string]any{"xs": []any{1}}), nil)
	if err != nil || !ok {
		t.Fatalf("non-empty: got %v, %v, want true", ok, err)
	}
}

func TestEvaluateMissingFieldErrors(t *testing.T) {
	e, err := Parse("x > 0")
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Evaluate(msg("t", map[string]any{}), nil)
	if err == nil {
		t.Fatal("expected error for missing field, got nil")
	}
}

func TestEvaluateAliasReference(t *testing.T) {
	e, err := Parse("x > @B.x")
	if err != nil {
		t.Fatal(err)
	}
	bindings := hplast.Bindings{"B": msg("b", map[string]any{"x": 1.0})}
	ok, err := e.Evaluate(msg("a", map[string]any{"x": 2.0}), bindings)
	if err != nil || !ok {
		t.Fatalf("got %v, %v, want true", ok, err)
	}
	ok, err = e.Evaluate(msg("a", map[string]any{"x": 0.0}), bindings)
	if err != nil || ok {
		t.Fatalf("got %v, %v, want false", ok, err)
	}
}

func TestEvaluateMissingBindingErrors(t *testing.T) {
	e, err := Parse("x > @B.x")
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.Evaluate(msg("a", map[string]any{"x": 2.0}), hplast.Bindings{})
	if err == nil {
		t.Fatal("expected error for missing binding, got nil")
	}
}

func TestContainsReference(t *testing.T) {
	e, err := Parse("x > 0 and x > @B.x")
	if err != nil {
		t.Fatal(err)
	}
	if !e.ContainsReference("B") {
		t.Error("expected ContainsReference(B) = true")
	}
	if e.ContainsReference("C") {
		t.Error("expected ContainsReference(C) = false")
	}
}

func TestRefactorReference(t *testing.T) {
	e, err := Parse("x > 0 and x > @B.x")
	if err != nil {
		t.Fatal(err)
	}
	phi, psi := e.RefactorReference("B")
	if phi.ContainsReference("B") {
		t.Error("phi should not reference B")
	}
	if psi == nil || !psi.ContainsReference("B") {
		t.Error("psi should reference B")
	}

	// phi alone: x > 0 should still hold independently.
	ok, err := phi.Evaluate(msg("a", map[string]any{"x": 5.0}), nil)
	if err != nil || !ok {
		t.Fatalf("phi x=5: got %v, %v", ok, err)
	}
}

func TestRefactorReferenceNoDependency(t *testing.T) {
	e, err := Parse("x > 0")
	if err != nil {
		t.Fatal(err)
	}
	phi, psi := e.RefactorReference("B")
	if psi != nil {
		t.Errorf("expected nil psi, got %v", psi)
	}
	if phi.String() != e.String() {
		t.Errorf("phi should equal original when nothing depends on alias")
	}
}

// TestRequirementDependentPredicateRewrite exercises the
// ReplaceThisWithVar/ReplaceVarWithThis round trip the pattern builder
// uses to re-anchor a trigger's residual cross-event constraint so it can
// later be evaluated against the behaviour message with the original
// trigger message bound under a numeric variable.
func TestRequirementDependentPredicateRewrite(t *testing.T) {
	// "a {x>0 and x>@B.x}": trigger's own predicate references B (the
	// behaviour). refactor splits into phi (x>0) and psi (x>@B.x).
	e, err := Parse("x > 0 and x > @B.x")
	if err != nil {
		t.Fatal(err)
	}
	_, psi := e.RefactorReference("B")
	if psi == nil {
		t.Fatal("expected non-nil psi")
	}

	// Rewrite psi the way requirementAddTrigger does: tag bare ("this",
	// the trigger message) fields under var "1", then swap B references
	// back to "this" (the behaviour message this will be evaluated
	// against).
	rewritten := psi.ReplaceThisWithVar("1").ReplaceVarWithThis("B")

	// dep.Evaluate(behaviourMsg, {"1": triggerMsg}) should now mean
	// triggerMsg.x > behaviourMsg.x.
	trigger := msg("a", map[string]any{"x": 5.0})
	behaviour := msg("b", map[string]any{"x": 1.0})
	ok, err := rewritten.Evaluate(behaviour, hplast.Bindings{"1": trigger})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected trigger.x(5) > behaviour.x(1) to hold")
	}

	behaviourHigh := msg("b", map[string]any{"x": 10.0})
	ok, err = rewritten.Evaluate(behaviourHigh, hplast.Bindings{"1": trigger})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected trigger.x(5) > behaviour.x(10) to be false")
	}
}
