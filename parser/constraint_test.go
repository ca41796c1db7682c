package parser_test

import (
	"strings"
	"testing"

	"github.com/dollerama/econ-go/value"
)

func TestErrorConstraintFires(t *testing.T) {
	src := `{ @!{string, x => $x == "Hello World", "No Hello Worlds!"} a: "Hello World" }`
	err := evalErr(t, src)
	if !strings.Contains(err.Error(), "No Hello Worlds!") {
		t.Errorf("error %q does not contain the constraint message", err)
	}
}

func TestErrorConstraintPassesOtherValues(t *testing.T) {
	src := `{ @!{string, x => $x == "Hello World", "No Hello Worlds!"} a: "Goodbye" }`
	got, _ := value.AsStr(field(t, eval(t, src), "a"))
	if got != "Goodbye" {
		t.Errorf("a = %q, want Goodbye", got)
	}
}

func TestRewriteConstraint(t *testing.T) {
	src := `{ @{string, x => #$x == 0, "empty"} a: "" }`
	got, _ := value.AsStr(field(t, eval(t, src), "a"))
	if got != "empty" {
		t.Errorf("a = %q, want empty", got)
	}
}

func TestRewriteConstraintLeavesNonMatching(t *testing.T) {
	src := `{ @{string, x => #$x == 0, "empty"} a: "full" }`
	got, _ := value.AsStr(field(t, eval(t, src), "a"))
	if got != "full" {
		t.Errorf("a = %q, want full", got)
	}
}

func TestNumberConstraintClamps(t *testing.T) {
	src := `{ @{number, n => $n > 100, 100} a: 250, b: 50 }`
	v := eval(t, src)
	wantNum(t, field(t, v, "a"), 100)
	wantNum(t, field(t, v, "b"), 50)
}

func TestBoolConstraint(t *testing.T) {
	src := `{ @{bool, b => $b == false, true} a: false }`
	got, _ := value.AsBool(field(t, eval(t, src), "a"))
	if !got {
		t.Error("bool constraint did not rewrite")
	}
}

func TestNilConstraintProvidesDefault(t *testing.T) {
	// a nil-tag hook fires when its condition evaluates to nil
	src := `{ @{nil, x => $x, "default"} a: $missing }`
	got, _ := value.AsStr(field(t, eval(t, src), "a"))
	if got != "default" {
		t.Errorf("a = %q, want default", got)
	}
}

func TestChainedConstraintsRunInDeclarationOrder(t *testing.T) {
	src := `{
		@{number, n => $n < 0, 0}
		@{number, n => $n > 10, 10}
		a: 0 - 5,
		b: 99,
		c: 7
	}`
	v := eval(t, src)
	wantNum(t, field(t, v, "a"), 0)
	wantNum(t, field(t, v, "b"), 10)
	wantNum(t, field(t, v, "c"), 7)
}

func TestConstraintChainRewritesFeedForward(t *testing.T) {
	// the second hook sees the first hook's replacement
	src := `{
		@{number, n => $n == 1, 2}
		@{number, n => $n == 2, 3}
		a: 1
	}`
	wantNum(t, field(t, eval(t, "{ a: 1 }"), "a"), 1)
	wantNum(t, field(t, eval(t, src), "a"), 3)
}

func TestConstraintScopedToItsBlock(t *testing.T) {
	src := `{
		limited: { @{number, n => $n > 10, 10} v: 50 },
		free: { v: 50 }
	}`
	v := eval(t, src)
	limited, _ := value.AsObj(field(t, v, "limited"))
	free, _ := value.AsObj(field(t, v, "free"))
	wantNum(t, mustGet(t, limited, "v"), 10)
	wantNum(t, mustGet(t, free, "v"), 50)
}

func TestOuterConstraintAppliesToInnerScopes(t *testing.T) {
	src := `{
		@{number, n => $n > 10, 10}
		inner: { v: 50 }
	}`
	v := eval(t, src)
	inner, _ := value.AsObj(field(t, v, "inner"))
	wantNum(t, mustGet(t, inner, "v"), 10)
}

func TestConstraintAppliesToArrayElements(t *testing.T) {
	src := `{ @{number, n => $n > 10, 10} a: [5, 50, 7] }`
	if got := compact(field(t, eval(t, src), "a")); got != "[5,10,7]" {
		t.Errorf("a = %s", got)
	}
}

func TestConstraintBodyDoesNotTriggerItself(t *testing.T) {
	// the replacement string would loop forever if hooks fired inside hooks
	src := `{ @{string, x => $x == "a", "a"} k: "a" }`
	got, _ := value.AsStr(field(t, eval(t, src), "k"))
	if got != "a" {
		t.Errorf("k = %q", got)
	}
}

func TestConstraintReferenceNameRestored(t *testing.T) {
	src := `{ @{number, n => $n < 0, 0} n: 5, after: $n }`
	v := eval(t, src)
	wantNum(t, field(t, v, "after"), 5)
}

func TestErrorConstraintOnNumbers(t *testing.T) {
	src := `{ @!{number, n => $n < 0, "negative values are not allowed"} a: 0 - 1 }`
	err := evalErr(t, src)
	if !strings.Contains(err.Error(), "negative values are not allowed") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestNonBooleanConstraintCondition(t *testing.T) {
	src := `{ @{number, n => $n + 1, 0} a: 1 }`
	err := evalErr(t, src)
	if !strings.Contains(err.Error(), "condition must be boolean") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestUnterminatedConstraint(t *testing.T) {
	err := evalErr(t, `{ @{number, n => $n > 0, 1 a: 2`)
	if !strings.Contains(err.Error(), "Unterminated Constraint Macro.") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestQuotedNilTag(t *testing.T) {
	src := `{ @{"nil", x => $x, 0} a: $missing }`
	wantNum(t, field(t, eval(t, src), "a"), 0)
}
