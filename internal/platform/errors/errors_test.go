package errors

import (
	stderrs "errors"
	"fmt"
	"testing"
)

func TestCodeOfAndIsCode(t *testing.T) {
	t.Parallel()

	err := Transientf("group %s skipped", "12")
	if !IsCode(err, ErrorCodeTransient) {
		t.Fatalf("IsCode transient = false")
	}
	if CodeOf(err) != ErrorCodeTransient {
		t.Fatalf("CodeOf = %v", CodeOf(err))
	}

	// plain errors classify as unknown
	if CodeOf(stderrs.New("boring")) != ErrorCodeUnknown {
		t.Fatalf("plain error classified")
	}
	if CodeOf(nil) != ErrorCodeUnknown {
		t.Fatalf("nil error classified")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := stderrs.New("socket closed")
	err := Wrap(cause, ErrorCodeAuth, "token handshake")

	if !stderrs.Is(err, cause) {
		t.Fatalf("wrapped cause lost")
	}
	if Root(err) != cause {
		t.Fatalf("Root = %v, want cause", Root(err))
	}
	if got := err.Error(); got != "token handshake: socket closed" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestCodeSurvivesOuterWrapping(t *testing.T) {
	t.Parallel()

	inner := Protocolf("catalog response not understood")
	outer := fmt.Errorf("window [0, 999]: %w", inner)

	if !IsCode(outer, ErrorCodeProtocol) {
		t.Fatalf("code lost through fmt wrapping")
	}
}

func TestWithOp(t *testing.T) {
	t.Parallel()

	err := Storef("insert failed")
	tagged := WithOp(err, "bulk.runSpan")

	e, ok := As(tagged)
	if !ok || e.Op() != "bulk.runSpan" {
		t.Fatalf("op not attached: %v", tagged)
	}
	// original is untouched
	if o, _ := As(err); o.Op() != "" {
		t.Fatalf("WithOp mutated original")
	}

	// non-project errors pass through unchanged
	plain := stderrs.New("plain")
	if WithOp(plain, "x") != plain {
		t.Fatalf("WithOp wrapped a plain error")
	}
}

func TestWrapIf(t *testing.T) {
	t.Parallel()

	if WrapIf(nil, ErrorCodeStore, "x") != nil {
		t.Fatalf("WrapIf wrapped nil")
	}
	if err := WrapIf(stderrs.New("y"), ErrorCodeStore, "x"); !IsCode(err, ErrorCodeStore) {
		t.Fatalf("WrapIf did not wrap")
	}
}
