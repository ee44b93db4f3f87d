package logger

import (
	"context"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l, _ := newJSON(t, "info")
	ctx := WithLogger(context.Background(), l)

	if FromContext(ctx) != l {
		t.Error("FromContext() should return the stored logger")
	}
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext() without a logger should return Default()")
	}
}

func TestOperationID(t *testing.T) {
	ctx := WithOperationID(context.Background(), "01HZX")
	if got := OperationIDFromContext(ctx); got != "01HZX" {
		t.Errorf("OperationIDFromContext() = %q, want 01HZX", got)
	}
	if got := OperationIDFromContext(context.Background()); got != "" {
		t.Errorf("OperationIDFromContext() = %q, want empty", got)
	}
}

func TestL(t *testing.T) {
	l, buf := newJSON(t, "info")
	ctx := WithOperationID(WithLogger(context.Background(), l), "op-1")

	L(ctx).Info("command done")
	if got := decode(t, buf)["op_id"]; got != "op-1" {
		t.Errorf("op_id = %v, want op-1", got)
	}

	buf.Reset()
	L(WithLogger(context.Background(), l)).Info("no id")
	if _, ok := decode(t, buf)["op_id"]; ok {
		t.Error("op_id should be absent without an operation ID")
	}
}
