package output

import (
	"context"
	"testing"

	"github.com/hejijunhao/oktify/internal/model"
)

type closer struct{ closed bool }

func (c *closer) Write(context.Context, model.ReportRow) error { return nil }
func (c *closer) Close() error                                 { c.closed = true; return nil }

type aborter struct {
	closer
	reason string
}

func (a *aborter) Abort(reason string) error { a.reason = reason; return nil }

func TestAbortPrefersAborter(t *testing.T) {
	a := &aborter{}
	if err := Abort(a, "boom"); err != nil {
		t.Fatal(err)
	}
	if a.reason != "boom" || a.closed {
		t.Fatalf("reason = %q, closed = %v", a.reason, a.closed)
	}
}

func TestAbortFallsBackToClose(t *testing.T) {
	c := &closer{}
	if err := Abort(c, "boom"); err != nil {
		t.Fatal(err)
	}
	if !c.closed {
		t.Fatal("expected Close to be called")
	}
}
