package irrecoverable

import (
	"context"
	"testing"
)

// NewMockSignalerContext returns a SignalerContext for components under test
// that must never throw. Any thrown error fails the test.
func NewMockSignalerContext(t testing.TB, ctx context.Context) SignalerContext {
	return failingSignalerContext{Context: ctx, t: t}
}

type failingSignalerContext struct {
	context.Context
	t testing.TB
}

func (c failingSignalerContext) sealed() {}

func (c failingSignalerContext) Throw(err error) {
	c.t.Helper()
	c.t.Fatalf("unexpected irrecoverable error: %v", err)
}
