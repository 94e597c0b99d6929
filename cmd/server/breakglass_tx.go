package main

import (
	"context"
	"time"

	bgservice "provenant/internal/breakglass/service"
	dErrors "provenant/pkg/domain-errors"
)

const defaultBreakGlassTxTimeout = 5 * time.Second

// boundedTx gives grant changes a deadline when the caller has none, so a
// stuck transaction cannot hold the authorization row indefinitely.
type boundedTx struct {
	next    bgservice.Transactor
	timeout time.Duration
}

func newBoundedTx(next bgservice.Transactor) *boundedTx {
	return &boundedTx{next: next, timeout: defaultBreakGlassTxTimeout}
}

func (t *boundedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.next.RunInTx(ctx, fn)
}
