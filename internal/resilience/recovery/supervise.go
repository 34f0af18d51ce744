package recovery

import (
	"context"
)

// Supervise consumes connection-lost notifications for one resource and
// drives it back to health: each error schedules a recovery, and when the
// ticket fires reconnect is called. A failed reconnect is fed back as the
// next error. Supervise returns when errs is closed or ctx ends, cancelling
// any pending recovery for the resource.
func (o *Orchestrator) Supervise(ctx context.Context, resourceID string, errs <-chan error, reconnect func(ctx context.Context) error) error {
	defer o.Cancel(resourceID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			if err := o.recover(ctx, resourceID, err, reconnect); err != nil {
				return err
			}
		}
	}
}

func (o *Orchestrator) recover(ctx context.Context, resourceID string, err error, reconnect func(ctx context.Context) error) error {
	for {
		t, herr := o.HandleConnectionError(resourceID, err, nil)
		if herr != nil {
			return herr
		}
		if !t.Scheduled() {
			// Start the next notification from a clean slate.
			o.reset(resourceID, t.Category)
			return nil
		}
		if !t.Wait(ctx) {
			return ctx.Err()
		}

		rerr := reconnect(ctx)
		if rerr == nil {
			o.MarkRecoverySuccess(resourceID, t.Category)
			return nil
		}
		o.logger.Debug("Reconnect failed", "resource_id", resourceID, "attempt", t.Attempt, "error", rerr)
		err = rerr
	}
}
