package db

import (
	"context"
	"errors"
	"fmt"
)

// linksChannel is the NOTIFY channel fed by the links_changed trigger.
const linksChannel = "links_changed"

// ListenLinkChanges blocks, calling onChange once LISTEN is active and after
// every committed change to the links table, until ctx is done. It holds one
// pooled connection for the duration.
func (d *DB) ListenLinkChanges(ctx context.Context, onChange func()) error {
	conn, err := d.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+linksChannel); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	onChange()

	for {
		if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				// The connection may be mid-wait; drop it instead of returning it dirty.
				conn.Hijack().Close(context.Background())
				return nil
			}
			return fmt.Errorf("failed waiting for notification: %w", err)
		}
		onChange()
	}
}
