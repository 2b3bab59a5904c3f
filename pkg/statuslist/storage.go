package statuslist

import (
	"context"
	"errors"

	"sdjwtcore/pkg/logger"
)

// StatusListStorage is the persistence contract a caller implements to
// back a StatusList with durable storage while supporting concurrent
// status updates. The ETag is opaque to this package: callers may use a
// revision counter, a content hash, or anything else their storage layer
// already produces.
type StatusListStorage interface {
	// GetWithETag returns the current StatusList for subject and an ETag
	// identifying that version. It returns ErrStatusUnknown if no list
	// exists yet for subject.
	GetWithETag(ctx context.Context, subject string) (sl *StatusList, etag string, err error)

	// TrySave persists sl under subject only if the stored version's
	// ETag still matches etag, then returns the new ETag. It returns
	// ErrConcurrencyConflict if etag is stale, so callers can re-fetch,
	// reapply their status change, and retry.
	TrySave(ctx context.Context, subject string, sl *StatusList, etag string) (newETag string, err error)
}

// UpdateStatus fetches the current list for subject, applies update, and
// retries TrySave under optimistic concurrency until it succeeds or ctx is
// done. update must be idempotent with respect to retries: it is called
// again from scratch on every conflict.
//
// log is optional: pass nil to stay silent, or a *logger.Log to record a
// trace event per retry and an info event on the write that finally lands,
// the audit trail an issuer or status-list service typically wants around a
// revocation or suspension.
func UpdateStatus(ctx context.Context, storage StatusListStorage, subject string, update func(sl *StatusList) error, log *logger.Log) error {
	attempt := 0
	for {
		attempt++
		sl, etag, err := storage.GetWithETag(ctx, subject)
		if err != nil {
			return err
		}
		if err := update(sl); err != nil {
			return err
		}
		newETag, err := storage.TrySave(ctx, subject, sl, etag)
		if err == nil {
			if log != nil {
				log.Info("status list updated", "subject", subject, "etag", newETag, "attempt", attempt)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// ErrConcurrencyConflict: loop and retry against the fresh version.
		if !errors.Is(err, ErrConcurrencyConflict) {
			return err
		}
		if log != nil {
			log.Trace("status list write conflict, retrying", "subject", subject, "attempt", attempt)
		}
	}
}
