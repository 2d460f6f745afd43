/*
Package errors provides semantic error types for the storage gateway.

Every gateway operation reports failures using one of four kinds, each
checkable with the standard errors.Is() function or the provided helpers:

	ValidationError   ErrInvalidInput      malformed input, caught before any network call
	Conflict          ErrConflict          duplicate key, existing blob, stale ETag
	NotFound          ErrNotFound          referenced entity or blob is absent
	StoreUnavailable  ErrStoreUnavailable  transport, auth, throttling or unknown remote failure

AlreadyExistsError and ConditionFailedError both satisfy ErrConflict, so callers
that only care about the kind can test for it directly.

Usage:

	user, err := users.GetEntity(ctx, "Users", id)
	if err != nil {
	    switch {
	    case errors.IsNotFound(err):
	        return nil, fmt.Errorf("user %s does not exist", id)
	    case errors.IsRetryable(err):
	        // back off and try again
	    }
	    return nil, err
	}

Only StoreUnavailable is retryable. The gateways never retry on their own.
*/
package errors
