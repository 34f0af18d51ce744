package retry

import "context"

// RefreshResult reports the outcome of a credential refresh.
type RefreshResult struct {
	Success bool
	// RequiresInteractiveReauth is set when new credentials exist but a user
	// must complete a login step before they can be used.
	RequiresInteractiveReauth bool
	Message                   string
}

// CredentialRefresher renews credentials after an authentication failure.
type CredentialRefresher interface {
	Refresh(ctx context.Context) (RefreshResult, error)
}

// RefreshFunc adapts a function to the CredentialRefresher interface.
type RefreshFunc func(ctx context.Context) (RefreshResult, error)

// Refresh implements CredentialRefresher.
func (f RefreshFunc) Refresh(ctx context.Context) (RefreshResult, error) {
	return f(ctx)
}
