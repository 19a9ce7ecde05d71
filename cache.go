package custodian

import "context"

// Cache provides caching for access check results.
type Cache interface {
	// Get returns a cached access decision, if available.
	Get(ctx context.Context, domainID, principalID, entityID, permission string) (bool, bool)

	// Set stores an access decision in the cache.
	Set(ctx context.Context, domainID, principalID, entityID, permission string, allowed bool)

	// InvalidateDomain removes all cached decisions for a domain.
	InvalidateDomain(ctx context.Context, domainID string)

	// InvalidateEntity removes all cached decisions that touch a specific entity.
	InvalidateEntity(ctx context.Context, domainID, entityID string)
}
