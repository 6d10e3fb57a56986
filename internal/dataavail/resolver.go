package dataavail

import "github.com/extremevalue/quantvalid/internal/domain"

// Resolver answers C1's contract against one Registry.
type Resolver struct {
	registry *Registry
}

// NewResolver builds a Resolver over an already-loaded Registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve reports availability for a single logical requirement.
func (r *Resolver) Resolve(requirement string) domain.DataAvailability {
	src, ok := r.registry.Get(requirement)
	if !ok {
		return domain.DataAvailability{Requirement: requirement, Available: false}
	}
	tier, key, ok := src.BestSource()
	if !ok {
		return domain.DataAvailability{Requirement: requirement, Available: false}
	}
	return domain.DataAvailability{
		Requirement: requirement,
		Available:   true,
		Tier:        tierName(tier),
		Key:         key,
	}
}

// ResolveAll resolves every requirement in order, preserving input order.
func (r *Resolver) ResolveAll(requirements []string) []domain.DataAvailability {
	out := make([]domain.DataAvailability, 0, len(requirements))
	for _, req := range requirements {
		out = append(out, r.Resolve(req))
	}
	return out
}

// AllAvailable reports whether every requirement resolves to available;
// this is the signal C8's data_audit stage consumes to decide BLOCKED.
func (r *Resolver) AllAvailable(requirements []string) (ok bool, unmet []string) {
	for _, req := range requirements {
		av := r.Resolve(req)
		if !av.Available {
			unmet = append(unmet, req)
		}
	}
	return len(unmet) == 0, unmet
}

func tierName(tier string) domain.DataAvailabilityTier {
	switch tier {
	case "qc_native":
		return domain.TierNative
	case "qc_object_store":
		return domain.TierCloudObjects
	case "internal_purchased":
		return domain.TierPurchased
	case "internal_curated":
		return domain.TierCurated
	case "internal_experimental":
		return domain.TierExperimental
	default:
		return domain.TierUnavailable
	}
}
