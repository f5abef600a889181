package domain

import (
	"fmt"
	"regexp"
)

// KeyPrefix namespaces all store keys owned by this module.
const KeyPrefix = "enspira:"

var tenantRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateTenantID checks tenant naming: ^[a-zA-Z0-9_-]+$, 1-64 chars.
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant id is required")
	}
	if len(tenant) > 64 {
		return fmt.Errorf("tenant id too long (max 64)")
	}
	if !tenantRegex.MatchString(tenant) {
		return fmt.Errorf("tenant id must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// CollectionState is the lifecycle state of a tenant collection.
type CollectionState int

// Collection lifecycle: Absent --provision--> Unloaded --load--> Loaded.
// Reset drops back to Absent and immediately re-provisions to Unloaded.
const (
	StateAbsent CollectionState = iota
	StateUnloaded
	StateLoaded
)

func (s CollectionState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	}
	return "unknown"
}

// Collection is the tenant- and kind-scoped vector container (immutable value object).
type Collection struct {
	tenantID  string
	kind      Kind
	dimension int
	createdAt int64
}

// NewCollection validates and creates a Collection.
func NewCollection(tenantID string, kind Kind, dimension int) (Collection, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return Collection{}, err
	}
	if !kind.IsValid() {
		return Collection{}, fmt.Errorf("invalid knowledge kind: %q", kind)
	}
	if dimension <= 0 {
		return Collection{}, fmt.Errorf("vector dimension must be positive")
	}
	return Collection{tenantID: tenantID, kind: kind, dimension: dimension}, nil
}

// ReconstructCollection creates a Collection without validation (storage hydration).
func ReconstructCollection(tenantID string, kind Kind, dimension int, createdAt int64) Collection {
	return Collection{tenantID: tenantID, kind: kind, dimension: dimension, createdAt: createdAt}
}

// TenantID returns the owning tenant.
func (c Collection) TenantID() string { return c.tenantID }

// Kind returns the knowledge kind this collection holds.
func (c Collection) Kind() Kind { return c.kind }

// Dimension returns the configured vector dimension.
func (c Collection) Dimension() int { return c.dimension }

// CreatedAt returns the creation timestamp in unix millis.
func (c Collection) CreatedAt() int64 { return c.createdAt }

// Name returns the tenant-namespaced collection name.
func (c Collection) Name() string {
	return c.tenantID + ":" + string(c.kind)
}
