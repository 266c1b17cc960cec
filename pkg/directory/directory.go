// Package directory provides the read-only organization lookup the
// routing engine uses to check participant identities. It is injected
// into the engine rather than resolved ambiently.
package directory

import "context"

type Directory interface {
	// UserExists reports whether userID belongs to the tenant's
	// organization.
	UserExists(ctx context.Context, tenantID, userID string) (bool, error)
}

// Static is an in-memory directory keyed by tenant. Used in tests and as
// a stand-in until the HR organization service is wired.
type Static struct {
	users map[string]map[string]struct{}
}

func NewStatic(usersByTenant map[string][]string) *Static {
	users := make(map[string]map[string]struct{}, len(usersByTenant))

	for tenant, ids := range usersByTenant {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}

		users[tenant] = set
	}

	return &Static{users: users}
}

func (s *Static) UserExists(_ context.Context, tenantID, userID string) (bool, error) {
	tenant, ok := s.users[tenantID]
	if !ok {
		return false, nil
	}

	_, ok = tenant[userID]

	return ok, nil
}

// Open accepts every identity. Deployments without an organization
// service fall back to it.
type Open struct{}

func (Open) UserExists(context.Context, string, string) (bool, error) {
	return true, nil
}
