package enrich

import "ghindexer/internal/model"

// PreferOrgCopy resolves a repository seen twice during affiliated
// traversal, once under an organization and once under the viewer. A held
// organization-owned copy is never replaced by a user-owned one; in every
// other case the incoming copy, being the newer, wins.
func PreferOrgCopy(held, incoming model.Repository) bool {
	return held.Org.Kind != model.OwnerOrganization || incoming.Org.Kind == model.OwnerOrganization
}
