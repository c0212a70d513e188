// Package registry holds the static page-to-credential mapping.
//
// The registry is built once at process start from configuration and is
// immutable afterwards. Absence of an entry for a page is a valid, expected
// state: it means the relay is not configured to reply on that page's behalf.
package registry

// Registry maps a page ID to that page's outbound access token.
type Registry struct {
	credentials map[string]string
}

// New builds a registry from a pageID → access token map. The input map is
// copied, so later mutation of it does not affect the registry.
func New(pages map[string]string) *Registry {
	credentials := make(map[string]string, len(pages))
	for pageID, token := range pages {
		if pageID == "" || token == "" {
			continue
		}
		credentials[pageID] = token
	}
	return &Registry{credentials: credentials}
}

// Lookup returns the access token for pageID. The second return value is
// false when the page is not registered.
func (r *Registry) Lookup(pageID string) (string, bool) {
	token, ok := r.credentials[pageID]
	return token, ok
}

// Len reports how many pages are registered.
func (r *Registry) Len() int {
	return len(r.credentials)
}
