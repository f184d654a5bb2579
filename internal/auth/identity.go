// Package auth resolves inbound bearer tokens into request identities and
// issues tokens for the gateway's own token endpoint.
package auth

import "time"

// Identity is the authenticated subject extracted from a bearer token.
// It is immutable once created and lives only for the current request.
type Identity struct {
	Subject   string
	Grants    []string
	ExpiresAt time.Time
}

// HasGrant reports whether the identity carries the named grant.
func (i *Identity) HasGrant(grant string) bool {
	if i == nil {
		return false
	}
	for _, g := range i.Grants {
		if g == grant {
			return true
		}
	}
	return false
}
