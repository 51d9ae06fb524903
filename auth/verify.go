package auth

import "match-lab/domain"

// Verify resolves a raw token into an identity.
//
// Every failure mode (empty, malformed, expired, unknown subject)
// degrades to domain.Anonymous; the connection layer never sees an
// error from authentication.
func Verify(token string) domain.Identity {
	if token == "" {
		return domain.Anonymous
	}

	claims, err := ValidateToken(token)
	if err != nil || claims.Username == "" {
		return domain.Anonymous
	}
	return domain.Identity(claims.Username)
}
