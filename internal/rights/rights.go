// Package rights is the permission façade for shuttle sessions: a Rights
// capability set carried by each connection and a Require predicate workers
// call during Prepare, so a denied caller is rejected before any Item is
// emitted. Capabilities come from the scope claim of a verified JWT.
package rights

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrMissing is returned by Require when the named capability is absent.
var ErrMissing = errors.New("rights: capability not granted")

// Rights is the capability set extracted from a verified JWT's "scope"
// claim (a space-separated string, matching the OAuth2 scope convention).
type Rights map[string]struct{}

// Require returns nil if capability is present in r, else ErrMissing.
func (r Rights) Require(capability string) error {
	if _, ok := r[capability]; ok {
		return nil
	}
	return errors.Wrapf(ErrMissing, "%q", capability)
}

// Has reports whether capability is present, without an error allocation.
func (r Rights) Has(capability string) bool {
	_, ok := r[capability]
	return ok
}

// Anonymous is the empty Rights set granted to connections presenting no
// bearer token, when the server is configured to allow anonymous access.
var Anonymous = Rights{}

// FromToken verifies rawToken against key and returns the Rights encoded in
// its "scope" claim.
func FromToken(rawToken string, key []byte) (Rights, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("rights: unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "rights: verify token")
	}
	scope, _ := claims["scope"].(string)
	return parseScope(scope), nil
}

func parseScope(scope string) Rights {
	r := make(Rights)
	for _, field := range strings.Fields(scope) {
		r[field] = struct{}{}
	}
	return r
}
