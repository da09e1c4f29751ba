package auth

import (
	"fmt"
	"net/http"
	"strings"

	"postservice/schemas"
)

const (
	UsernameHeader = "X-Auth-Username"
	RoleHeader     = "X-Auth-Role"
)

// HeaderResolver trusts identity headers set by an authenticating gateway in
// front of the service.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (schemas.Identity, error) {
	username := strings.TrimSpace(r.Header.Get(UsernameHeader))
	if username == "" {
		return schemas.Identity{}, fmt.Errorf("%w: missing %s header", ErrNoIdentity, UsernameHeader)
	}
	return schemas.Identity{
		Username: schemas.UserId(username),
		Role:     schemas.Role(strings.TrimSpace(r.Header.Get(RoleHeader))),
	}, nil
}
