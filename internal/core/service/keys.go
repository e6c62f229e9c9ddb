package service

import (
	"net/url"
	"strconv"

	"github.com/userhub/user-api/internal/core/domain"
)

// usersKeyPrefix namespaces every collection key so a single prefix
// invalidation drops all cached list results.
const usersKeyPrefix = "users:"

func userKey(id int64) string {
	return "user:" + strconv.FormatInt(id, 10)
}

// usersKey encodes both filter fields, escaped and in fixed order, so
// distinct filters never share a key.
func usersKey(f domain.UserFilter) string {
	v := url.Values{}
	v.Set("name", f.Name())
	v.Set("role", f.Role())
	return usersKeyPrefix + v.Encode()
}
