package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// CallContextHeader is the header name carrying the base64-encoded JSON
// call context.
const CallContextHeader = "X-RhApiPlatform-CallContext"

// principal is one of the {roles, authenticated, ...} sub-objects of a
// CallContext.
type principal struct {
	Roles           []string `json:"roles"`
	Authenticated   bool     `json:"authenticated"`
	ServiceAccountID string  `json:"serviceAccountId,omitempty"`
	InternalUsername string  `json:"internalUsername,omitempty"`
}

// CallContext is the decoded shape of the X-RhApiPlatform-CallContext
// header: a client principal (service-to-service calls) and/or a user
// principal (human callers), each carrying a role list.
type CallContext struct {
	Client principal `json:"client"`
	User   principal `json:"user"`
}

// hasRole reports whether either principal carries role among its
// granted roles, and is marked authenticated.
func (c CallContext) hasRole(role string) bool {
	if c.Client.Authenticated {
		for _, r := range c.Client.Roles {
			if r == role {
				return true
			}
		}
	}
	if c.User.Authenticated {
		for _, r := range c.User.Roles {
			if r == role {
				return true
			}
		}
	}
	return false
}

// parseCallContext decodes the base64-encoded JSON call-context header
// value.
func parseCallContext(header string) (CallContext, error) {
	if header == "" {
		return CallContext{}, fmt.Errorf("httpapi: missing %s header", CallContextHeader)
	}
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return CallContext{}, fmt.Errorf("httpapi: invalid base64 in %s: %w", CallContextHeader, err)
	}
	var cc CallContext
	if err := json.Unmarshal(raw, &cc); err != nil {
		return CallContext{}, fmt.Errorf("httpapi: invalid JSON in %s: %w", CallContextHeader, err)
	}
	return cc, nil
}
