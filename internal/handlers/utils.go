// internal/handlers/utils.go
package handlers

import "strings"

// ownerCookieName is where browser clients keep the owner JWT issued by
// /session/create when they cannot put it in the ws query string.
const ownerCookieName = "auth_token"

// ownerTokenFromCookie pulls the owner token out of a Cookie header, or
// returns empty if the cookie is not set.
func ownerTokenFromCookie(cookieHeader string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == ownerCookieName {
			return value
		}
	}
	return ""
}
