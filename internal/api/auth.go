package api

import "net/http"

// AuthorizeRequest reports whether the request carries a live session cookie.
// A missing cookie, an unknown token, and an expired token all look the same
// to the caller.
func (h *Handler) AuthorizeRequest(r *http.Request) (bool, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return false, nil
	}
	return h.Sessions.Validate(cookie.Value)
}
