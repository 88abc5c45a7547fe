package api

import (
	"net/http"
	"strings"

	"github.com/homebudget/budget-engine/auth"
)

// accessTokenCookie is checked when no Authorization header is sent.
const accessTokenCookie = "accessToken"

// Authenticate verifies the bearer token and stores the user in the request
// context. Requests without a valid token get a 401 envelope.
func Authenticate(tokens *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized request")
				return
			}
			userID, err := tokens.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid access token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}
