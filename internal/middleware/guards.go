package middleware

import (
	"net/http"
)

// RequireCustomer rejects requests whose customer session did not resolve to
// authenticated. The body is identical for every failure mode so a caller
// cannot tell a bad credential from no credential.
func RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsCustomerAuthenticated(r.Context()) {
			respondUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsStaffAuthenticated(r.Context()) {
			respondUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Authentication required"}}`))
}
