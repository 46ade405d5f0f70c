package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/glowlabs/glowlabs/internal/service"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	customerAuthKey    contextKey = "customer_auth"
	customerIDKey      contextKey = "customer_id"
	customerPendingKey contextKey = "customer_pending_id"
	staffAuthKey       contextKey = "staff_auth"
	staffIDKey         contextKey = "staff_id"
	staffPendingKey    contextKey = "staff_pending_id"
)

// SessionMiddleware runs the session evaluator on every request and plays the
// resulting cookie effects back onto the response, in order. It attaches the
// resolved identity to the request context; it never rejects a request itself
// except when the credential store is unreachable.
type SessionMiddleware struct {
	evaluator  *service.SessionEvaluator
	names      models.CookieNames
	authKey    contextKey
	idKey      contextKey
	pendingKey contextKey
	logger     *logrus.Logger
}

func NewCustomerSessionMiddleware(evaluator *service.SessionEvaluator, logger *logrus.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		evaluator:  evaluator,
		names:      models.CustomerCookies(),
		authKey:    customerAuthKey,
		idKey:      customerIDKey,
		pendingKey: customerPendingKey,
		logger:     logger,
	}
}

func NewStaffSessionMiddleware(evaluator *service.SessionEvaluator, logger *logrus.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		evaluator:  evaluator,
		names:      models.StaffCookies(),
		authKey:    staffAuthKey,
		idKey:      staffIDKey,
		pendingKey: staffPendingKey,
		logger:     logger,
	}
}

func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies := service.SessionCookies{
			Access:           cookieValue(r, m.names.Access),
			Refresh:          cookieValue(r, m.names.Refresh),
			Display:          cookieValue(r, m.names.Display),
			BootstrapAccess:  cookieValue(r, m.names.BootstrapAccess),
			BootstrapDisplay: cookieValue(r, m.names.BootstrapDisplay),
			Logout:           hasCookie(r, models.LogoutCookieName),
		}

		res, err := m.evaluator.Evaluate(r.Context(), cookies)
		if err != nil {
			m.logger.WithError(err).Error("Session evaluation failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"code":"SERVICE_UNAVAILABLE","message":"Service temporarily unavailable"}}`))
			return
		}

		for _, effect := range res.Effects {
			applyEffect(w, effect)
		}

		ctx := context.WithValue(r.Context(), m.authKey, res.State == service.SessionAuthenticated)
		switch res.State {
		case service.SessionAuthenticated:
			ctx = context.WithValue(ctx, m.idKey, res.PrincipalID)
		case service.SessionPendingProfile:
			ctx = context.WithValue(ctx, m.pendingKey, res.PrincipalID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func applyEffect(w http.ResponseWriter, effect service.CookieEffect) {
	if effect.Clear {
		http.SetCookie(w, &http.Cookie{
			Name:    effect.Name,
			Value:   "",
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     effect.Name,
		Value:    effect.Value,
		Path:     "/",
		MaxAge:   int(effect.MaxAge.Seconds()),
		HttpOnly: effect.HTTPOnly,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func hasCookie(r *http.Request, name string) bool {
	_, err := r.Cookie(name)
	return err == nil
}

func IsCustomerAuthenticated(ctx context.Context) bool {
	auth, _ := ctx.Value(customerAuthKey).(bool)
	return auth
}

func CustomerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(customerIDKey).(string)
	return id, ok
}

// CustomerPendingID returns the principal id carried by a bootstrap token
// whose profile is still incomplete.
func CustomerPendingID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(customerPendingKey).(string)
	return id, ok
}

func IsStaffAuthenticated(ctx context.Context) bool {
	auth, _ := ctx.Value(staffAuthKey).(bool)
	return auth
}

func StaffID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(staffIDKey).(string)
	return id, ok
}

func StaffPendingID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(staffPendingKey).(string)
	return id, ok
}
