package service

import (
	"context"
	"errors"
	"time"

	"github.com/glowlabs/glowlabs/internal/config"
	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/sirupsen/logrus"
)

type SessionState int

const (
	// SessionUnauthenticated: no usable credential on the request.
	SessionUnauthenticated SessionState = iota
	// SessionAuthenticated: a valid access or refresh token resolved a principal.
	SessionAuthenticated
	// SessionPendingProfile: a bootstrap token identified the principal but
	// the profile is still incomplete; the request proceeds unauthenticated
	// and the bootstrap pair stays in place.
	SessionPendingProfile
)

// CookieEffect is a single cookie write the caller must play back onto the
// response, in order.
type CookieEffect struct {
	Name     string
	Value    string
	MaxAge   time.Duration
	HTTPOnly bool
	Clear    bool
}

func setCookie(name, value string, maxAge time.Duration, httpOnly bool) CookieEffect {
	return CookieEffect{Name: name, Value: value, MaxAge: maxAge, HTTPOnly: httpOnly}
}

func clearCookie(name string) CookieEffect {
	return CookieEffect{Name: name, Clear: true}
}

// SessionCookies is the raw cookie state of one principal kind on an inbound
// request. Empty string means the cookie is absent.
type SessionCookies struct {
	Access           string
	Refresh          string
	Display          string
	BootstrapAccess  string
	BootstrapDisplay string
	Logout           bool
}

type Resolution struct {
	State       SessionState
	PrincipalID string
	Effects     []CookieEffect
}

// Principal is the store snapshot the session evaluator works from.
type Principal struct {
	ID              string
	TokenCount      int
	ProfileComplete bool
	Access          AccessClaims
	Display         DisplayClaims
}

type PrincipalDirectory interface {
	// FindByID returns ErrPrincipalNotFound when no record exists and an
	// error wrapping ErrStoreUnavailable when the store cannot answer.
	FindByID(ctx context.Context, id string) (*Principal, error)
}

// SessionTTLs are the cookie lifetimes for one principal kind. Promote TTLs
// apply to the access+display pair minted when a bootstrap session is
// promoted: 60 days for the social customer flow, standard lifetimes for staff.
type SessionTTLs struct {
	Access         time.Duration
	Refresh        time.Duration
	Display        time.Duration
	PromoteAccess  time.Duration
	PromoteDisplay time.Duration
}

func CustomerSessionTTLs(cfg *config.JWTConfig) SessionTTLs {
	return SessionTTLs{
		Access:         cfg.AccessExpiry,
		Refresh:        cfg.RefreshExpiry,
		Display:        cfg.DisplayExpiry,
		PromoteAccess:  cfg.SocialExpiry,
		PromoteDisplay: cfg.SocialExpiry,
	}
}

func StaffSessionTTLs(cfg *config.JWTConfig) SessionTTLs {
	return SessionTTLs{
		Access:         cfg.AccessExpiry,
		Refresh:        cfg.RefreshExpiry,
		Display:        cfg.DisplayExpiry,
		PromoteAccess:  cfg.AccessExpiry,
		PromoteDisplay: cfg.DisplayExpiry,
	}
}

// SessionEvaluator is the per-kind session state machine. Evaluate is a pure
// transition function over (cookies, store): it performs no cookie I/O itself
// and never writes the store, so the whole cascade is unit-testable without a
// network layer. One evaluator serves customers, another staff; they differ
// only in cookie names, TTLs and directory.
type SessionEvaluator struct {
	tokens *TokenService
	dir    PrincipalDirectory
	names  models.CookieNames
	ttls   SessionTTLs
	logger *logrus.Logger
}

func NewSessionEvaluator(
	tokens *TokenService,
	dir PrincipalDirectory,
	names models.CookieNames,
	ttls SessionTTLs,
	logger *logrus.Logger,
) *SessionEvaluator {
	return &SessionEvaluator{
		tokens: tokens,
		dir:    dir,
		names:  names,
		ttls:   ttls,
		logger: logger,
	}
}

// Evaluate runs the session cascade in its strict order:
//
//  1. logout signal: clear everything, done
//  2. no credentials at all: unauthenticated, drop any stray display cookie
//  3. access token verifies: authenticated (verification failure is
//     swallowed and the cascade falls through to the refresh path)
//  4. no refresh but a bootstrap token: promote if the profile is complete,
//     otherwise leave the pair intact and stay unauthenticated
//  5. no refresh, no bootstrap: unauthenticated
//  6. refresh token: verify signature, then load the principal and require
//     tokenCount equality; on success rotate the whole cookie set
//
// The only error it returns is store unavailability. Every token failure
// degrades to SessionUnauthenticated.
func (e *SessionEvaluator) Evaluate(ctx context.Context, c SessionCookies) (Resolution, error) {
	res := Resolution{State: SessionUnauthenticated}

	if c.Logout {
		res.Effects = append(res.Effects,
			clearCookie(e.names.Access),
			clearCookie(e.names.Refresh),
			clearCookie(e.names.Display),
			clearCookie(e.names.BootstrapAccess),
			clearCookie(e.names.BootstrapDisplay),
			clearCookie(models.LogoutCookieName),
		)
		return res, nil
	}

	if c.Access == "" && c.Refresh == "" && c.BootstrapAccess == "" {
		if c.Display != "" {
			res.Effects = append(res.Effects, clearCookie(e.names.Display))
		}
		return res, nil
	}

	if c.Access != "" {
		claims, err := e.tokens.VerifyAccess(c.Access)
		if err == nil {
			res.State = SessionAuthenticated
			res.PrincipalID = claims.PrincipalID
			if c.Display == "" {
				res.Effects = e.appendDisplay(res.Effects, DisplayClaims{
					PrincipalID: claims.PrincipalID,
					Role:        claims.Role,
				}, e.ttls.Display)
			}
			return res, nil
		}
		// Invalid or expired access token: fall through to the refresh path.
		e.logger.WithError(err).Debug("Access token verification failed, trying refresh")
	}

	if c.Refresh == "" {
		if c.BootstrapAccess != "" {
			return e.evaluateBootstrap(ctx, c)
		}
		if c.Display != "" {
			res.Effects = append(res.Effects, clearCookie(e.names.Display))
		}
		if c.BootstrapDisplay != "" {
			res.Effects = append(res.Effects, clearCookie(e.names.BootstrapDisplay))
		}
		return res, nil
	}

	claims, err := e.tokens.VerifyRefresh(c.Refresh)
	if err != nil {
		if c.Display != "" {
			res.Effects = append(res.Effects, clearCookie(e.names.Display))
		}
		return res, nil
	}

	principal, err := e.dir.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			if c.Display != "" {
				res.Effects = append(res.Effects, clearCookie(e.names.Display))
			}
			return res, nil
		}
		return Resolution{}, err
	}

	if principal.TokenCount != claims.TokenCount {
		// The counter moved since issuance: this and every sibling refresh
		// token are revoked. Never a warning, always invalid.
		if c.Display != "" {
			res.Effects = append(res.Effects, clearCookie(e.names.Display))
		}
		return res, nil
	}

	return e.rotate(principal, c.Display != "")
}

// evaluateBootstrap handles step 4: a temporary pair from the social or
// staff-onboarding flow, pending profile completion.
func (e *SessionEvaluator) evaluateBootstrap(ctx context.Context, c SessionCookies) (Resolution, error) {
	res := Resolution{State: SessionUnauthenticated}

	claims, err := e.tokens.VerifyAccess(c.BootstrapAccess)
	if err != nil {
		res.Effects = append(res.Effects,
			clearCookie(e.names.BootstrapAccess),
			clearCookie(e.names.BootstrapDisplay),
		)
		if c.Display != "" {
			res.Effects = append(res.Effects, clearCookie(e.names.Display))
		}
		return res, nil
	}

	principal, err := e.dir.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			res.Effects = append(res.Effects,
				clearCookie(e.names.BootstrapAccess),
				clearCookie(e.names.BootstrapDisplay),
			)
			return res, nil
		}
		return Resolution{}, err
	}

	if !principal.ProfileComplete {
		// Leave the temporary pair intact; this request proceeds
		// unauthenticated but the handler layer may use the pending id to
		// drive profile completion.
		res.State = SessionPendingProfile
		res.PrincipalID = principal.ID
		return res, nil
	}

	// Promote to a full session and retire the temporary pair.
	display := principal.Display
	if c.BootstrapDisplay != "" {
		if bootClaims, err := e.tokens.VerifyDisplay(c.BootstrapDisplay); err == nil {
			display.Picture = bootClaims.Picture
		}
	}

	access, err := e.tokens.MintAccess(principal.Access, e.ttls.PromoteAccess)
	if err != nil {
		return Resolution{}, err
	}
	refresh, err := e.tokens.MintRefresh(principal.ID, principal.TokenCount, e.ttls.Refresh)
	if err != nil {
		return Resolution{}, err
	}
	displayToken, err := e.tokens.MintDisplay(display, e.ttls.PromoteDisplay)
	if err != nil {
		return Resolution{}, err
	}

	res.State = SessionAuthenticated
	res.PrincipalID = principal.ID
	res.Effects = append(res.Effects,
		clearCookie(e.names.BootstrapAccess),
		clearCookie(e.names.BootstrapDisplay),
		setCookie(e.names.Access, access, e.ttls.PromoteAccess, true),
		setCookie(e.names.Refresh, refresh, e.ttls.Refresh, true),
		setCookie(e.names.Display, displayToken, e.ttls.PromoteDisplay, false),
	)
	return res, nil
}

// rotate issues a fresh access+refresh pair off a verified refresh token.
// The display token is regenerated only if one already existed, so a request
// that carries no display cookie causes no display write.
func (e *SessionEvaluator) rotate(principal *Principal, hadDisplay bool) (Resolution, error) {
	access, err := e.tokens.MintAccess(principal.Access, e.ttls.Access)
	if err != nil {
		return Resolution{}, err
	}
	refresh, err := e.tokens.MintRefresh(principal.ID, principal.TokenCount, e.ttls.Refresh)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{
		State:       SessionAuthenticated,
		PrincipalID: principal.ID,
	}

	if hadDisplay {
		res.Effects = append(res.Effects, clearCookie(e.names.Display))
		res.Effects = e.appendDisplay(res.Effects, principal.Display, e.ttls.Display)
	}

	res.Effects = append(res.Effects,
		setCookie(e.names.Access, access, e.ttls.Access, true),
		setCookie(e.names.Refresh, refresh, e.ttls.Refresh, true),
	)
	return res, nil
}

func (e *SessionEvaluator) appendDisplay(effects []CookieEffect, claims DisplayClaims, ttl time.Duration) []CookieEffect {
	token, err := e.tokens.MintDisplay(claims, ttl)
	if err != nil {
		// Display tokens are informational only; failing to mint one must
		// not fail the request.
		e.logger.WithError(err).Error("Failed to mint display token")
		return effects
	}
	return append(effects, setCookie(e.names.Display, token, ttl, false))
}
