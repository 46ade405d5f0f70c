package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/glowlabs/glowlabs/internal/config"
	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/glowlabs/glowlabs/internal/service"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

const stateCookieName = "oauth-state"

// SocialProfile is what the identity provider hands back after a successful
// exchange.
type SocialProfile struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// SocialHandlers implements the social-login bootstrap: verify identity with
// the provider, find or create the client, and mint the temporary pair. Full
// session issuance is deliberately deferred to the session middleware, keyed
// on profile completeness, so a client without a phone number passes through
// the profile-completion flow exactly once.
type SocialHandlers struct {
	oauth        *oauth2.Config
	clients      ClientAccounts
	tokens       *service.TokenService
	cfg          *config.Config
	logger       *logrus.Logger
	fetchProfile func(ctx context.Context, accessToken string) (*SocialProfile, error)
}

func NewSocialHandlers(
	clients ClientAccounts,
	tokens *service.TokenService,
	cfg *config.Config,
	logger *logrus.Logger,
) *SocialHandlers {
	h := &SocialHandlers{
		oauth: &oauth2.Config{
			ClientID:     cfg.Social.AppID,
			ClientSecret: cfg.Social.AppSecret,
			RedirectURL:  cfg.Social.CallbackURL,
			Scopes:       []string{"email"},
			Endpoint:     facebook.Endpoint,
		},
		clients: clients,
		tokens:  tokens,
		cfg:     cfg,
		logger:  logger,
	}
	h.fetchProfile = h.fetchGraphProfile
	return h
}

// Begin redirects the browser to the identity provider.
func (h *SocialHandlers) Begin(w http.ResponseWriter, r *http.Request) {
	state, err := randomState()
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate OAuth state")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the exchange. Whatever the profile state, only the
// temporary bootstrap pair is minted here.
func (h *SocialHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, Expires: time.Unix(0, 0)})

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).Error("OAuth code exchange failed")
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	profile, err := h.fetchProfile(r.Context(), token.AccessToken)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch social profile")
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}
	if profile.Email == "" {
		http.Error(w, "Identity provider returned no email", http.StatusUnauthorized)
		return
	}

	client, err := h.clients.GetByEmail(r.Context(), profile.Email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up client for social login")
		http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	if client == nil {
		client = &models.Client{
			ID:        uuid.New().String(),
			Email:     profile.Email,
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
		}
		if err := h.clients.Create(r.Context(), client); err != nil {
			h.logger.WithError(err).Error("Failed to create client for social login")
			http.Error(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	access, err := h.tokens.MintAccess(service.AccessClaims{
		PrincipalID: client.ID,
		Email:       client.Email,
		PhoneNumber: client.PhoneNumber,
		FirstName:   client.FirstName,
		LastName:    client.LastName,
	}, h.cfg.JWT.BootstrapExpiry)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	display, err := h.tokens.MintDisplay(service.DisplayClaims{
		PrincipalID: client.ID,
		Picture:     profile.Picture.Data.URL,
	}, h.cfg.JWT.BootstrapExpiry)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	names := models.CustomerCookies()
	setSessionCookie(w, names.BootstrapAccess, access, h.cfg.JWT.BootstrapExpiry, true)
	setSessionCookie(w, names.BootstrapDisplay, display, h.cfg.JWT.BootstrapExpiry, false)

	http.Redirect(w, r, h.cfg.Social.RedirectURL, http.StatusFound)
}

func (h *SocialHandlers) fetchGraphProfile(ctx context.Context, accessToken string) (*SocialProfile, error) {
	endpoint := fmt.Sprintf("%s?fields=%s&access_token=%s",
		h.cfg.Social.ProfileURL,
		url.QueryEscape("email,first_name,last_name,picture.type(small)"),
		url.QueryEscape(accessToken),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request returned status %d", resp.StatusCode)
	}

	var profile SocialProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &profile, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
