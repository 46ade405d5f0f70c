package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/glowlabs/glowlabs/internal/config"
	"github.com/glowlabs/glowlabs/internal/messaging"
	"github.com/glowlabs/glowlabs/internal/middleware"
	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/glowlabs/glowlabs/internal/service"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type ClientAccounts interface {
	GetByID(ctx context.Context, id string) (*models.Client, error)
	GetByEmail(ctx context.Context, email string) (*models.Client, error)
	Create(ctx context.Context, c *models.Client) error
	UpdatePhoneNumber(ctx context.Context, id, phoneNumber string) error
	IncrementTokenCount(ctx context.Context, id string) error
}

type EmployeeAccounts interface {
	GetByID(ctx context.Context, id string) (*models.Employee, error)
	GetByEmail(ctx context.Context, email string) (*models.Employee, error)
	SetPermanentPassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenCount(ctx context.Context, id string) error
}

type AuthHandlers struct {
	clients   ClientAccounts
	employees EmployeeAccounts
	tokens    *service.TokenService
	cfg       *config.Config
	logger    *logrus.Logger
}

func NewAuthHandlers(
	clients ClientAccounts,
	employees EmployeeAccounts,
	tokens *service.TokenService,
	cfg *config.Config,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		clients:   clients,
		employees: employees,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type ClientResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type AdminLoginResponse struct {
	ID                     string `json:"id"`
	Email                  string `json:"email"`
	Role                   string `json:"role"`
	PasswordChangeRequired bool   `json:"password_change_required"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Login authenticates a customer by email and password and sets the full
// session cookie set.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	client, err := h.clients.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up client for login")
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}

	if client == nil || bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(req.Password)) != nil {
		h.respondWithError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	if err := h.setCustomerSession(w, client); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate tokens")
		return
	}

	h.respondWithJSON(w, http.StatusOK, ClientResponse{
		ID:          client.ID,
		Email:       client.Email,
		FirstName:   client.FirstName,
		LastName:    client.LastName,
		PhoneNumber: client.PhoneNumber,
	})
}

// Register creates a customer record and starts a session.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || len(req.Password) < 8 {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Email and a password of at least 8 characters are required")
		return
	}

	phoneNumber := ""
	if req.PhoneNumber != "" {
		normalized, err := messaging.NormalizePhone(req.PhoneNumber)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "INVALID_PHONE", "Invalid phone number format")
			return
		}
		phoneNumber = normalized
	}

	existing, err := h.clients.GetByEmail(r.Context(), email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to check for existing client")
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}
	if existing != nil {
		h.respondWithError(w, http.StatusConflict, "ALREADY_REGISTERED", "An account with this email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to create account")
		return
	}

	client := &models.Client{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  phoneNumber,
		PasswordHash: string(hash),
	}

	if err := h.clients.Create(r.Context(), client); err != nil {
		h.logger.WithError(err).Error("Failed to create client")
		h.respondWithError(w, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to create account")
		return
	}

	if err := h.setCustomerSession(w, client); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate tokens")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, ClientResponse{
		ID:          client.ID,
		Email:       client.Email,
		FirstName:   client.FirstName,
		LastName:    client.LastName,
		PhoneNumber: client.PhoneNumber,
	})
}

// AdminLogin authenticates an employee. An employee still on a temporary
// password only gets the bootstrap pair; the session layer promotes them
// automatically once a permanent password is set.
func (h *AuthHandlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	employee, err := h.employees.GetByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up employee for login")
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}

	if employee == nil || bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.Password)) != nil {
		h.respondWithError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	names := models.StaffCookies()

	if !employee.PermanentPasswordSet {
		access, err := h.tokens.MintAccess(service.AccessClaims{
			PrincipalID: employee.ID,
			Role:        employee.Role,
		}, h.cfg.JWT.BootstrapExpiry)
		if err != nil {
			h.respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate tokens")
			return
		}
		display, err := h.tokens.MintDisplay(service.DisplayClaims{
			PrincipalID: employee.ID,
			Role:        employee.Role,
		}, h.cfg.JWT.BootstrapExpiry)
		if err != nil {
			h.respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate tokens")
			return
		}

		setSessionCookie(w, names.BootstrapAccess, access, h.cfg.JWT.BootstrapExpiry, true)
		setSessionCookie(w, names.BootstrapDisplay, display, h.cfg.JWT.BootstrapExpiry, false)

		h.respondWithJSON(w, http.StatusOK, AdminLoginResponse{
			ID:                     employee.ID,
			Email:                  employee.Email,
			Role:                   employee.Role,
			PasswordChangeRequired: true,
		})
		return
	}

	access, err := h.tokens.MintAccess(service.AccessClaims{
		PrincipalID: employee.ID,
		Role:        employee.Role,
	}, h.cfg.JWT.AccessExpiry)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate tokens")
		return
	}
	refresh, err := h.tokens.MintRefresh(employee.ID, employee.TokenCount, h.cfg.JWT.RefreshExpiry)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate tokens")
		return
	}
	display, err := h.tokens.MintDisplay(service.DisplayClaims{
		PrincipalID: employee.ID,
		Role:        employee.Role,
	}, h.cfg.JWT.DisplayExpiry)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate tokens")
		return
	}

	setSessionCookie(w, names.Access, access, h.cfg.JWT.AccessExpiry, true)
	setSessionCookie(w, names.Refresh, refresh, h.cfg.JWT.RefreshExpiry, true)
	setSessionCookie(w, names.Display, display, h.cfg.JWT.DisplayExpiry, false)

	h.respondWithJSON(w, http.StatusOK, AdminLoginResponse{
		ID:    employee.ID,
		Email: employee.Email,
		Role:  employee.Role,
	})
}

// Logout sets the logout signal cookie. The session middleware clears the
// full cookie set, and the signal itself, on the next request it sees.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:  models.LogoutCookieName,
		Value: "true",
		Path:  "/",
	})

	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// InvalidateAll bumps the customer's tokenCount, revoking every refresh token
// issued so far on every device, and drops the current cookie set.
func (h *AuthHandlers) InvalidateAll(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.CustomerID(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if err := h.clients.IncrementTokenCount(r.Context(), id); err != nil {
		h.logger.WithError(err).Error("Failed to invalidate client sessions")
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}

	clearSessionCookies(w, models.CustomerCookies())

	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "All sessions invalidated",
	})
}

func (h *AuthHandlers) AdminInvalidateAll(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.StaffID(r.Context())
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if err := h.employees.IncrementTokenCount(r.Context(), id); err != nil {
		h.logger.WithError(err).Error("Failed to invalidate employee sessions")
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}

	clearSessionCookies(w, models.StaffCookies())

	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "All sessions invalidated",
	})
}

type CompleteProfileRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// CompleteProfile records the customer's phone number. For a bootstrap
// session this is the missing piece: the next request through the session
// middleware gets promoted to a full session automatically.
func (h *AuthHandlers) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.CustomerID(r.Context())
	if !ok {
		id, ok = middleware.CustomerPendingID(r.Context())
	}
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req CompleteProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	phoneNumber, err := messaging.NormalizePhone(req.PhoneNumber)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_PHONE", "Invalid phone number format")
		return
	}

	if err := h.clients.UpdatePhoneNumber(r.Context(), id, phoneNumber); err != nil {
		h.logger.WithError(err).Error("Failed to update client phone number")
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Profile updated",
	})
}

type SetPasswordRequest struct {
	Password string `json:"password"`
}

// SetPermanentPassword lets a bootstrapped employee replace their temporary
// password, completing their profile.
func (h *AuthHandlers) SetPermanentPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.StaffID(r.Context())
	if !ok {
		id, ok = middleware.StaffPendingID(r.Context())
	}
	if !ok {
		h.respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if len(req.Password) < 8 {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_REQUEST", "Password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "PASSWORD_UPDATE_FAILED", "Failed to update password")
		return
	}

	if err := h.employees.SetPermanentPassword(r.Context(), id, string(hash)); err != nil {
		h.logger.WithError(err).Error("Failed to set employee permanent password")
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated",
	})
}

// ConsentForm handles the guest link sent in appointment emails. A visitor
// with no session of any kind gets a limited guest token so the consent form
// pages can identify them.
func (h *AuthHandlers) ConsentForm(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	client, err := h.clients.GetByID(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up client for consent form")
		h.respondWithError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
		return
	}
	if client == nil {
		h.respondWithError(w, http.StatusNotFound, "NOT_FOUND", "Unknown client")
		return
	}

	names := models.CustomerCookies()
	hasSession := false
	for _, name := range []string{names.Access, names.Refresh, names.Display} {
		if _, err := r.Cookie(name); err == nil {
			hasSession = true
			break
		}
	}

	if !hasSession {
		guestToken, err := h.tokens.MintAccess(service.AccessClaims{
			PrincipalID: client.ID,
		}, 7*24*time.Hour)
		if err != nil {
			h.respondWithError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate tokens")
			return
		}
		setSessionCookie(w, "guest-consent-form-access-token", guestToken, 7*24*time.Hour, true)
	}

	http.Redirect(w, r, h.cfg.Web.ConsentFormRedirectURL, http.StatusFound)
}

func (h *AuthHandlers) setCustomerSession(w http.ResponseWriter, client *models.Client) error {
	access, err := h.tokens.MintAccess(service.AccessClaims{
		PrincipalID: client.ID,
		Email:       client.Email,
		PhoneNumber: client.PhoneNumber,
		FirstName:   client.FirstName,
		LastName:    client.LastName,
	}, h.cfg.JWT.AccessExpiry)
	if err != nil {
		h.logger.WithError(err).Error("Failed to mint access token")
		return err
	}
	refresh, err := h.tokens.MintRefresh(client.ID, client.TokenCount, h.cfg.JWT.RefreshExpiry)
	if err != nil {
		h.logger.WithError(err).Error("Failed to mint refresh token")
		return err
	}
	display, err := h.tokens.MintDisplay(service.DisplayClaims{
		PrincipalID: client.ID,
	}, h.cfg.JWT.DisplayExpiry)
	if err != nil {
		h.logger.WithError(err).Error("Failed to mint display token")
		return err
	}

	names := models.CustomerCookies()
	setSessionCookie(w, names.Access, access, h.cfg.JWT.AccessExpiry, true)
	setSessionCookie(w, names.Refresh, refresh, h.cfg.JWT.RefreshExpiry, true)
	setSessionCookie(w, names.Display, display, h.cfg.JWT.DisplayExpiry, false)
	return nil
}

func setSessionCookie(w http.ResponseWriter, name, value string, ttl time.Duration, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: httpOnly,
	})
}

func clearSessionCookies(w http.ResponseWriter, names models.CookieNames) {
	for _, name := range []string{names.Access, names.Refresh, names.Display, names.BootstrapAccess, names.BootstrapDisplay} {
		http.SetCookie(w, &http.Cookie{
			Name:    name,
			Value:   "",
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		})
	}
}

func (h *AuthHandlers) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *AuthHandlers) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
