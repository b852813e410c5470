package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"screenpoints/internal/service"
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

// AuthHandler handles parent registration, login and OAuth sign-in
type AuthHandler struct {
	authService    *service.AuthService
	oauthProviders map[string]OAuthProvider
	appBaseURL     string
	logger         *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, providers map[string]OAuthProvider, appBaseURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		oauthProviders: providers,
		appBaseURL:     appBaseURL,
		logger:         logger,
	}
}

// GoogleProvider builds the Google OAuth provider configuration
func GoogleProvider(clientID, clientSecret string) OAuthProvider {
	return OAuthProvider{
		Name: "google",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// AppleProvider builds the Apple OAuth provider configuration
func AppleProvider(clientID, clientSecret string) OAuthProvider {
	return OAuthProvider{
		Name: "apple",
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"name", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://appleid.apple.com/auth/authorize",
				TokenURL: "https://appleid.apple.com/auth/token",
			},
		},
		AuthParams: map[string]string{"response_mode": "query"},
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	parent, err := h.authService.Register(req.Email, req.Password, req.Name)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	token, _, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{Token: token, Parent: toParentResponse(parent)})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	token, parent, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Token: token, Parent: toParentResponse(parent)})
}

// StartOAuth handles GET /api/auth/oauth/{provider} by redirecting to the
// provider's consent page
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || provider.Config == nil || provider.Config.ClientID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "oauth provider not configured"})
		return
	}

	state := uuid.New().String()
	nonce := uuid.New().String()
	h.setTempCookie(w, "oauth_state", state, 10*time.Minute)
	h.setTempCookie(w, "oauth_nonce", nonce, 10*time.Minute)

	config := *provider.Config
	config.RedirectURL = h.callbackURL(providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}
	if providerKey == "apple" {
		options = append(options, oauth2.SetAuthURLParam("nonce", nonce))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback handles GET /api/auth/oauth/{provider}/callback. On success
// it returns the API token as JSON for the host app to capture.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || provider.Config == nil || provider.Config.ClientID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "oauth provider not configured"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "missing authorization code"})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid oauth state"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.callbackURL(providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("oauth code exchange failed", zap.String("provider", providerKey), zap.Error(err))
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to exchange authorization code"})
		return
	}

	nonce := ""
	if cookie, err := r.Cookie("oauth_nonce"); err == nil {
		nonce = cookie.Value
	}
	h.clearTempCookie(w, "oauth_state")
	h.clearTempCookie(w, "oauth_nonce")

	userInfo, err := h.fetchOAuthUserInfo(ctx, providerKey, provider, token, nonce)
	if err != nil {
		h.logger.Warn("oauth user info failed", zap.String("provider", providerKey), zap.Error(err))
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to verify identity"})
		return
	}

	apiToken, parent, err := h.authService.OAuthLogin(providerKey, userInfo.Subject, userInfo.Email, userInfo.Name)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, authResponse{Token: apiToken, Parent: toParentResponse(parent)})
}

func (h *AuthHandler) callbackURL(providerKey string) string {
	return fmt.Sprintf("%s/api/auth/oauth/%s/callback", strings.TrimRight(h.appBaseURL, "/"), providerKey)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
