package handler

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"cgt-timeline-backend/internal/auth"
	"cgt-timeline-backend/internal/config"
)

// AuthHandler adviser authentication handler
type AuthHandler struct {
	jwtManager *auth.JWTManager
	cfg        config.AuthConfig
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(jwtManager *auth.JWTManager, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager, cfg: cfg}
}

// LoginRequest adviser login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse authentication response
type AuthResponse struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login authenticates the adviser against the configured credentials.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email and password are required",
		})
	}

	if h.cfg.AdviserEmail == "" || h.cfg.AdviserPassword == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "adviser login is not configured",
		})
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(h.cfg.AdviserEmail)) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.AdviserPassword)) == 1
	if !emailOK || !passwordOK {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid credentials",
		})
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(req.Email, auth.RoleAdviser)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	refreshToken, err := h.jwtManager.GenerateRefreshToken(req.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate refresh token",
		})
	}

	h.setCookie(c, "access_token", accessToken, int(h.cfg.AccessTokenExpiry.Seconds()))
	h.setCookie(c, "refresh_token", refreshToken, int(h.cfg.RefreshTokenExpiry.Seconds()))

	return c.JSON(AuthResponse{
		Email:       req.Email,
		Role:        auth.RoleAdviser,
		AccessToken: accessToken,
		ExpiresIn:   int64(h.cfg.AccessTokenExpiry.Seconds()),
	})
}

// Refresh issues a new access token from the refresh cookie.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing refresh token",
		})
	}

	email, err := h.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid refresh token",
		})
	}

	accessToken, err := h.jwtManager.GenerateAccessToken(email, auth.RoleAdviser)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	h.setCookie(c, "access_token", accessToken, int(h.cfg.AccessTokenExpiry.Seconds()))

	return c.JSON(AuthResponse{
		Email:       email,
		Role:        auth.RoleAdviser,
		AccessToken: accessToken,
		ExpiresIn:   int64(h.cfg.AccessTokenExpiry.Seconds()),
	})
}

// Logout clears the auth cookies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.setCookie(c, "access_token", "", -1)
	h.setCookie(c, "refresh_token", "", -1)
	return c.JSON(fiber.Map{"success": true})
}

// Me returns the authenticated adviser.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*auth.Claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}
	return c.JSON(fiber.Map{
		"email": claims.Email,
		"role":  claims.Role,
	})
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.cfg.SecureCookie,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
