package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"sitelens/api/middleware"
	"sitelens/api/models"
	"sitelens/api/store"
	"sitelens/api/utils"
)

type UserRepository interface {
	CreateUser(ctx context.Context, email string, hashedPassword []byte) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type AuthHandlers struct {
	Users      UserRepository
	JWTManager *utils.JWTManager
	// SecureCookie marks the auth cookie Secure; off for local development.
	SecureCookie bool
}

func NewAuthHandlers(users UserRepository, jwtManager *utils.JWTManager, secureCookie bool) *AuthHandlers {
	return &AuthHandlers{Users: users, JWTManager: jwtManager, SecureCookie: secureCookie}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, models.ErrStore("Failed to process password", err))
		return
	}

	user, err := h.Users.CreateUser(c.Request.Context(), req.Email, hashedPassword)
	if errors.Is(err, store.ErrUserExists) {
		respondError(c, models.ErrConflict("User with this email already exists"))
		return
	}
	if err != nil {
		respondError(c, models.ErrStore("Failed to register user", err))
		return
	}

	log.Ctx(c.Request.Context()).Info().Int("user_id", user.ID).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_email": user.Email})
}

// Login checks credentials and issues a JWT, both as an HttpOnly cookie for
// the dashboard and in the body for API clients.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.Users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		respondError(c, models.ErrStore("Failed to log in", err))
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)) != nil {
		respondError(c, models.ErrUnauthorized("Invalid credentials"))
		return
	}

	tokenString, err := h.JWTManager.GenerateJWT(user)
	if err != nil {
		respondError(c, models.ErrStore("Failed to generate authentication token", err))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		middleware.AuthCookieName,
		tokenString,
		int(h.JWTManager.TTL().Seconds()),
		"/",
		"",
		h.SecureCookie,
		true,
	)

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user_email": user.Email,
		"token":      tokenString,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandlers) Profile(c *gin.Context) {
	user, err := h.Users.GetUserByID(c.Request.Context(), c.GetInt(middleware.ContextUserID))
	if errors.Is(err, store.ErrUserNotFound) {
		respondError(c, models.ErrUnauthorized("Unauthorized"))
		return
	}
	if err != nil {
		respondError(c, models.ErrStore("Failed to load profile", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.ID,
		"user_email": user.Email,
		"created_at": user.CreatedAt,
	})
}
