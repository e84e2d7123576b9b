package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/liquidinsider/storefront-api/internal/auth"
	"github.com/liquidinsider/storefront-api/internal/models"
)

//
// --- Auth Handlers ---
//

// RegisterInput is the JSON body for POST /api/auth/register. Kept
// separate from models.User so callers cannot set id or role.
type RegisterInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
}

// Register is the handler for POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject duplicate emails up front for a clean error message.
	var exists int
	err := h.DB.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", input.Email).Scan(&exists)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check email"})
		return
	}
	if exists > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	verificationToken := uuid.New().String()
	now := time.Now()

	result, err := h.DB.Exec(`
		INSERT INTO users (email, password_hash, first_name, last_name, role, is_verified, verification_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Email, password.Hash, input.FirstName, input.LastName, models.RoleUser, false, verificationToken, now, now)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new user ID"})
		return
	}

	// Fire-and-forget; a mail failure never fails the registration.
	h.Mailer.SendVerificationEmail(input.Email, verificationToken)

	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user": gin.H{
			"id":        userID,
			"email":     input.Email,
			"firstName": input.FirstName,
			"lastName":  input.LastName,
			"role":      models.RoleUser,
		},
	})
}

// LoginInput is the JSON body for POST /api/auth/login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.DB.QueryRow(`
		SELECT id, email, password_hash, first_name, last_name, role, is_verified
		FROM users WHERE email = ?`, input.Email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Role, &user.IsVerified)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// GetProfile is the handler for GET /api/auth/me
func (h *Handlers) GetProfile(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var user models.User
	err := h.DB.QueryRow(`
		SELECT id, email, first_name, last_name, role, is_verified, created_at, updated_at
		FROM users WHERE id = ?`, userID).
		Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &user.IsVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfileInput is the JSON body for PUT /api/auth/me
type UpdateProfileInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// UpdateProfile is the handler for PUT /api/auth/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.FirstName == nil && input.LastName == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	query := "UPDATE users SET updated_at = ?"
	args := []interface{}{time.Now()}
	if input.FirstName != nil {
		query += ", first_name = ?"
		args = append(args, *input.FirstName)
	}
	if input.LastName != nil {
		query += ", last_name = ?"
		args = append(args, *input.LastName)
	}
	query += " WHERE id = ?"
	args = append(args, userID)

	if _, err := h.DB.Exec(query, args...); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	h.GetProfile(c)
}

// VerifyEmailInput is the JSON body for POST /api/auth/verify-email
type VerifyEmailInput struct {
	Token string `json:"token" binding:"required"`
}

// VerifyEmail is the handler for POST /api/auth/verify-email
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var input VerifyEmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE users SET is_verified = TRUE, verification_token = NULL, updated_at = ?
		WHERE verification_token = ?`, time.Now(), input.Token)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify email"})
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// ForgotPasswordInput is the JSON body for POST /api/auth/forgot-password
type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword is the handler for POST /api/auth/forgot-password.
// Always answers 200 so the endpoint cannot be used to probe for
// registered addresses.
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var input ForgotPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resetToken := uuid.New().String()
	expiry := time.Now().Add(time.Hour)

	result, err := h.DB.Exec(`
		UPDATE users SET reset_token = ?, reset_token_expiry = ?, updated_at = ?
		WHERE email = ?`, resetToken, expiry, time.Now(), input.Email)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		return
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		h.Mailer.SendPasswordResetEmail(input.Email, resetToken)
	}

	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a reset link has been sent"})
}

// ResetPasswordInput is the JSON body for POST /api/auth/reset-password
type ResetPasswordInput struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ResetPassword is the handler for POST /api/auth/reset-password
func (h *Handlers) ResetPassword(c *gin.Context) {
	var input ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL, updated_at = ?
		WHERE reset_token = ? AND reset_token_expiry > ?`,
		password.Hash, time.Now(), input.Token, time.Now())
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
