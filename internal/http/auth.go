package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"healthbot/internal/auth"
	"healthbot/internal/db"
	"healthbot/pkg"
)

type registerRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"full_name,omitempty"`
	Age      *int    `json:"age,omitempty" binding:"omitempty,min=0,max=150"`
	Gender   *string `json:"gender,omitempty"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	User        *pkg.User `json:"user"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("hash password failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not create user")
		return
	}
	user, err := s.store.CreateUser(c.Request.Context(), &pkg.User{
		Email:          req.Email,
		HashedPassword: hashed,
		FullName:       req.FullName,
		Age:            req.Age,
		Gender:         req.Gender,
	})
	if errors.Is(err, db.ErrDuplicateEmail) {
		fail(c, http.StatusBadRequest, "Email already registered")
		return
	}
	if err != nil {
		s.log.Error("create user failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// token implements the password grant: form-encoded username/password in,
// bearer token out.
func (s *Server) token(c *gin.Context) {
	email := c.PostForm("username")
	password := c.PostForm("password")
	if email == "" || password == "" {
		fail(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.store.GetUserByEmail(c.Request.Context(), email)
	if err != nil || !auth.VerifyPassword(password, user.HashedPassword) {
		c.Header("WWW-Authenticate", "Bearer")
		fail(c, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !user.IsActive {
		fail(c, http.StatusBadRequest, "Inactive user")
		return
	}

	token, err := s.tokens.IssueToken(user.Email)
	if err != nil {
		s.log.Error("issue token failed", "error", err)
		fail(c, http.StatusInternalServerError, "Could not issue token")
		return
	}
	if err := s.store.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
		s.log.Warn("update last login failed", "user_id", user.ID, "error", err)
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.Expiry().Seconds()),
		User:        user,
	})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, mustUser(c))
}
