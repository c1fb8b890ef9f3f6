package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auth "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/implementation/auth"
	"gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.ApiService/middleware"
	logger "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Logger"
	bsnmodels "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Models"
	interfaces "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Repository/Interfaces"
)

// UserController handles login, logout, and account management
type UserController struct {
	userRepo       interfaces.UserRepository
	authService    *auth.AuthService
	logger         *logger.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewUserController creates a new user controller
func NewUserController(userRepo interfaces.UserRepository, authService *auth.AuthService, log *logger.Logger, authMiddleware *middleware.AuthMiddleware) *UserController {
	return &UserController{
		userRepo:       userRepo,
		authService:    authService,
		logger:         log.WithComponent("user_controller"),
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers the user routes with Gin
func (c *UserController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/login", c.Login)
		api.POST("/logout", c.authMiddleware.Authenticate(), c.Logout)

		users := api.Group("/users", c.authMiddleware.Authenticate(), c.authMiddleware.RequireAdmin())
		{
			users.GET("", c.ListUsers)
			users.POST("", c.CreateUser)
			users.GET("/:user_ID", c.GetUser)
			users.PUT("/:user_ID", c.UpdateUser)
			users.DELETE("/:user_ID", c.DeleteUser)
		}
	}
}

// Login authenticates a user and returns an access token
func (c *UserController) Login(ctx *gin.Context) {
	var req auth.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := c.authService.Login(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.logger.Logger.Info().Str("username", resp.Username).Msg("user logged in")
	ctx.JSON(http.StatusOK, resp)
}

// Logout revokes the current session's token
func (c *UserController) Logout(ctx *gin.Context) {
	claims, err := middleware.GetClaimsFromGinContext(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	c.authService.Logout(claims.TokenID, expiresAt)

	ctx.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ListUsers returns all accounts
func (c *UserController) ListUsers(ctx *gin.Context) {
	users, err := c.userRepo.List(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser returns a single account
func (c *UserController) GetUser(ctx *gin.Context) {
	user, err := c.userRepo.GetByUserID(ctx.Request.Context(), ctx.Param("user_ID"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	ctx.JSON(http.StatusOK, user)
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	EmailID  string `json:"emailId"`
	PhoneNo  string `json:"phoneNo"`
}

// CreateUser creates a new account
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Role == "" {
		req.Role = "user"
	}

	user, err := c.authService.CreateUser(ctx.Request.Context(), bsnmodels.User{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		EmailID:  req.EmailID,
		PhoneNo:  req.PhoneNo,
	})
	if err != nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, user)
}

type UpdateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	EmailID  string `json:"emailId"`
	PhoneNo  string `json:"phoneNo"`
}

// UpdateUser updates an account
func (c *UserController) UpdateUser(ctx *gin.Context) {
	userID := ctx.Param("user_ID")

	existing, err := c.userRepo.GetByUserID(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var req UpdateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Username != "" {
		existing.Username = req.Username
	}
	if req.Role != "" {
		existing.Role = req.Role
	}
	if req.EmailID != "" {
		existing.EmailID = req.EmailID
	}
	if req.PhoneNo != "" {
		existing.PhoneNo = req.PhoneNo
	}
	existing.Password = req.Password // re-hashed by the service when non-empty

	updated, err := c.authService.UpdateUser(ctx.Request.Context(), userID, *existing)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !updated {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"updated": true, "user_ID": userID})
}

// DeleteUser removes an account
func (c *UserController) DeleteUser(ctx *gin.Context) {
	deleted, err := c.userRepo.Delete(ctx.Request.Context(), ctx.Param("user_ID"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !deleted {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"deleted": true})
}
