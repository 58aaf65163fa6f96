package api

import (
	"errors"
	"net/http"

	"microearn/internal/middleware"
	"microearn/internal/model"
	"microearn/internal/service"
	"microearn/pkg/auth"
	"microearn/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type authRoutes struct {
	as service.AuthServiceI
}

func NewAuthRoutes(handler *gin.RouterGroup, as service.AuthServiceI, a *auth.TokenAuth, authz *middleware.Authorization, limiter gin.HandlerFunc) {
	r := &authRoutes{as: as}
	h := handler.Group("/auth")
	{
		h.POST("/otp", limiter, r.RequestOTP)
		h.POST("/verify", limiter, r.VerifyOTP)
		h.POST("/admin", limiter, r.AdminLogin)
		h.POST("/logout", a.TokenAuthMiddleware(), authz.UserOnly(), r.Logout)
	}
}

type RequestOTPRequest struct {
	Phone string `json:"phone" validate:"required,len=10,numeric"`
	Name  string `json:"name" validate:"required,max=64"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,len=10,numeric"`
	Name  string `json:"name" validate:"required,max=64"`
	OTP   string `json:"otp" validate:"required,len=4,numeric"`
}

type VerifyOTPResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type AdminLoginRequest struct {
	Code string `json:"code" validate:"required"`
}

type UserResponse struct {
	*model.User
	HasCheckedInToday bool `json:"hasCheckedInToday"`
}

func (r *authRoutes) RequestOTP(c *gin.Context) {
	log := logger.Logger()

	var req RequestOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := r.as.RequestOTP(c.Request.Context(), req.Phone, req.Name); err != nil {
		log.Error("failed to request otp", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send otp"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "otp sent"})
}

func (r *authRoutes) VerifyOTP(c *gin.Context) {
	log := logger.Logger()

	var req VerifyOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, token, err := r.as.VerifyOTP(c.Request.Context(), req.Phone, req.Name, req.OTP)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOTP) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid otp"})
			return
		}
		log.Error("failed to verify otp", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, VerifyOTPResponse{
		Token: token,
		User:  UserResponse{User: user},
	})
}

func (r *authRoutes) AdminLogin(c *gin.Context) {
	log := logger.Logger()

	var req AdminLoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, err := r.as.AdminLogin(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAdminCode) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin code"})
			return
		}
		log.Error("failed to log in admin", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (r *authRoutes) Logout(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := r.as.Logout(c.Request.Context(), user.ID); err != nil {
		log.Error("failed to log out", zap.Error(err), zap.String("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log out"})
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
