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

type adminRoutes struct {
	ls service.LedgerServiceI
}

func NewAdminRoutes(handler *gin.RouterGroup, ls service.LedgerServiceI, a *auth.TokenAuth, authz *middleware.Authorization) {
	r := &adminRoutes{ls: ls}
	h := handler.Group("/admin")
	h.Use(a.TokenAuthMiddleware(), authz.AdminOnly())
	{
		h.GET("/stats", r.GetStats)
		h.GET("/withdrawals", r.ListWithdrawals)
		h.POST("/withdrawals/:id/:action", r.ActionWithdrawal)
	}
}

func (r *adminRoutes) GetStats(c *gin.Context) {
	log := logger.Logger()

	stats, err := r.ls.Stats(c.Request.Context())
	if err != nil {
		log.Error("failed to get admin stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (r *adminRoutes) ListWithdrawals(c *gin.Context) {
	log := logger.Logger()

	status := model.Status(c.Query("status"))
	switch status {
	case "", model.StatusPending, model.StatusSuccess, model.StatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	requests, err := r.ls.WithdrawalRequests(c.Request.Context(), status)
	if err != nil {
		log.Error("failed to list withdrawals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list withdrawals"})
		return
	}

	c.JSON(http.StatusOK, requests)
}

func (r *adminRoutes) ActionWithdrawal(c *gin.Context) {
	log := logger.Logger()

	id := c.Param("id")
	action := model.WithdrawalAction(c.Param("action"))

	ok, err := r.ls.AdminActionWithdrawal(c.Request.Context(), id, action)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action must be approve or reject"})
			return
		}
		log.Error("failed to action withdrawal",
			zap.Error(err),
			zap.String("withdrawal_id", id),
			zap.String("action", string(action)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update withdrawal"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending withdrawal with that id"})
		return
	}

	log.Info("withdrawal actioned",
		zap.String("withdrawal_id", id),
		zap.String("action", string(action)))
	c.JSON(http.StatusOK, gin.H{})
}
