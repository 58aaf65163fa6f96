package api

import (
	"fmt"
	"net/http"

	"microearn/internal/middleware"
	"microearn/internal/model"
	"microearn/internal/service"
	"microearn/pkg/auth"
	"microearn/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const DefaultMinWithdrawal = 50

type walletRoutes struct {
	ls            service.LedgerServiceI
	minWithdrawal int64
}

func NewWalletRoutes(handler *gin.RouterGroup, ls service.LedgerServiceI, a *auth.TokenAuth, authz *middleware.Authorization, minWithdrawal int64) {
	if minWithdrawal <= 0 {
		minWithdrawal = DefaultMinWithdrawal
	}
	r := &walletRoutes{ls: ls, minWithdrawal: minWithdrawal}

	handler.GET("/me", a.TokenAuthMiddleware(), authz.UserOnly(), r.GetMe)

	h := handler.Group("/wallet")
	h.Use(a.TokenAuthMiddleware(), authz.UserOnly())
	{
		h.GET("/transactions", r.GetTransactions)
		h.POST("/withdraw", r.Withdraw)
	}
}

type WithdrawRequest struct {
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	Method  string `json:"method" validate:"required,oneof=UPI BANK"`
	Details string `json:"details" validate:"required,max=128"`
}

func (r *walletRoutes) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		User:              user,
		HasCheckedInToday: r.ls.CheckedInToday(user),
	})
}

func (r *walletRoutes) GetTransactions(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	transactions, err := r.ls.Transactions(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("failed to get transactions", zap.Error(err), zap.String("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get transactions"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

func (r *walletRoutes) Withdraw(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req WithdrawRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if req.Amount < r.minWithdrawal {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("minimum withdrawal is ₹%d", r.minWithdrawal)})
		return
	}

	ok, err := r.ls.Withdraw(c.Request.Context(), user.ID, req.Amount, model.WithdrawalMethod(req.Method), req.Details)
	if err != nil {
		log.Error("failed to withdraw", zap.Error(err), zap.String("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit withdrawal"})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		return
	}

	updated, err := r.ls.Session(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("failed to reload session", zap.Error(err), zap.String("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, BalanceResponse{Balance: updated.Balance})
}
