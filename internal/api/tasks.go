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

type taskRoutes struct {
	ls service.LedgerServiceI
	ts service.TaskServiceI
}

func NewTaskRoutes(handler *gin.RouterGroup, ls service.LedgerServiceI, ts service.TaskServiceI, a *auth.TokenAuth, authz *middleware.Authorization) {
	r := &taskRoutes{ls: ls, ts: ts}
	h := handler.Group("/tasks")
	h.Use(a.TokenAuthMiddleware(), authz.UserOnly())
	{
		h.GET("", r.ListTasks)
		h.POST("/checkin", r.CheckIn)
		h.POST("/:task_id/complete", r.CompleteTask)
	}
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

func (r *taskRoutes) ListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, r.ts.ListTasks())
}

func (r *taskRoutes) CheckIn(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ok, err := r.ls.CheckIn(c.Request.Context(), user.ID)
	if err != nil {
		log.Error("failed to check in", zap.Error(err), zap.String("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check in"})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "already checked in today"})
		return
	}

	r.respondBalance(c, user.ID)
}

func (r *taskRoutes) CompleteTask(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	taskID := c.Param("task_id")
	task, ok, err := r.ts.CompleteTask(c.Request.Context(), user.ID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		case errors.Is(err, service.ErrTaskNotCompletable):
			c.JSON(http.StatusBadRequest, gin.H{"error": "task is rewarded through its own flow"})
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		default:
			log.Error("failed to complete task", zap.Error(err), zap.String("task_id", taskID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete task"})
		}
		return
	}
	if !ok {
		if task.Type == model.TaskDailyCheckIn {
			c.JSON(http.StatusConflict, gin.H{"error": "already checked in today"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "daily limit reached"})
		return
	}

	r.respondBalance(c, user.ID)
}

func (r *taskRoutes) respondBalance(c *gin.Context, userID string) {
	user, err := r.ls.Session(c.Request.Context(), userID)
	if err != nil {
		logger.Logger().Error("failed to reload session", zap.Error(err), zap.String("user_id", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Balance: user.Balance})
}
