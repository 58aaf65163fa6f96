package api

import (
	"errors"
	"net/http"

	"microearn/internal/middleware"
	"microearn/internal/service"
	"microearn/pkg/auth"
	"microearn/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type quizRoutes struct {
	qs service.QuizServiceI
}

func NewQuizRoutes(handler *gin.RouterGroup, qs service.QuizServiceI, a *auth.TokenAuth, authz *middleware.Authorization) {
	r := &quizRoutes{qs: qs}
	h := handler.Group("/quiz")
	h.Use(a.TokenAuthMiddleware(), authz.UserOnly())
	{
		h.GET("/question", r.GetQuestion)
		h.POST("/answer", r.Answer)
	}
}

// QuestionResponse leaves out the correct index; scoring happens server side.
type QuestionResponse struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type AnswerRequest struct {
	Index *int `json:"index" validate:"required,min=0,max=3"`
}

func (r *quizRoutes) GetQuestion(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	question, err := r.qs.NextQuestion(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		log.Error("failed to get quiz question", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get question"})
		return
	}

	c.JSON(http.StatusOK, QuestionResponse{
		Question: question.Question,
		Options:  question.Options,
	})
}

func (r *quizRoutes) Answer(c *gin.Context) {
	log := logger.Logger()

	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req AnswerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := r.qs.Answer(c.Request.Context(), user.ID, *req.Index)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveQuestion):
			c.JSON(http.StatusConflict, gin.H{"error": "no active question"})
		case errors.Is(err, service.ErrInvalidAnswer):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid answer index"})
		default:
			log.Error("failed to answer quiz", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer question"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
