package service

import (
	"context"
	"fmt"
	"sync"

	"microearn/internal/model"
)

// QuizService hands out one outstanding question per user. Asking for a new
// question replaces the previous one, so a stale answer is never rewarded.
type QuizService struct {
	generator QuestionGenerator
	ledger    Ledger

	mu     sync.Mutex
	active map[string]model.QuizQuestion
}

func NewQuizService(generator QuestionGenerator, ledger Ledger) *QuizService {
	return &QuizService{
		generator: generator,
		ledger:    ledger,
		active:    make(map[string]model.QuizQuestion),
	}
}

func (s *QuizService) NextQuestion(ctx context.Context, userID string) (model.QuizQuestion, error) {
	if _, err := s.ledger.Session(ctx, userID); err != nil {
		return model.QuizQuestion{}, err
	}

	question := s.generator.GenerateQuestion(ctx)

	s.mu.Lock()
	s.active[userID] = question
	s.mu.Unlock()

	return question, nil
}

// Answer consumes the outstanding question and credits QuizReward when index
// is the correct option. The result's Reward is zero unless the credit
// actually landed.
func (s *QuizService) Answer(ctx context.Context, userID string, index int) (model.QuizResult, error) {
	s.mu.Lock()
	question, ok := s.active[userID]
	if !ok {
		s.mu.Unlock()
		return model.QuizResult{}, ErrNoActiveQuestion
	}
	if index < 0 || index >= len(question.Options) {
		s.mu.Unlock()
		return model.QuizResult{}, ErrInvalidAnswer
	}
	delete(s.active, userID)
	s.mu.Unlock()

	result := model.QuizResult{
		Correct:      index == question.CorrectIndex,
		CorrectIndex: question.CorrectIndex,
	}
	if !result.Correct {
		return result, nil
	}

	credited, err := s.ledger.Credit(ctx, userID, QuizReward, QuizDescription)
	if err != nil {
		return model.QuizResult{}, fmt.Errorf("failed to credit quiz reward: %w", err)
	}
	if credited {
		result.Reward = QuizReward
	}
	return result, nil
}
