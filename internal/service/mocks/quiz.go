package mocks

import (
	"context"

	"microearn/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockQuestionGenerator struct {
	mock.Mock
}

func (m *MockQuestionGenerator) GenerateQuestion(ctx context.Context) model.QuizQuestion {
	args := m.Called(ctx)
	return args.Get(0).(model.QuizQuestion)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(subject, role string) (string, error) {
	args := m.Called(subject, role)
	return args.String(0), args.Error(1)
}
