package mocks

import (
	"context"

	"microearn/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Credit(ctx context.Context, userID string, amount int64, description string) (bool, error) {
	args := m.Called(ctx, userID, amount, description)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) ClaimTaskReward(ctx context.Context, userID string, task model.Task) (bool, error) {
	args := m.Called(ctx, userID, task)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) CheckIn(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) Session(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockSessionStarter struct {
	mock.Mock
}

func (m *MockSessionStarter) Login(ctx context.Context, phone, name string) (*model.User, error) {
	args := m.Called(ctx, phone, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockSessionStarter) Logout(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
