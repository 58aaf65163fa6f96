package service

import (
	"context"
	"errors"

	"microearn/internal/model"
	"microearn/internal/repository"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidAction      = errors.New("invalid withdrawal action")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrInvalidAdminCode   = errors.New("invalid admin code")
	ErrNoActiveQuestion   = errors.New("no active quiz question")
	ErrInvalidAnswer      = errors.New("answer index out of range")
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskNotCompletable = errors.New("task is rewarded through its own flow")
)

type LedgerServiceI interface {
	Login(ctx context.Context, phone, name string) (*model.User, error)
	Logout(ctx context.Context, userID string) error
	AddBalance(ctx context.Context, userID string, amount int64, description string) error
	Credit(ctx context.Context, userID string, amount int64, description string) (bool, error)
	ClaimTaskReward(ctx context.Context, userID string, task model.Task) (bool, error)
	Withdraw(ctx context.Context, userID string, amount int64, method model.WithdrawalMethod, details string) (bool, error)
	CheckIn(ctx context.Context, userID string) (bool, error)
	AdminActionWithdrawal(ctx context.Context, id string, action model.WithdrawalAction) (bool, error)

	Session(ctx context.Context, userID string) (*model.User, error)
	Transactions(ctx context.Context, userID string) ([]*model.Transaction, error)
	WithdrawalRequests(ctx context.Context, status model.Status) ([]*model.WithdrawalRequest, error)
	Stats(ctx context.Context) (model.AdminStats, error)
	CheckedInToday(user *model.User) bool
}

// Ledger is the part of the ledger that reward flows build on.
type Ledger interface {
	Credit(ctx context.Context, userID string, amount int64, description string) (bool, error)
	ClaimTaskReward(ctx context.Context, userID string, task model.Task) (bool, error)
	CheckIn(ctx context.Context, userID string) (bool, error)
	Session(ctx context.Context, userID string) (*model.User, error)
}

type SessionRepository interface {
	GetSession(ctx context.Context, userID string) (*model.Session, error)
	DeleteSession(ctx context.Context, userID string) error
}

type WithdrawalRepository interface {
	ListWithdrawals(ctx context.Context) ([]*model.WithdrawalRequest, error)
	GetPayouts(ctx context.Context) (int64, error)
}

type LedgerRepository interface {
	SessionRepository
	WithdrawalRepository
	Save(ctx context.Context, changes *repository.Changeset) error
}

type QuestionGenerator interface {
	GenerateQuestion(ctx context.Context) model.QuizQuestion
}

type AuthServiceI interface {
	RequestOTP(ctx context.Context, phone, name string) error
	VerifyOTP(ctx context.Context, phone, name, code string) (*model.User, string, error)
	AdminLogin(ctx context.Context, code string) (string, error)
	Logout(ctx context.Context, userID string) error
}

type QuizServiceI interface {
	NextQuestion(ctx context.Context, userID string) (model.QuizQuestion, error)
	Answer(ctx context.Context, userID string, index int) (model.QuizResult, error)
}

type TaskServiceI interface {
	ListTasks() []model.Task
	CompleteTask(ctx context.Context, userID, taskID string) (*model.Task, bool, error)
}
