package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"microearn/internal/model"
	"microearn/internal/repository"
	"microearn/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	WelcomeBonus  = 50
	CheckInReward = 10
	QuizReward    = 5

	WelcomeBonusDescription = "Welcome Bonus"
	CheckInDescription      = "Daily Check-in Reward"
	QuizDescription         = "AI Quiz Reward"
	RefundDescription       = "Refund: Payout Rejected"

	referralPrefix = "EARN"

	transactionIDPrefix = "tx_"
	withdrawalIDPrefix  = "wd_"
	refundIDPrefix      = "ref_"
)

type LedgerConfig struct {
	TotalUsers  int
	BasePayouts int64
	Location    *time.Location
}

// LedgerService owns balances, transactions and the withdrawal queue. Every
// call holds mu for its whole read-modify-write so mutations never interleave.
type LedgerService struct {
	repo   LedgerRepository
	events EventSink
	cfg    LedgerConfig

	now   func() time.Time
	intN  func(n int) int
	newID func() string

	mu sync.Mutex
}

func NewLedgerService(repo LedgerRepository, events EventSink, cfg LedgerConfig) *LedgerService {
	if events == nil {
		events = Sinks{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &LedgerService{
		repo:   repo,
		events: events,
		cfg:    cfg,
		now:    time.Now,
		intN:   rand.Intn,
		newID:  uuid.NewString,
	}
}

func (s *LedgerService) Login(ctx context.Context, phone, name string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	user := &model.User{
		ID:           phone,
		Name:         name,
		Phone:        phone,
		Balance:      WelcomeBonus,
		ReferralCode: s.referralCode(),
		JoinedDate:   now,
	}
	session := &model.Session{
		User: user,
		Transactions: []*model.Transaction{{
			ID:          transactionIDPrefix + s.newID(),
			Amount:      WelcomeBonus,
			Type:        model.Credit,
			Description: WelcomeBonusDescription,
			Date:        now,
			Status:      model.StatusSuccess,
		}},
	}

	if err := s.repo.Save(ctx, &repository.Changeset{Session: session}); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.publishBalance(user)
	return user, nil
}

func (s *LedgerService) Logout(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteSession(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// AddBalance is a silent no-op when userID has no session.
func (s *LedgerService) AddBalance(ctx context.Context, userID string, amount int64, description string) error {
	_, err := s.Credit(ctx, userID, amount, description)
	return err
}

// Credit is AddBalance that reports whether a session was there to credit.
func (s *LedgerService) Credit(ctx context.Context, userID string, amount int64, description string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	s.credit(session, transactionIDPrefix+s.newID(), amount, description)
	if err = s.repo.Save(ctx, &repository.Changeset{Session: session}); err != nil {
		return false, fmt.Errorf("failed to save session: %w", err)
	}

	s.publishBalance(session.User)
	return true, nil
}

// ClaimTaskReward credits task.Reward unless the user already claimed the task
// task.DailyLimit times today. It reports false when there is no session or
// the limit is reached.
func (s *LedgerService) ClaimTaskReward(ctx context.Context, userID string, task model.Task) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	user := session.User
	today := s.today()
	done := user.CompletionsOn(today, task.ID)
	if task.DailyLimit > 0 && done >= task.DailyLimit {
		return false, nil
	}

	if user.TaskDay != today {
		user.TaskDay = today
		user.TaskCompletions = make(map[string]int)
	}
	if user.TaskCompletions == nil {
		user.TaskCompletions = make(map[string]int)
	}
	user.TaskCompletions[task.ID] = done + 1
	s.credit(session, transactionIDPrefix+s.newID(), task.Reward, task.Title)

	if err = s.repo.Save(ctx, &repository.Changeset{Session: session}); err != nil {
		return false, fmt.Errorf("failed to save session: %w", err)
	}

	s.publishBalance(user)
	return true, nil
}

// Withdraw debits the balance right away and queues a pending request that
// shares its id with the DEBIT transaction. It reports false without touching
// any state when there is no session or the balance is too low.
func (s *LedgerService) Withdraw(ctx context.Context, userID string, amount int64, method model.WithdrawalMethod, details string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if session.User.Balance < amount {
		return false, nil
	}

	requests, err := s.repo.ListWithdrawals(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	now := s.now().UTC()
	id := withdrawalIDPrefix + s.newID()
	user := session.User

	user.Balance -= amount
	session.Transactions = prepend(session.Transactions, &model.Transaction{
		ID:          id,
		Amount:      amount,
		Type:        model.Debit,
		Description: fmt.Sprintf("Payout via %s", method),
		Date:        now,
		Status:      model.StatusPending,
	})

	request := &model.WithdrawalRequest{
		ID:        id,
		UserID:    user.ID,
		UserName:  user.Name,
		UserPhone: user.Phone,
		Amount:    amount,
		Method:    method,
		Details:   details,
		Status:    model.StatusPending,
		Date:      now,
	}
	requests = prepend(requests, request)

	err = s.repo.Save(ctx, &repository.Changeset{
		Session:     session,
		Withdrawals: requests,
	})
	if err != nil {
		return false, fmt.Errorf("failed to save withdrawal: %w", err)
	}

	s.publishBalance(user)
	s.publishWithdrawal(model.EventWithdrawalCreated, request)
	s.publishStats(ctx, requests)
	return true, nil
}

// CheckIn credits the daily reward at most once per calendar day in the
// configured location.
func (s *LedgerService) CheckIn(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	today := s.today()
	if session.User.CheckedInOn(today) {
		return false, nil
	}

	s.credit(session, transactionIDPrefix+s.newID(), CheckInReward, CheckInDescription)
	session.User.LastCheckInDate = today

	if err = s.repo.Save(ctx, &repository.Changeset{Session: session}); err != nil {
		return false, fmt.Errorf("failed to save session: %w", err)
	}

	s.publishBalance(session.User)
	return true, nil
}

// AdminActionWithdrawal moves a pending request to success or rejected. It
// reports false when no pending request has that id. The owner's session, if
// it still exists, gets the paired transaction updated and, on reject, a new
// refund CREDIT.
func (s *LedgerService) AdminActionWithdrawal(ctx context.Context, id string, action model.WithdrawalAction) (bool, error) {
	status, ok := action.ResultStatus()
	if !ok {
		return false, ErrInvalidAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requests, err := s.repo.ListWithdrawals(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	var request *model.WithdrawalRequest
	for _, r := range requests {
		if r.ID == id {
			request = r
			break
		}
	}
	if request == nil || request.Status != model.StatusPending {
		return false, nil
	}

	request.Status = status
	changes := &repository.Changeset{Withdrawals: requests}

	if action == model.ActionApprove {
		payouts, err := s.repo.GetPayouts(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to get payouts: %w", err)
		}
		payouts += request.Amount
		changes.Payouts = &payouts
	}

	session, err := s.loadSession(ctx, request.UserID)
	switch {
	case err == nil:
		for _, tx := range session.Transactions {
			if tx.ID == id {
				tx.Status = status
			}
		}
		if action == model.ActionReject {
			s.credit(session, refundIDPrefix+s.newID(), request.Amount, RefundDescription)
		}
		changes.Session = session
	case errors.Is(err, ErrSessionNotFound):
		// owner logged out, only the queue changes
	default:
		return false, err
	}

	if err = s.repo.Save(ctx, changes); err != nil {
		return false, fmt.Errorf("failed to save withdrawal decision: %w", err)
	}

	if changes.Session != nil {
		s.publishBalance(session.User)
	}
	s.publishWithdrawal(model.EventWithdrawalUpdated, request)
	s.publishStats(ctx, requests)
	return true, nil
}

func (s *LedgerService) Session(ctx context.Context, userID string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return session.User, nil
}

func (s *LedgerService) Transactions(ctx context.Context, userID string) ([]*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	return session.Transactions, nil
}

// WithdrawalRequests lists the queue newest first. An empty status returns
// every request.
func (s *LedgerService) WithdrawalRequests(ctx context.Context, status model.Status) ([]*model.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests, err := s.repo.ListWithdrawals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	if status == "" {
		return requests, nil
	}

	filtered := make([]*model.WithdrawalRequest, 0, len(requests))
	for _, r := range requests {
		if r.Status == status {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (s *LedgerService) Stats(ctx context.Context) (model.AdminStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests, err := s.repo.ListWithdrawals(ctx)
	if err != nil {
		return model.AdminStats{}, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return s.stats(ctx, requests)
}

func (s *LedgerService) CheckedInToday(user *model.User) bool {
	return user.CheckedInOn(s.today())
}

func (s *LedgerService) stats(ctx context.Context, requests []*model.WithdrawalRequest) (model.AdminStats, error) {
	payouts, err := s.repo.GetPayouts(ctx)
	if err != nil {
		return model.AdminStats{}, fmt.Errorf("failed to get payouts: %w", err)
	}

	pending := 0
	for _, r := range requests {
		if r.Status == model.StatusPending {
			pending++
		}
	}

	return model.AdminStats{
		TotalUsers:      s.cfg.TotalUsers,
		TotalPayouts:    s.cfg.BasePayouts + payouts,
		PendingRequests: pending,
	}, nil
}

func (s *LedgerService) loadSession(ctx context.Context, userID string) (*model.Session, error) {
	session, err := s.repo.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *LedgerService) credit(session *model.Session, id string, amount int64, description string) {
	session.User.Balance += amount
	session.Transactions = prepend(session.Transactions, &model.Transaction{
		ID:          id,
		Amount:      amount,
		Type:        model.Credit,
		Description: description,
		Date:        s.now().UTC(),
		Status:      model.StatusSuccess,
	})
}

func (s *LedgerService) referralCode() string {
	return referralPrefix + strconv.Itoa(1000+s.intN(9000))
}

func (s *LedgerService) today() string {
	return s.now().In(s.cfg.Location).Format(model.DateLayout)
}

func (s *LedgerService) publishBalance(user *model.User) {
	s.events.Publish(model.Event{
		Type:    model.EventBalanceUpdated,
		UserID:  user.ID,
		Payload: model.BalancePayload{UserID: user.ID, Balance: user.Balance},
	})
}

func (s *LedgerService) publishWithdrawal(t model.EventType, request *model.WithdrawalRequest) {
	s.events.Publish(model.Event{
		Type:    t,
		UserID:  request.UserID,
		Admin:   true,
		Payload: *request,
	})
}

func (s *LedgerService) publishStats(ctx context.Context, requests []*model.WithdrawalRequest) {
	stats, err := s.stats(ctx, requests)
	if err != nil {
		logger.Named("ledger").Warn("failed to compute stats, skipping stats event", zap.Error(err))
		return
	}
	s.events.Publish(model.Event{
		Type:    model.EventStatsUpdated,
		Admin:   true,
		Payload: stats,
	})
}

func prepend[T any](list []T, item T) []T {
	return append([]T{item}, list...)
}
