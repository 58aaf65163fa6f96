package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"microearn/internal/model"
	"microearn/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recordingSink) Publish(event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recordingSink) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLedger(t *testing.T) (*LedgerService, *recordingSink, *testClock) {
	t.Helper()

	sink := &recordingSink{}
	clock := &testClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}

	s := NewLedgerService(repository.NewLedger(repository.NewMemoryStore()), sink, LedgerConfig{
		TotalUsers:  1250,
		BasePayouts: 45000,
	})
	s.now = clock.Now
	s.intN = func(int) int { return 234 }

	var (
		mu  sync.Mutex
		seq int
	)
	s.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return strconv.Itoa(seq)
	}

	return s, sink, clock
}

func TestLedgerService_Login(t *testing.T) {
	s, sink, _ := newTestLedger(t)
	ctx := context.Background()

	user, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)

	assert.Equal(t, "9876543210", user.ID)
	assert.Equal(t, "Asha", user.Name)
	assert.Equal(t, int64(WelcomeBonus), user.Balance)
	assert.Equal(t, "EARN1234", user.ReferralCode)
	assert.Empty(t, user.LastCheckInDate)

	txs, err := s.Transactions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, model.Credit, txs[0].Type)
	assert.Equal(t, int64(50), txs[0].Amount)
	assert.Equal(t, WelcomeBonusDescription, txs[0].Description)
	assert.Equal(t, model.StatusSuccess, txs[0].Status)
	assert.True(t, strings.HasPrefix(txs[0].ID, "tx_"))

	assert.Equal(t, []model.EventType{model.EventBalanceUpdated}, sink.types())
}

func TestLedgerService_LoginReplacesSession(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	require.NoError(t, s.AddBalance(ctx, "9876543210", 100, "Quick Survey"))

	user, err := s.Login(ctx, "9876543210", "Asha K")
	require.NoError(t, err)
	assert.Equal(t, int64(50), user.Balance)

	txs, err := s.Transactions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLedgerService_Logout(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	require.NoError(t, s.Logout(ctx, "9876543210"))

	_, err = s.Session(ctx, "9876543210")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// logging out twice is harmless
	assert.NoError(t, s.Logout(ctx, "9876543210"))
}

func TestLedgerService_AddBalance(t *testing.T) {
	tests := []struct {
		name          string
		login         bool
		amount        int64
		expectBalance int64
	}{
		{name: "credits survey reward", login: true, amount: 15, expectBalance: 65},
		{name: "credits zero", login: true, amount: 0, expectBalance: 50},
		{name: "no session is a no-op", login: false, amount: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sink, _ := newTestLedger(t)
			ctx := context.Background()

			if tt.login {
				_, err := s.Login(ctx, "9876543210", "Asha")
				require.NoError(t, err)
				sink.reset()
			}

			err := s.AddBalance(ctx, "9876543210", tt.amount, "Quick Survey")
			require.NoError(t, err)

			if !tt.login {
				_, err = s.Session(ctx, "9876543210")
				assert.ErrorIs(t, err, ErrSessionNotFound)
				assert.Empty(t, sink.types())
				return
			}

			user, err := s.Session(ctx, "9876543210")
			require.NoError(t, err)
			assert.Equal(t, tt.expectBalance, user.Balance)

			txs, err := s.Transactions(ctx, "9876543210")
			require.NoError(t, err)
			require.Len(t, txs, 2)
			assert.Equal(t, "Quick Survey", txs[0].Description)
			assert.Equal(t, tt.amount, txs[0].Amount)
			assert.Equal(t, model.Credit, txs[0].Type)
		})
	}
}

func TestLedgerService_Withdraw(t *testing.T) {
	tests := []struct {
		name          string
		login         bool
		amount        int64
		expectOK      bool
		expectBalance int64
	}{
		{name: "partial balance", login: true, amount: 30, expectOK: true, expectBalance: 20},
		{name: "entire balance", login: true, amount: 50, expectOK: true, expectBalance: 0},
		{name: "insufficient balance", login: true, amount: 51, expectOK: false, expectBalance: 50},
		{name: "no session", login: false, amount: 10, expectOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestLedger(t)
			ctx := context.Background()

			if tt.login {
				_, err := s.Login(ctx, "9876543210", "Asha")
				require.NoError(t, err)
			}

			ok, err := s.Withdraw(ctx, "9876543210", tt.amount, model.MethodUPI, "a@bank")
			require.NoError(t, err)
			assert.Equal(t, tt.expectOK, ok)

			requests, err := s.WithdrawalRequests(ctx, "")
			require.NoError(t, err)

			if !tt.expectOK {
				assert.Empty(t, requests)
				if tt.login {
					user, err := s.Session(ctx, "9876543210")
					require.NoError(t, err)
					assert.Equal(t, tt.expectBalance, user.Balance)
				}
				return
			}

			user, err := s.Session(ctx, "9876543210")
			require.NoError(t, err)
			assert.Equal(t, tt.expectBalance, user.Balance)

			require.Len(t, requests, 1)
			req := requests[0]
			assert.Equal(t, model.StatusPending, req.Status)
			assert.Equal(t, tt.amount, req.Amount)
			assert.Equal(t, model.MethodUPI, req.Method)
			assert.Equal(t, "a@bank", req.Details)
			assert.Equal(t, "Asha", req.UserName)
			assert.Equal(t, "9876543210", req.UserPhone)
			assert.True(t, strings.HasPrefix(req.ID, "wd_"))

			txs, err := s.Transactions(ctx, "9876543210")
			require.NoError(t, err)
			require.Len(t, txs, 2)
			assert.Equal(t, req.ID, txs[0].ID)
			assert.Equal(t, model.Debit, txs[0].Type)
			assert.Equal(t, model.StatusPending, txs[0].Status)
			assert.Equal(t, "Payout via UPI", txs[0].Description)
		})
	}
}

func TestLedgerService_WithdrawEmitsEvents(t *testing.T) {
	s, sink, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	sink.reset()

	ok, err := s.Withdraw(ctx, "9876543210", 30, model.MethodBank, "0011223344")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []model.EventType{
		model.EventBalanceUpdated,
		model.EventWithdrawalCreated,
		model.EventStatsUpdated,
	}, sink.types())

	stats := sink.events[2].Payload.(model.AdminStats)
	assert.Equal(t, 1, stats.PendingRequests)
	assert.True(t, sink.events[1].Admin)
}

func TestLedgerService_WithdrawSkipsStatsOnCorruptPayouts(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.SetMany(ctx, map[string][]byte{
		"microearn_payouts": []byte("not-a-number"),
	}))

	sink := &recordingSink{}
	s := NewLedgerService(repository.NewLedger(store), sink, LedgerConfig{TotalUsers: 1250})

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	sink.reset()

	ok, err := s.Withdraw(ctx, "9876543210", 30, model.MethodUPI, "a@bank")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []model.EventType{
		model.EventBalanceUpdated,
		model.EventWithdrawalCreated,
	}, sink.types())

	_, err = s.Stats(ctx)
	assert.ErrorContains(t, err, "failed to parse payouts")
}

func TestLedgerService_WithdrawThenReject(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	user, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	assert.Equal(t, int64(50), user.Balance)

	ok, err := s.Withdraw(ctx, "9876543210", 30, model.MethodUPI, "a@bank")
	require.NoError(t, err)
	require.True(t, ok)

	user, err = s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(20), user.Balance)

	requests, err := s.WithdrawalRequests(ctx, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, requests, 1)

	ok, err = s.AdminActionWithdrawal(ctx, requests[0].ID, model.ActionReject)
	require.NoError(t, err)
	require.True(t, ok)

	user, err = s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(50), user.Balance)

	txs, err := s.Transactions(ctx, "9876543210")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, RefundDescription, txs[0].Description)
	assert.Equal(t, model.Credit, txs[0].Type)
	assert.Equal(t, int64(30), txs[0].Amount)
	assert.True(t, strings.HasPrefix(txs[0].ID, "ref_"))
	assert.Equal(t, requests[0].ID, txs[1].ID)
	assert.Equal(t, model.StatusRejected, txs[1].Status)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.AdminStats{TotalUsers: 1250, TotalPayouts: 45000, PendingRequests: 0}, stats)
}

func TestLedgerService_Approve(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	ok, err := s.Withdraw(ctx, "9876543210", 30, model.MethodUPI, "a@bank")
	require.NoError(t, err)
	require.True(t, ok)

	requests, err := s.WithdrawalRequests(ctx, "")
	require.NoError(t, err)
	id := requests[0].ID

	ok, err = s.AdminActionWithdrawal(ctx, id, model.ActionApprove)
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(45030), stats.TotalPayouts)
	assert.Equal(t, 0, stats.PendingRequests)

	user, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(20), user.Balance)

	txs, err := s.Transactions(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, txs[0].Status)

	// a decided request cannot be decided again
	ok, err = s.AdminActionWithdrawal(ctx, id, model.ActionApprove)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.AdminActionWithdrawal(ctx, id, model.ActionReject)
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(45030), stats.TotalPayouts)

	user, err = s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(20), user.Balance)
}

func TestLedgerService_AdminActionWithdrawal_Invalid(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	ok, err := s.AdminActionWithdrawal(ctx, "wd_missing", model.ActionApprove)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.AdminActionWithdrawal(ctx, "wd_missing", model.WithdrawalAction("cancel"))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestLedgerService_RejectAfterOwnerLogout(t *testing.T) {
	s, sink, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	ok, err := s.Withdraw(ctx, "9876543210", 30, model.MethodUPI, "a@bank")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Logout(ctx, "9876543210"))

	requests, err := s.WithdrawalRequests(ctx, "")
	require.NoError(t, err)
	sink.reset()

	ok, err = s.AdminActionWithdrawal(ctx, requests[0].ID, model.ActionReject)
	require.NoError(t, err)
	assert.True(t, ok)

	requests, err = s.WithdrawalRequests(ctx, model.StatusRejected)
	require.NoError(t, err)
	assert.Len(t, requests, 1)

	_, err = s.Session(ctx, "9876543210")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, []model.EventType{
		model.EventWithdrawalUpdated,
		model.EventStatsUpdated,
	}, sink.types())
}

func TestLedgerService_ActionMirrorsOntoOtherUsers(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	_, err = s.Login(ctx, "9123456789", "Ravi")
	require.NoError(t, err)

	ok, err := s.Withdraw(ctx, "9876543210", 40, model.MethodUPI, "asha@upi")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Withdraw(ctx, "9123456789", 25, model.MethodBank, "99887766")
	require.NoError(t, err)
	require.True(t, ok)

	requests, err := s.WithdrawalRequests(ctx, "")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "9123456789", requests[0].UserID)

	ok, err = s.AdminActionWithdrawal(ctx, requests[1].ID, model.ActionReject)
	require.NoError(t, err)
	require.True(t, ok)

	asha, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(50), asha.Balance)

	ravi, err := s.Session(ctx, "9123456789")
	require.NoError(t, err)
	assert.Equal(t, int64(25), ravi.Balance)

	pending, err := s.WithdrawalRequests(ctx, model.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "9123456789", pending[0].UserID)
}

func TestLedgerService_CheckIn(t *testing.T) {
	s, _, clock := newTestLedger(t)
	ctx := context.Background()

	ok, err := s.CheckIn(ctx, "9876543210")
	require.NoError(t, err)
	assert.False(t, ok, "no session")

	_, err = s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)

	ok, err = s.CheckIn(ctx, "9876543210")
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(60), user.Balance)
	assert.Equal(t, "2024-03-10", user.LastCheckInDate)
	assert.True(t, s.CheckedInToday(user))

	ok, err = s.CheckIn(ctx, "9876543210")
	require.NoError(t, err)
	assert.False(t, ok)

	txs, err := s.Transactions(ctx, "9876543210")
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.Equal(t, CheckInDescription, txs[0].Description)

	clock.Advance(24 * time.Hour)
	assert.False(t, s.CheckedInToday(user))

	ok, err = s.CheckIn(ctx, "9876543210")
	require.NoError(t, err)
	assert.True(t, ok)

	user, err = s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(70), user.Balance)
}

func TestLedgerService_CheckInUsesLocation(t *testing.T) {
	s, _, clock := newTestLedger(t)
	ctx := context.Background()
	s.cfg.Location = time.FixedZone("IST", 5*3600+1800)

	// 20:00 UTC is already the next day in IST
	clock.now = time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)

	ok, err := s.CheckIn(ctx, "9876543210")
	require.NoError(t, err)
	require.True(t, ok)

	user, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-11", user.LastCheckInDate)
}

func TestLedgerService_ConcurrentCredits(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddBalance(ctx, "9876543210", 2, "Watch Ads"))
		}()
	}
	wg.Wait()

	user, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.Balance)

	txs, err := s.Transactions(ctx, "9876543210")
	require.NoError(t, err)
	assert.Len(t, txs, 51)
}

func TestLedgerService_BalanceMatchesTransactions(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	require.NoError(t, s.AddBalance(ctx, "9876543210", 15, "Quick Survey"))
	_, err = s.CheckIn(ctx, "9876543210")
	require.NoError(t, err)
	_, err = s.Withdraw(ctx, "9876543210", 40, model.MethodUPI, "a@bank")
	require.NoError(t, err)
	_, err = s.Withdraw(ctx, "9876543210", 20, model.MethodBank, "1234")
	require.NoError(t, err)

	requests, err := s.WithdrawalRequests(ctx, "")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	_, err = s.AdminActionWithdrawal(ctx, requests[0].ID, model.ActionReject)
	require.NoError(t, err)
	_, err = s.AdminActionWithdrawal(ctx, requests[1].ID, model.ActionApprove)
	require.NoError(t, err)

	user, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	txs, err := s.Transactions(ctx, "9876543210")
	require.NoError(t, err)

	var sum int64
	for _, tx := range txs {
		switch tx.Type {
		case model.Credit:
			sum += tx.Amount
		case model.Debit:
			sum -= tx.Amount
		}
	}
	assert.Equal(t, user.Balance, sum)
	assert.Equal(t, int64(35), user.Balance)
}

func TestLedgerService_Credit(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()

	ok, err := s.Credit(ctx, "9876543210", 5, QuizDescription)
	require.NoError(t, err)
	assert.False(t, ok, "no session to credit")

	_, err = s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)

	ok, err = s.Credit(ctx, "9876543210", 5, QuizDescription)
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(55), user.Balance)
}

func TestLedgerService_ClaimTaskReward(t *testing.T) {
	s, sink, clock := newTestLedger(t)
	ctx := context.Background()
	task := model.Task{ID: "watch-ad", Title: "Watch Ads", Reward: 2, Type: model.TaskVideo, DailyLimit: 2}

	ok, err := s.ClaimTaskReward(ctx, "9876543210", task)
	require.NoError(t, err)
	assert.False(t, ok, "no session")

	_, err = s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)
	sink.reset()

	for i := 0; i < 2; i++ {
		ok, err = s.ClaimTaskReward(ctx, "9876543210", task)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err = s.ClaimTaskReward(ctx, "9876543210", task)
	require.NoError(t, err)
	assert.False(t, ok, "limit reached")
	assert.Len(t, sink.types(), 2)

	txs, err := s.Transactions(ctx, "9876543210")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "Watch Ads", txs[0].Description)

	clock.Advance(24 * time.Hour)
	ok, err = s.ClaimTaskReward(ctx, "9876543210", task)
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(56), user.Balance)
	assert.Equal(t, "2024-03-11", user.TaskDay)
	assert.Equal(t, map[string]int{"watch-ad": 1}, user.TaskCompletions)
}

func TestLedgerService_ClaimTaskRewardUnlimited(t *testing.T) {
	s, _, _ := newTestLedger(t)
	ctx := context.Background()
	task := model.Task{ID: "promo", Title: "Promo", Reward: 1, Type: model.TaskSurvey}

	_, err := s.Login(ctx, "9876543210", "Asha")
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		ok, err := s.ClaimTaskReward(ctx, "9876543210", task)
		require.NoError(t, err)
		require.True(t, ok)
	}

	user, err := s.Session(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(75), user.Balance)
}
