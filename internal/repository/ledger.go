package repository

import (
	"context"
	"strconv"

	"microearn/internal/model"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	userKeyPrefix        = "microearn_user:"
	transactionKeyPrefix = "microearn_tx:"
	withdrawalsKey       = "microearn_withdrawals"
	payoutsKey           = "microearn_payouts"
)

func UserKey(userID string) string {
	return userKeyPrefix + userID
}

func TransactionsKey(userID string) string {
	return transactionKeyPrefix + userID
}

// Changeset groups ledger writes that have to land together. Nil fields are
// left untouched.
type Changeset struct {
	Session     *model.Session
	Withdrawals []*model.WithdrawalRequest
	Payouts     *int64
}

// Ledger maps sessions, the withdrawal queue and the payout counter onto
// JSON blobs in a Store.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) GetSession(ctx context.Context, userID string) (*model.Session, error) {
	var user model.User
	found, err := l.load(ctx, UserKey(userID), &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	var transactions []*model.Transaction
	if _, err = l.load(ctx, TransactionsKey(userID), &transactions); err != nil {
		return nil, err
	}
	if transactions == nil {
		transactions = []*model.Transaction{}
	}

	return &model.Session{User: &user, Transactions: transactions}, nil
}

func (l *Ledger) DeleteSession(ctx context.Context, userID string) error {
	return l.store.Delete(ctx, UserKey(userID), TransactionsKey(userID))
}

func (l *Ledger) ListWithdrawals(ctx context.Context) ([]*model.WithdrawalRequest, error) {
	var requests []*model.WithdrawalRequest
	if _, err := l.load(ctx, withdrawalsKey, &requests); err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []*model.WithdrawalRequest{}
	}
	return requests, nil
}

func (l *Ledger) GetPayouts(ctx context.Context) (int64, error) {
	raw, err := l.store.Get(ctx, payoutsKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	payouts, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse payouts")
	}
	return payouts, nil
}

func (l *Ledger) Save(ctx context.Context, changes *Changeset) error {
	values := make(map[string][]byte, 4)

	if s := changes.Session; s != nil {
		user, err := json.Marshal(s.User)
		if err != nil {
			return errors.Wrap(err, "failed to encode user")
		}
		transactions, err := json.Marshal(s.Transactions)
		if err != nil {
			return errors.Wrap(err, "failed to encode transactions")
		}
		values[UserKey(s.User.ID)] = user
		values[TransactionsKey(s.User.ID)] = transactions
	}

	if changes.Withdrawals != nil {
		requests, err := json.Marshal(changes.Withdrawals)
		if err != nil {
			return errors.Wrap(err, "failed to encode withdrawals")
		}
		values[withdrawalsKey] = requests
	}

	if changes.Payouts != nil {
		values[payoutsKey] = []byte(strconv.FormatInt(*changes.Payouts, 10))
	}

	if len(values) == 0 {
		return nil
	}
	return l.store.SetMany(ctx, values)
}

// load decodes the blob stored under key into dst. A missing key leaves dst
// untouched and reports found=false.
func (l *Ledger) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if err = json.Unmarshal(raw, dst); err != nil {
		return false, errors.Wrapf(err, "failed to decode %q", key)
	}
	return true, nil
}
