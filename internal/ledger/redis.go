package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"curio/pkg/domain"
	"curio/pkg/platform/sentinel"
)

// transferScript moves an amount between two balance keys atomically.
//
//	KEYS[1] - source balance key
//	KEYS[2] - destination balance key
//	ARGV[1] - amount
//
// Return values:
//
//	1 - transfer applied
//	0 - insufficient source balance
var transferScript = redis.NewScript(`
local balance = tonumber(redis.call('GET', KEYS[1])) or 0
local amount = tonumber(ARGV[1])
if balance < amount then
    return 0
end
redis.call('DECRBY', KEYS[1], amount)
redis.call('INCRBY', KEYS[2], amount)
return 1
`)

// Redis implements Ledger on a shared Redis instance so multiple engine
// processes can settle against the same balances. Debit-and-credit runs in
// one Lua script, matching the InMemory implementation's atomicity contract.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedis(client *redis.Client, keyPrefix string) *Redis {
	return &Redis{client: client, keyPrefix: keyPrefix}
}

func (l *Redis) key(account domain.AccountID) string {
	return l.keyPrefix + "balance:" + account.String()
}

func (l *Redis) Deposit(ctx context.Context, account domain.AccountID, amount domain.Amount) error {
	if account.IsNil() {
		return fmt.Errorf("deposit: account is required")
	}
	if err := l.client.IncrBy(ctx, l.key(account), int64(amount)).Err(); err != nil {
		return fmt.Errorf("deposit to %s: %w", account, err)
	}
	return nil
}

func (l *Redis) Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error) {
	v, err := l.client.Get(ctx, l.key(account)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance of %s: %w", account, err)
	}
	return domain.Amount(v), nil
}

func (l *Redis) Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount) error {
	if amount.IsZero() {
		return nil
	}
	if from.IsNil() || to.IsNil() {
		return fmt.Errorf("transfer: both accounts are required")
	}
	status, err := transferScript.Run(ctx, l.client, []string{l.key(from), l.key(to)}, uint64(amount)).Int()
	if err != nil {
		return fmt.Errorf("transfer %s from %s: %w", amount, from, err)
	}
	if status == 0 {
		return fmt.Errorf("transfer %s from %s: %w", amount, from, sentinel.ErrInsufficientFunds)
	}
	return nil
}
