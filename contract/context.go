package contract

import (
	"context"
	"fmt"

	"presence_dao/contract/dao"
	"presence_dao/sdk"
)

// txContext is scoped to the currently executing instruction. The decoded
// state and member records are memoized so repeated helper calls see the
// same snapshot and a save is visible to every later read.
type txContext struct {
	env      sdk.Env
	st       *txState
	salt     [32]byte
	logs     []string
	accounts []sdk.Address

	state   *dao.State
	members map[sdk.Address]*dao.Member
}

func newTxContext(ctx context.Context, store sdk.Store, env sdk.Env, salt [32]byte, accounts []sdk.Address) *txContext {
	return &txContext{
		env:      env,
		st:       newTxState(ctx, store),
		salt:     salt,
		accounts: accounts,
		members:  map[sdk.Address]*dao.Member{},
	}
}

func (tx *txContext) now() int64 {
	return tx.env.Timestamp
}

func (tx *txContext) sender() sdk.Address {
	return tx.env.Sender.Address
}

func (tx *txContext) log(line string) {
	tx.logs = append(tx.logs, line)
}

// requireAccounts checks client supplied account addresses against the
// record keys the handler touches. An empty account list skips the check.
func (tx *txContext) requireAccounts(keys ...string) error {
	if len(tx.accounts) == 0 {
		return nil
	}
	if len(tx.accounts) != len(keys) {
		return fmt.Errorf("%w: expected %d accounts, got %d", ErrInvalidInput, len(keys), len(tx.accounts))
	}
	for i, key := range keys {
		want := AccountAddress(tx.salt, key)
		if tx.accounts[i] != want {
			return fmt.Errorf("%w: account %d is %s, expected %s", ErrInvalidInput, i, tx.accounts[i].Short(), want.Short())
		}
	}
	return nil
}
