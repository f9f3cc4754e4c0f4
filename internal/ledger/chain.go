// chain.go - Simulated host ledger: accounts, balances, and call execution.
//
// The host ledger executes state-changing calls atomically per account key;
// the mutex here models that native total ordering. Persisted account state is
// {owner, commitment} only - the raw identifier and salt never reach the chain.

package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

var (
	// ErrAccountNotFound reports a call against an address with no deployed account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInsufficientBalance reports an execute moving more value than the account holds.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrNotOwner reports an execute by anyone but the account owner.
	ErrNotOwner = errors.New("caller is not the account owner")
)

// Account is the on-chain entity at a derived address.
// It stores only the owner and the (already public) commitment.
type Account struct {
	Address    Address
	Owner      Address
	Commitment *big.Int

	chain *Chain
}

// Call records one executed outbound call of an account.
type Call struct {
	Destination Address
	Value       *big.Int
	Payload     []byte
}

// Chain is the simulated host ledger.
type Chain struct {
	mu       sync.Mutex
	accounts map[Address]*Account
	balances map[Address]*big.Int
	calls    map[Address][]Call
}

// NewChain creates an empty simulated ledger.
func NewChain() *Chain {
	return &Chain{
		accounts: make(map[Address]*Account),
		balances: make(map[Address]*big.Int),
		calls:    make(map[Address][]Call),
	}
}

// deploy installs an account at addr if none exists yet. The second return
// reports whether a deployment actually happened; racing deploys of the same
// address collapse onto the first.
func (c *Chain) deploy(addr, owner Address, cm *big.Int) (*Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if acct, ok := c.accounts[addr]; ok {
		return acct, false
	}
	acct := &Account{
		Address:    addr,
		Owner:      owner,
		Commitment: new(big.Int).Set(cm),
		chain:      c,
	}
	c.accounts[addr] = acct
	return acct, true
}

// Account returns the deployed account at addr, if any.
func (c *Chain) Account(addr Address) (*Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acct, ok := c.accounts[addr]
	return acct, ok
}

// Credit adds value to an address balance. Deposits need no deployed account;
// that is the point of counterfactual addressing.
func (c *Chain) Credit(addr Address, value *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addBalance(addr, value)
}

// Balance returns the current balance of an address.
func (c *Chain) Balance(addr Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Calls returns the journal of executed calls for an account address.
func (c *Chain) Calls(addr Address) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls[addr]...)
}

func (c *Chain) addBalance(addr Address, value *big.Int) {
	b, ok := c.balances[addr]
	if !ok {
		b = new(big.Int)
		c.balances[addr] = b
	}
	b.Add(b, value)
}

// Execute moves value from the account to dest and journals the call.
// Generic post-deployment capability: payload is opaque to the ledger.
func (a *Account) Execute(caller Address, dest Address, value *big.Int, payload []byte) error {
	if caller != a.Owner {
		return ErrNotOwner
	}
	c := a.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	bal, ok := c.balances[a.Address]
	if !ok || bal.Cmp(value) < 0 {
		return fmt.Errorf("%w: address %s", ErrInsufficientBalance, a.Address.Hex())
	}
	bal.Sub(bal, value)
	c.addBalance(dest, value)
	c.calls[a.Address] = append(c.calls[a.Address], Call{
		Destination: dest,
		Value:       new(big.Int).Set(value),
		Payload:     append([]byte(nil), payload...),
	})
	return nil
}
