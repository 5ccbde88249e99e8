// Package account implements the financial account facet: a balance with
// deposit and withdraw operations attached to a core entity at runtime.
package account

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/polisai/facets-oss/pkg/facet"
)

// FacetType is the identifier the account facet registers under.
const FacetType facet.Type = "account"

var (
	// ErrNonPositiveAmount indicates a deposit or withdrawal of zero, a
	// negative value, or a non-finite value.
	ErrNonPositiveAmount = errors.New("amount must be a positive finite number")

	// ErrInsufficientFunds indicates a withdrawal larger than the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Account tracks a single balance. The zero balance is the starting state
// for every new account.
type Account struct {
	mu      sync.Mutex
	number  string
	balance float64
}

// New creates an account facet with the given account number and a zero
// balance.
func New(number string) *Account {
	return &Account{number: number}
}

// FacetType implements facet.Facet.
func (a *Account) FacetType() facet.Type {
	return FacetType
}

// Number returns the account number.
func (a *Account) Number() string {
	return a.number
}

// Balance returns the current balance.
func (a *Account) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Deposit adds amount to the balance and returns the new balance.
func (a *Account) Deposit(amount float64) (float64, error) {
	if !validAmount(amount) {
		return 0, ErrNonPositiveAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance += amount
	return a.balance, nil
}

// Withdraw subtracts amount from the balance and returns the new balance.
// The balance is unchanged when the withdrawal fails.
func (a *Account) Withdraw(amount float64) (float64, error) {
	if !validAmount(amount) {
		return 0, ErrNonPositiveAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount > a.balance {
		return 0, ErrInsufficientFunds
	}
	a.balance -= amount
	return a.balance, nil
}

// Operation implements facet.Invoker, exposing deposit, withdraw, and
// balance for dynamic dispatch.
func (a *Account) Operation(name string) (facet.Operation, bool) {
	switch name {
	case "deposit":
		return func(args ...any) (any, error) {
			amount, err := amountArg(args)
			if err != nil {
				return nil, err
			}
			return a.Deposit(amount)
		}, true
	case "withdraw":
		return func(args ...any) (any, error) {
			amount, err := amountArg(args)
			if err != nil {
				return nil, err
			}
			return a.Withdraw(amount)
		}, true
	case "balance":
		return func(args ...any) (any, error) {
			if len(args) != 0 {
				return nil, fmt.Errorf("balance takes no arguments, got %d", len(args))
			}
			return a.Balance(), nil
		}, true
	default:
		return nil, false
	}
}

// From returns the account facet attached to c, if present. This is the
// typed accessor callers should prefer over generic delegation.
func From(c *facet.Container) (*Account, bool) {
	return facet.Lookup[*Account](c, FacetType)
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 1) && !math.IsNaN(amount)
}

// amountArg coerces the single operation argument into a float64. JSON
// decoders hand numbers over as float64, but direct callers may pass ints.
func amountArg(args []any) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected 1 amount argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("amount must be a number, got %T", args[0])
	}
}
