package account_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/facets-oss/pkg/facet"
	"github.com/polisai/facets-oss/pkg/facets/account"
)

func TestDepositWithdrawScenario(t *testing.T) {
	a := account.New("ACC001")
	assert.Equal(t, 0.0, a.Balance())

	balance, err := a.Deposit(500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, balance)

	_, err = a.Withdraw(700)
	require.Error(t, err)
	assert.ErrorIs(t, err, account.ErrInsufficientFunds)
	assert.Equal(t, 500.0, a.Balance(), "failed withdrawal leaves the balance unchanged")

	balance, err = a.Withdraw(500)
	require.NoError(t, err)
	assert.Equal(t, 0.0, balance)
}

func TestAmountValidation(t *testing.T) {
	a := account.New("ACC001")

	for _, amount := range []float64{0, -10} {
		_, err := a.Deposit(amount)
		assert.ErrorIs(t, err, account.ErrNonPositiveAmount)
		_, err = a.Withdraw(amount)
		assert.ErrorIs(t, err, account.ErrNonPositiveAmount)
	}
	assert.Equal(t, 0.0, a.Balance())
}

func TestInvokerOperations(t *testing.T) {
	c := facet.New("core")
	_, err := c.Attach(account.New("ACC002"))
	require.NoError(t, err)

	result, err := c.Delegate("deposit", 250.0)
	require.NoError(t, err)
	assert.Equal(t, 250.0, result)

	// Integer amounts coerce, as a direct caller would pass them.
	result, err = c.Delegate("deposit", 50)
	require.NoError(t, err)
	assert.Equal(t, 300.0, result)

	result, err = c.Delegate("balance")
	require.NoError(t, err)
	assert.Equal(t, 300.0, result)

	_, err = c.Delegate("withdraw", "lots")
	require.Error(t, err)

	_, err = c.Delegate("balance", 1)
	require.Error(t, err)
}

func TestTypedAccessor(t *testing.T) {
	c := facet.New("core")
	a := account.New("ACC003")
	_, err := c.Attach(a)
	require.NoError(t, err)

	got, ok := account.From(c)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, "ACC003", got.Number())

	_, ok = c.Detach(account.FacetType)
	require.True(t, ok)
	_, ok = account.From(c)
	assert.False(t, ok)
}
