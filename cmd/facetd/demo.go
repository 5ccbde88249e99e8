package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/polisai/facets-oss/pkg/assembly"
	"github.com/polisai/facets-oss/pkg/domain"
	"github.com/polisai/facets-oss/pkg/facets/account"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a self-contained composition walkthrough",
		RunE:  runDemo,
	}
}

func runDemo(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd)
	assembler := assembly.NewAssembler(prometheus.NewRegistry())

	profile := assembly.Profile{
		Name: "manager",
		Facets: []assembly.FacetSpec{
			{Type: "account", Config: map[string]any{"account_number": "ACC001"}},
			{Type: "security", Config: map[string]any{"role": "manager"}},
			{Type: "audit", Config: nil},
			{Type: "perf", Config: nil},
		},
	}

	emp := domain.NewEmployee("Alice Johnson", "EMP001", "Engineering")
	c, err := assembler.Assemble(cmd.Context(), profile, emp)
	if err != nil {
		return fmt.Errorf("assemble container: %w", err)
	}

	service := assembly.NewEmployeeService(logger)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "=== Dynamic Facets Demo ===")
	fmt.Fprintln(out)
	fmt.Fprint(out, service.Summary(c))
	fmt.Fprintln(out)

	deposit := func(amount float64) assembly.AccountOp {
		return func(a *account.Account) (float64, error) { return a.Deposit(amount) }
	}
	withdraw := func(amount float64) assembly.AccountOp {
		return func(a *account.Account) (float64, error) { return a.Withdraw(amount) }
	}

	balance, err := service.PerformFinancialOperation(cmd.Context(), c, "deposit", deposit(1000))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deposited 1000.00, balance now %.2f\n", balance)

	balance, err = service.PerformFinancialOperation(cmd.Context(), c, "withdraw", withdraw(250))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Withdrew 250.00, balance now %.2f\n", balance)

	// Delegation: the container routes operations it does not define.
	result, err := c.Delegate("balance")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Delegated balance query: %.2f\n", result)

	described, err := c.Delegate("describe")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Delegated to core entity: %s\n", described)

	fmt.Fprintln(out)
	fmt.Fprint(out, service.Summary(c))
	return nil
}
