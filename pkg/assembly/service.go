package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/polisai/facets-oss/pkg/domain"
	"github.com/polisai/facets-oss/pkg/facet"
	"github.com/polisai/facets-oss/pkg/facets/account"
	"github.com/polisai/facets-oss/pkg/facets/audit"
	"github.com/polisai/facets-oss/pkg/facets/notify"
	"github.com/polisai/facets-oss/pkg/facets/perf"
	"github.com/polisai/facets-oss/pkg/facets/security"
)

// ErrAccessDenied indicates the security facet refused a financial
// operation.
var ErrAccessDenied = errors.New("access denied: insufficient permissions for financial operations")

// AccountOp is a typed financial operation against the account facet,
// returning the new balance.
type AccountOp func(*account.Account) (float64, error)

// EmployeeService carries the composite operations that span multiple
// facets on an employee container. The engine itself never logs; this is
// where observability for business operations lives.
type EmployeeService struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEmployeeService creates the service. A nil logger selects
// slog.Default.
func NewEmployeeService(logger *slog.Logger) *EmployeeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmployeeService{
		logger: logger,
		tracer: otel.Tracer("github.com/polisai/facets-oss/pkg/assembly"),
	}
}

// PerformFinancialOperation runs op against the account facet, gated on
// both the security and account facets being attached and the security
// facet granting financial operations. When present, the audit facet
// records the outcome, the perf facet observes duration, and the notify
// facet publishes a balance event on the "account" topic.
func (s *EmployeeService) PerformFinancialOperation(ctx context.Context, c *facet.Container, name string, op AccountOp) (float64, error) {
	_, span := s.tracer.Start(ctx, "employee.financial_operation",
		trace.WithAttributes(attribute.String("operation", name)))
	defer span.End()

	var balance float64
	err := c.Require([]facet.Type{security.FacetType, account.FacetType}, func(c *facet.Container) error {
		sec, _ := security.From(c)
		if !sec.HasPermission(security.PermissionFinancialOps) {
			return ErrAccessDenied
		}

		acct, _ := account.From(c)
		run := func() error {
			var opErr error
			balance, opErr = op(acct)
			return opErr
		}

		start := time.Now()
		opErr := run()
		if p, ok := perf.From(c); ok {
			p.Observe(name, time.Since(start), opErr)
		}
		if opErr != nil {
			return opErr
		}

		if a, ok := audit.From(c); ok {
			a.Record(name, fmt.Sprintf("new balance: %.2f", balance))
		}
		if n, ok := notify.From(c); ok {
			// Best effort; slow subscribers are the notifier's problem.
			_, _ = n.Publish("account", map[string]any{
				"operation": name,
				"balance":   balance,
			})
		}
		return nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("financial operation refused",
			"operation", name,
			"error", err,
		)
		return 0, err
	}

	s.logger.Info("financial operation completed",
		"operation", name,
		"balance", balance,
		"employee", employeeName(c),
	)
	return balance, nil
}

// Summary renders a human-readable report of the core entity and every
// reporting facet currently attached, in attachment order where the
// facet contributes ordering (audit entries).
func (s *EmployeeService) Summary(c *facet.Container) string {
	var b strings.Builder

	if emp, ok := c.Core().(*domain.Employee); ok {
		fmt.Fprintf(&b, "Employee: %s\n", emp.Describe())
	}

	if acct, ok := account.From(c); ok {
		fmt.Fprintf(&b, "Account: %s (balance: %.2f)\n", acct.Number(), acct.Balance())
	} else {
		b.WriteString("No account information\n")
	}

	if sec, ok := security.From(c); ok {
		fmt.Fprintf(&b, "Role: %s\n", sec.Role())
	}

	if a, ok := audit.From(c); ok {
		entries := a.Recent(3)
		if len(entries) == 0 {
			b.WriteString("No recent activity\n")
		} else {
			b.WriteString("Recent activity:\n")
			for _, entry := range entries {
				fmt.Fprintf(&b, "  - %s: %s (%s)\n",
					entry.Time.Format(time.RFC3339), entry.Operation, entry.Details)
			}
		}
	}

	return b.String()
}

func employeeName(c *facet.Container) string {
	if emp, ok := c.Core().(*domain.Employee); ok {
		return emp.Name
	}
	return "unknown"
}
