package domain

import (
	"errors"
	"fmt"

	"github.com/polisai/facets-oss/pkg/facet"
)

// ErrBadDescribeArgs indicates the describe operation received arguments.
var ErrBadDescribeArgs = errors.New("describe takes no arguments")

// Employee is the example core entity that containers wrap. It holds
// identity data only; every behavior beyond describing itself comes from
// attached facets.
type Employee struct {
	Name       string
	ID         string
	Department string
}

// NewEmployee creates an employee record.
func NewEmployee(name, id, department string) *Employee {
	return &Employee{
		Name:       name,
		ID:         id,
		Department: department,
	}
}

// Describe returns a one-line human-readable summary.
func (e *Employee) Describe() string {
	return fmt.Sprintf("%s (ID: %s), %s", e.Name, e.ID, e.Department)
}

// Operation exposes describe so delegation can fall through to the core
// entity when no attached facet claims a name.
func (e *Employee) Operation(name string) (facet.Operation, bool) {
	if name != "describe" {
		return nil, false
	}
	return func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, ErrBadDescribeArgs
		}
		return e.Describe(), nil
	}, true
}
