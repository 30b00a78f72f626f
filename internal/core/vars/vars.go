// Package vars holds the run-scoped variable store.
package vars

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUndefined    = errors.New("variable not defined")
	ErrNotNumeric   = errors.New("variable is not numeric")
	ErrDivideByZero = errors.New("division by zero")
	ErrUnknownOp    = errors.New("unknown operation")
)

// Op is an arithmetic operation.
type Op string

const (
	OpAdd Op = "add"
	OpSub Op = "sub"
	OpMul Op = "mul"
	OpDiv Op = "div"
)

// Symbol returns the infix symbol of op.
func (o Op) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	}
	return string(o)
}

// Store maps names to float64 or string values. It is not safe for
// concurrent use; a run owns exactly one.
type Store struct {
	values map[string]interface{}
}

// New returns an empty store.
func New() *Store {
	return &Store{values: make(map[string]interface{})}
}

// Set stores v. Numeric values should be float64.
func (s *Store) Set(name string, v interface{}) {
	s.values[name] = v
}

// Get returns the value stored under name.
func (s *Store) Get(name string) (interface{}, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Number returns name as a number, parsing numeric strings.
func (s *Store) Number(name string) (float64, error) {
	v, ok := s.values[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUndefined, name)
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrNotNumeric, name, x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNotNumeric, name)
}

// Apply computes name <op> operand, stores the result in dest and returns
// the input value and the result.
func (s *Store) Apply(op Op, name string, operand float64, dest string) (before, after float64, err error) {
	before, err = s.Number(name)
	if err != nil {
		return 0, 0, err
	}
	switch op {
	case OpAdd:
		after = before + operand
	case OpSub:
		after = before - operand
	case OpMul:
		after = before * operand
	case OpDiv:
		if operand == 0 {
			return before, 0, ErrDivideByZero
		}
		after = before / operand
	default:
		return before, 0, fmt.Errorf("%w: %q", ErrUnknownOp, op)
	}
	if dest == "" {
		dest = name
	}
	s.values[dest] = after
	return before, after, nil
}

// Snapshot returns a copy of all values.
func (s *Store) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Names returns the variable names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Format renders a value the way the run log shows it.
func Format(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return strconv.Quote(x)
	case nil:
		return "<nil>"
	}
	return fmt.Sprint(v)
}
