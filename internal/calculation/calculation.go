// Package calculation holds the arithmetic core: the closed set of
// operations, the validating factory, and result computation.
package calculation

import (
	"fmt"
	"strings"

	"calculations-service/internal/models"
)

// Operation is the calculation type discriminator. The set is closed;
// Compute switches exhaustively over it.
type Operation string

const (
	Addition       Operation = "addition"
	Subtraction    Operation = "subtraction"
	Multiplication Operation = "multiplication"
	Division       Operation = "division"
)

// ParseOperation normalizes a type name case-insensitively against the four
// known operations.
func ParseOperation(name string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(name))) {
	case Addition:
		return Addition, nil
	case Subtraction:
		return Subtraction, nil
	case Multiplication:
		return Multiplication, nil
	case Division:
		return Division, nil
	default:
		return "", unknownOperation(name)
	}
}

// Compute derives the result from an operation and its ordered inputs.
// Division fails on any zero divisor past the first input; this check is
// kept even though Validate already rejects such inputs, so that records
// constructed without going through the factory still fail cleanly.
func Compute(op Operation, inputs []float64) (float64, error) {
	if len(inputs) == 0 {
		return 0, nil
	}
	switch op {
	case Addition:
		sum := 0.0
		for _, v := range inputs {
			sum += v
		}
		return sum, nil
	case Subtraction:
		result := inputs[0]
		for _, v := range inputs[1:] {
			result -= v
		}
		return result, nil
	case Multiplication:
		result := 1.0
		for _, v := range inputs {
			result *= v
		}
		return result, nil
	case Division:
		result := inputs[0]
		for _, v := range inputs[1:] {
			if v == 0 {
				return 0, ErrDivisionByZero
			}
			result /= v
		}
		return result, nil
	default:
		return 0, unknownOperation(string(op))
	}
}

// Validate is the pre-construction gate: at least two inputs, and no zero
// divisor when the operation is division.
func Validate(op Operation, inputs []float64) error {
	if len(inputs) < MinInputs {
		return ErrInsufficientInputs
	}
	if op == Division {
		for _, v := range inputs[1:] {
			if v == 0 {
				return ErrDivisionByZero
			}
		}
	}
	return nil
}

// MinInputs is the smallest number of operands a calculation accepts.
const MinInputs = 2

// New validates and constructs a calculation record. It has no persistence
// side effect; storing the record is the caller's concern.
func New(typeName string, userID *string, inputs []float64) (*models.Calculation, error) {
	op, err := ParseOperation(typeName)
	if err != nil {
		return nil, err
	}
	if err := Validate(op, inputs); err != nil {
		return nil, err
	}
	return &models.Calculation{
		Type:   string(op),
		Inputs: append(models.Float64Slice(nil), inputs...),
		UserID: userID,
	}, nil
}

// Result recomputes the value of a stored calculation from its current
// type and inputs.
func Result(c *models.Calculation) (float64, error) {
	op, err := ParseOperation(c.Type)
	if err != nil {
		return 0, err
	}
	return Compute(op, c.Inputs)
}

// Patch is a partial update of a calculation. Nil fields are left as-is;
// ID and UserID are not patchable.
type Patch struct {
	Type   *string
	Inputs []float64
}

// Update merges a patch into an existing record and re-validates the merged
// state as a whole, so switching the type to division re-checks the divisors
// already stored. The record is only mutated when the merged state is valid.
func Update(c *models.Calculation, p Patch) error {
	typeName := c.Type
	if p.Type != nil {
		typeName = *p.Type
	}
	inputs := []float64(c.Inputs)
	if p.Inputs != nil {
		inputs = p.Inputs
	}

	op, err := ParseOperation(typeName)
	if err != nil {
		return err
	}
	if err := Validate(op, inputs); err != nil {
		return err
	}

	c.Type = string(op)
	c.Inputs = append(models.Float64Slice(nil), inputs...)
	return nil
}

func unknownOperation(name string) *Error {
	return &Error{
		Kind:    KindUnknownOperation,
		Field:   "type",
		Message: fmt.Sprintf("unknown calculation type %q: must be one of addition, subtraction, multiplication, division", name),
	}
}
