package calculation

// Kind tags a validation failure so API consumers can branch on it without
// parsing the message.
type Kind string

const (
	KindUnknownOperation   Kind = "unknown_operation"
	KindInsufficientInputs Kind = "insufficient_inputs"
	KindDivisionByZero     Kind = "division_by_zero"
)

// Error is a validation failure with a machine-distinguishable kind and a
// message naming the violated rule for the named field.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so errors.Is(err, ErrDivisionByZero)
// works regardless of the concrete message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrUnknownOperation = &Error{
		Kind:    KindUnknownOperation,
		Field:   "type",
		Message: "unknown calculation type: must be one of addition, subtraction, multiplication, division",
	}
	ErrInsufficientInputs = &Error{
		Kind:    KindInsufficientInputs,
		Field:   "inputs",
		Message: "at least 2 inputs are required",
	}
	ErrDivisionByZero = &Error{
		Kind:    KindDivisionByZero,
		Field:   "inputs",
		Message: "cannot divide by zero",
	}
)
