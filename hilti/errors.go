package hilti

import (
	"errors"
	"fmt"
)

// ErrUnknownInstruction is returned when an opcode has no definition.
var ErrUnknownInstruction = errors.New("unknown instruction")

// ConstraintError reports an operand failing its instruction's legality
// predicate. Operand 0 is the target; operands count from 1.
type ConstraintError struct {
	Opcode  string
	Operand int
	Message string
}

func (e *ConstraintError) Error() string {
	if e.Operand == 0 {
		return fmt.Sprintf("%s: target: %s", e.Opcode, e.Message)
	}
	return fmt.Sprintf("%s: operand %d: %s", e.Opcode, e.Operand, e.Message)
}

// InternalError is a violated compiler invariant. It is raised with panic
// through Internalf and must abort the compilation.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Message
}

// Internalf panics with an *InternalError.
func Internalf(format string, args ...any) {
	panic(&InternalError{Message: fmt.Sprintf(format, args...)})
}

// RecoverInternal converts a panicking *InternalError into *errp. Other
// panics are propagated unchanged. Use it deferred at the outermost
// compilation entry point only.
func RecoverInternal(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	ie, ok := r.(*InternalError)
	if !ok {
		panic(r)
	}
	*errp = ie
}
