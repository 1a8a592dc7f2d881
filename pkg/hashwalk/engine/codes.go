package engine

// Code is the result of every public engine operation. The numeric values
// are part of the C ABI and must not be reordered.
type Code uint32

// Result codes.
const (
	Ok                 Code = 0
	Exception          Code = 1
	AlreadyInitialized Code = 2
	ArgumentNull       Code = 3
	ArgumentInvalid    Code = 4
	Memory             Code = 5
	LogEmpty           Code = 6
	NotInitialized     Code = 7
)

// String returns the symbolic name of the code.
func (c Code) String() string {
	switch c {
	case Ok:
		return "ok"
	case Exception:
		return "exception"
	case AlreadyInitialized:
		return "already_initialized"
	case ArgumentNull:
		return "argument_null"
	case ArgumentInvalid:
		return "argument_invalid"
	case Memory:
		return "memory"
	case LogEmpty:
		return "log_empty"
	case NotInitialized:
		return "not_initialized"
	default:
		return "unknown"
	}
}
