package btree

import "github.com/pkg/errors"

// Recoverable caller errors: returned to the caller, tree state unchanged.
var (
	ErrDuplicateKey = errors.New("btree: duplicate key")
	ErrKeyNotFound  = errors.New("btree: key not found")
)

// FatalError wraps a condition the tree cannot recover from: resource
// exhaustion (out of pages), I/O failure, or corruption/impossible
// invariants. The engine never panics or calls os.Exit for these — it
// returns a *FatalError so the caller (the REPL, or a test) decides how
// to abort.
type FatalError struct {
	cause error
}

func newFatalError(cause error) *FatalError {
	return &FatalError{cause: cause}
}

func (e *FatalError) Error() string {
	return "btree: fatal: " + e.cause.Error()
}

func (e *FatalError) Unwrap() error {
	return e.cause
}

func fatalf(format string, args ...interface{}) *FatalError {
	return newFatalError(errors.Errorf(format, args...))
}

func wrapFatal(err error, msg string) *FatalError {
	return newFatalError(errors.Wrap(err, msg))
}
