package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured logging
//
// Usage in defer statements:
//
//	func riskyOperation() {
//	    defer observability.RecoverPanic(logger, "risky operation")
//	    // ... code that might panic
//	}
//
// After logging, the panic is NOT re-raised - the function returns normally.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		LogPanic(logger, r, context)
	}
}

// LogPanic logs a value already obtained from recover() together with the
// current stack
func LogPanic(logger *Logger, recovered interface{}, context string) {
	logger.WithField("panic", recovered).
		WithField("stack", string(debug.Stack())).
		WithField("context", context).
		Error("PANIC recovered")
}
