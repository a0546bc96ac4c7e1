package stdx

import "runtime/debug"

// Safely runs fn and converts a panic into a return value.
//
// When fn panics, Safely returns the recovered value together with the stack of
// the panicking goroutine; otherwise both results are nil.
func Safely(fn func()) (recovered any, stack []byte) {
	defer func() {
		if r := recover(); r != nil {
			recovered = r
			stack = debug.Stack()
		}
	}()
	fn()
	return nil, nil
}
