package stdx

// Zero returns the zero value for a given type T.
//
// Queues use it as the "nothing available" result alongside a false ok flag.
func Zero[T any]() T {
	var zero T
	return zero
}
