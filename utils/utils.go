package utils

// Box moves t to the heap and hands back its address, for optional values
// threaded through the compiler.
func Box[T any](t T) *T { return &t }
