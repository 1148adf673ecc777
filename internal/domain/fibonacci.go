package domain

import "fmt"

// FibonacciInputCeiling is the largest input whose Fibonacci number fits in
// an int64. fib(93) overflows.
const FibonacciInputCeiling = 92

// Fibonacci computes the n-th Fibonacci number iteratively.
// The result is only valid for 0 <= n <= FibonacciInputCeiling.
func Fibonacci(n int64) int64 {
	if n <= 1 {
		return n
	}

	var previous, current int64 = 0, 1
	for i := int64(2); i <= n; i++ {
		previous, current = current, previous+current
	}
	return current
}

func ValidateFibonacciInput(n int64, ceiling int64) error {
	if n < 0 {
		return fmt.Errorf("%w: input must be non-negative", ErrInvalidInput)
	}
	if n > ceiling {
		return fmt.Errorf("%w: input too large. Maximum allowed: %d", ErrInvalidInput, ceiling)
	}
	return nil
}
