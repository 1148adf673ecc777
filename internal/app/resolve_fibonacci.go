package app

import (
	"context"
	"time"

	"github.com/smoother-operators/memolith/internal/domain"
	"github.com/smoother-operators/memolith/internal/engine"
)

// ResolveFibonacci returns the number'th Fibonacci number, memoized by the
// computation engine.
type ResolveFibonacci func(ctx context.Context, number int64) (engine.Result[int64], error)

type fibonacciEngine interface {
	Resolve(ctx context.Context, key int64, compute engine.ComputeFunc[int64, int64], deadline time.Duration) (engine.Result[int64], error)
}

func BuildResolveFibonacci(eng fibonacciEngine) ResolveFibonacci {
	return func(ctx context.Context, number int64) (engine.Result[int64], error) {
		// Deadline 0 -> the engine's default deadline
		return eng.Resolve(ctx, number, fibonacciCompute, 0)
	}
}

func fibonacciCompute(number int64) (int64, error) {
	return domain.Fibonacci(number), nil
}
