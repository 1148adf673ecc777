package app

import (
	"context"

	"github.com/smoother-operators/memolith/internal/logging"
)

type ClearCache func(ctx context.Context) (previousSize, newSize int)

type cacheClearer interface {
	ClearCache() (previousSize, newSize int)
}

func BuildClearCache(eng cacheClearer) ClearCache {
	return func(ctx context.Context) (int, int) {
		previousSize, newSize := eng.ClearCache()

		logging.FromContext(ctx).Info("Cleared computation cache", "previousSize", previousSize)

		return previousSize, newSize
	}
}
