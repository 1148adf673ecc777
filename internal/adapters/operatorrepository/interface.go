package operatorrepository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smoother-operators/memolith/internal/domain"
)

type OperatorRepository interface {
	ListOperators(ctx context.Context) ([]domain.Operator, error)
	GetOperator(ctx context.Context, id uuid.UUID) (domain.Operator, error)
	StoreOperator(ctx context.Context, operator domain.Operator) error
	UpdateOperator(ctx context.Context, operator domain.Operator) error
	DeleteOperator(ctx context.Context, id uuid.UUID) error
}
