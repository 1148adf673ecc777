package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smoother-operators/memolith/internal/domain"
	"github.com/smoother-operators/memolith/internal/logging"
)

type operatorRepository interface {
	ListOperators(ctx context.Context) ([]domain.Operator, error)
	GetOperator(ctx context.Context, id uuid.UUID) (domain.Operator, error)
	StoreOperator(ctx context.Context, operator domain.Operator) error
	UpdateOperator(ctx context.Context, operator domain.Operator) error
	DeleteOperator(ctx context.Context, id uuid.UUID) error
}

type ListOperators func(ctx context.Context) ([]domain.Operator, error)

func BuildListOperators(repo operatorRepository) ListOperators {
	return func(ctx context.Context) ([]domain.Operator, error) {
		operators, err := repo.ListOperators(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not list operators: %w", err)
		}
		return operators, nil
	}
}

type GetOperator func(ctx context.Context, id uuid.UUID) (domain.Operator, error)

func BuildGetOperator(repo operatorRepository) GetOperator {
	return func(ctx context.Context, id uuid.UUID) (domain.Operator, error) {
		operator, err := repo.GetOperator(ctx, id)
		if err != nil {
			return domain.Operator{}, fmt.Errorf("could not get operator: %w", err)
		}
		return operator, nil
	}
}

type CreateOperator func(ctx context.Context, name, email, phone string) (domain.Operator, error)

func BuildCreateOperator(repo operatorRepository, nowFunc func() time.Time) CreateOperator {
	return func(ctx context.Context, name, email, phone string) (domain.Operator, error) {
		now := nowFunc()
		operator := domain.Operator{
			ID:        uuid.New(),
			Name:      strings.TrimSpace(name),
			Email:     strings.TrimSpace(email),
			Phone:     strings.TrimSpace(phone),
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := domain.ValidateOperator(operator); err != nil {
			return domain.Operator{}, err
		}

		if err := repo.StoreOperator(ctx, operator); err != nil {
			return domain.Operator{}, fmt.Errorf("could not store operator: %w", err)
		}

		logging.FromContext(ctx).Info("Created operator", "operatorId", operator.ID.String())

		return operator, nil
	}
}

// OperatorUpdate holds the fields to change on an operator. Nil fields are
// left untouched.
type OperatorUpdate struct {
	Name  *string
	Email *string
	Phone *string
}

type UpdateOperator func(ctx context.Context, id uuid.UUID, update OperatorUpdate) (domain.Operator, error)

func BuildUpdateOperator(repo operatorRepository, nowFunc func() time.Time) UpdateOperator {
	return func(ctx context.Context, id uuid.UUID, update OperatorUpdate) (domain.Operator, error) {
		operator, err := repo.GetOperator(ctx, id)
		if err != nil {
			return domain.Operator{}, fmt.Errorf("could not get operator: %w", err)
		}

		if update.Name != nil {
			operator.Name = strings.TrimSpace(*update.Name)
		}
		if update.Email != nil {
			operator.Email = strings.TrimSpace(*update.Email)
		}
		if update.Phone != nil {
			operator.Phone = strings.TrimSpace(*update.Phone)
		}
		operator.UpdatedAt = nowFunc()

		if err := domain.ValidateOperator(operator); err != nil {
			return domain.Operator{}, err
		}

		if err := repo.UpdateOperator(ctx, operator); err != nil {
			return domain.Operator{}, fmt.Errorf("could not update operator: %w", err)
		}

		return operator, nil
	}
}

type DeleteOperator func(ctx context.Context, id uuid.UUID) error

func BuildDeleteOperator(repo operatorRepository) DeleteOperator {
	return func(ctx context.Context, id uuid.UUID) error {
		if err := repo.DeleteOperator(ctx, id); err != nil {
			return fmt.Errorf("could not delete operator: %w", err)
		}

		logging.FromContext(ctx).Info("Deleted operator", "operatorId", id.String())

		return nil
	}
}
