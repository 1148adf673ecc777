package operatorrepository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/smoother-operators/memolith/internal/adapters/database"
	"github.com/smoother-operators/memolith/internal/config"
	"github.com/smoother-operators/memolith/internal/domain"
)

// Stub keeps operators in memory. It backs local development when no
// database is reachable.
type Stub struct {
	mutex     sync.Mutex
	operators map[uuid.UUID]domain.Operator
}

func NewStub() *Stub {
	return &Stub{
		operators: make(map[uuid.UUID]domain.Operator),
	}
}

func (s *Stub) ListOperators(ctx context.Context) ([]domain.Operator, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	operators := make([]domain.Operator, 0, len(s.operators))
	for _, operator := range s.operators {
		operators = append(operators, operator)
	}

	slices.SortFunc(operators, func(a, b domain.Operator) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return operators, nil
}

func (s *Stub) GetOperator(ctx context.Context, id uuid.UUID) (domain.Operator, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	operator, ok := s.operators[id]
	if !ok {
		return domain.Operator{}, domain.ErrOperatorNotFound
	}

	return operator, nil
}

func (s *Stub) StoreOperator(ctx context.Context, operator domain.Operator) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.operators {
		if strings.EqualFold(existing.Email, operator.Email) {
			return domain.ErrDuplicateEmail
		}
	}

	s.operators[operator.ID] = operator

	return nil
}

func (s *Stub) UpdateOperator(ctx context.Context, operator domain.Operator) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.operators[operator.ID]; !ok {
		return domain.ErrOperatorNotFound
	}

	for id, existing := range s.operators {
		if id != operator.ID && strings.EqualFold(existing.Email, operator.Email) {
			return domain.ErrDuplicateEmail
		}
	}

	s.operators[operator.ID] = operator

	return nil
}

func (s *Stub) DeleteOperator(ctx context.Context, id uuid.UUID) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.operators[id]; !ok {
		return domain.ErrOperatorNotFound
	}

	delete(s.operators, id)

	return nil
}

func NewPostgresOrStub(ctx context.Context, conf config.Config, logger *slog.Logger) (OperatorRepository, error) {
	schema := database.GetSchemaName(!conf.IsProduction())

	logger.Info("Initializing database connection")
	db, err := database.NewCloudsqlPostgresDatabase(conf)

	if err == nil {
		err := database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schema)
		if err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return NewPostgres(db, schema), nil
	}

	if conf.IsDevelopment() {
		logger.Warn("Failed to connect to database. Falling back to stub repository.", "error", err.Error())
		return NewStub(), nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
