package operatorrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smoother-operators/memolith/internal/domain"
	"github.com/smoother-operators/memolith/internal/reporting"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Name of the unique index on lower(email) in the operators table
const emailUniqueConstraint = "operators_email_lower_idx"

type Postgres struct {
	db     *sqlx.DB
	schema string

	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string) *Postgres {
	tracer := otel.Tracer("memolith/operatorrepository/postgres")

	return &Postgres{
		db:     db,
		schema: schema,

		tracer: tracer,
	}
}

type dbOperatorsEntry struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Email     string         `db:"email"`
	Phone     sql.NullString `db:"phone"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func operatorToDBEntry(operator domain.Operator) dbOperatorsEntry {
	phone := sql.NullString{}
	if operator.Phone != "" {
		phone = sql.NullString{String: operator.Phone, Valid: true}
	}

	return dbOperatorsEntry{
		ID:        operator.ID.String(),
		Name:      operator.Name,
		Email:     operator.Email,
		Phone:     phone,
		CreatedAt: operator.CreatedAt,
		UpdatedAt: operator.UpdatedAt,
	}
}

func (p *Postgres) dbEntryToOperator(ctx context.Context, entry dbOperatorsEntry) (domain.Operator, error) {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		err := fmt.Errorf("failed to parse stored operator id: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"id": entry.ID,
		})
		return domain.Operator{}, err
	}

	phone := ""
	if entry.Phone.Valid {
		phone = entry.Phone.String
	}

	return domain.Operator{
		ID:        id,
		Name:      entry.Name,
		Email:     entry.Email,
		Phone:     phone,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}, nil
}

func isDuplicateEmail(err error) bool {
	var pqError *pq.Error
	return errors.As(err, &pqError) && pqError.Code == "23505" && pqError.Constraint == emailUniqueConstraint
}

func (p *Postgres) ListOperators(ctx context.Context) ([]domain.Operator, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.ListOperators")
	defer span.End()

	var entries []dbOperatorsEntry
	err := p.db.SelectContext(ctx, &entries, fmt.Sprintf(`SELECT
		id, name, email, phone, created_at, updated_at
		FROM %s.operators
		ORDER BY created_at DESC`,
		pq.QuoteIdentifier(p.schema),
	))
	if err != nil {
		err := fmt.Errorf("failed to select operators: %w", err)
		reporting.Report(ctx, err)
		return nil, err
	}

	operators := make([]domain.Operator, 0, len(entries))
	for _, entry := range entries {
		operator, err := p.dbEntryToOperator(ctx, entry)
		if err != nil {
			return nil, err
		}
		operators = append(operators, operator)
	}

	return operators, nil
}

func (p *Postgres) GetOperator(ctx context.Context, id uuid.UUID) (domain.Operator, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetOperator")
	defer span.End()

	var entry dbOperatorsEntry
	err := p.db.GetContext(ctx, &entry, fmt.Sprintf(`SELECT
		id, name, email, phone, created_at, updated_at
		FROM %s.operators
		WHERE id = $1`,
		pq.QuoteIdentifier(p.schema),
	),
		id.String(),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No entry found
			return domain.Operator{}, domain.ErrOperatorNotFound
		}
		err := fmt.Errorf("failed to select operators entry: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"id": id.String(),
		})
		return domain.Operator{}, err
	}

	return p.dbEntryToOperator(ctx, entry)
}

func (p *Postgres) StoreOperator(ctx context.Context, operator domain.Operator) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreOperator")
	defer span.End()

	entry := operatorToDBEntry(operator)

	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s.operators
		(id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		pq.QuoteIdentifier(p.schema),
	),
		entry.ID,
		entry.Name,
		entry.Email,
		entry.Phone,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEmail(err) {
			// Email is taken
			return domain.ErrDuplicateEmail
		}
		err := fmt.Errorf("failed to insert operators entry: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"id":    entry.ID,
			"email": entry.Email,
		})
		return err
	}

	return nil
}

func (p *Postgres) UpdateOperator(ctx context.Context, operator domain.Operator) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.UpdateOperator")
	defer span.End()

	entry := operatorToDBEntry(operator)

	result, err := p.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s.operators
		SET name = $2, email = $3, phone = $4, updated_at = $5
		WHERE id = $1`,
		pq.QuoteIdentifier(p.schema),
	),
		entry.ID,
		entry.Name,
		entry.Email,
		entry.Phone,
		entry.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEmail(err) {
			// Email is taken
			return domain.ErrDuplicateEmail
		}
		err := fmt.Errorf("failed to update operators entry: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"id":    entry.ID,
			"email": entry.Email,
		})
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("failed to get rows affected by update: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"id": entry.ID,
		})
		return err
	}
	if rowsAffected == 0 {
		// No entry found
		return domain.ErrOperatorNotFound
	}

	return nil
}

func (p *Postgres) DeleteOperator(ctx context.Context, id uuid.UUID) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.DeleteOperator")
	defer span.End()

	result, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s.operators
		WHERE id = $1`,
		pq.QuoteIdentifier(p.schema),
	),
		id.String(),
	)
	if err != nil {
		err := fmt.Errorf("failed to delete operators entry: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"id": id.String(),
		})
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("failed to get rows affected by delete: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"id": id.String(),
		})
		return err
	}
	if rowsAffected == 0 {
		// No entry found
		return domain.ErrOperatorNotFound
	}

	return nil
}
