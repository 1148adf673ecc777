package operatorrepository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/smoother-operators/memolith/internal/adapters/database"
	"github.com/smoother-operators/memolith/internal/domain"
	"github.com/smoother-operators/memolith/internal/domaintest"
)

func newPostgres(t *testing.T, db *sqlx.DB, schemaSuffix string) (*Postgres, string) {
	require.NotEmpty(t, schemaSuffix, "schemaSuffix must not be empty")
	schema := fmt.Sprintf("operators_repo_test_%s", schemaSuffix)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db.MustExec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schema)))

	migrator := database.NewDatabaseMigrator(db, logger)

	err := migrator.Migrate(t.Context(), schema)
	require.NoError(t, err)

	return NewPostgres(db, schema), schema
}

func TestPostgresOperatorRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping db tests in short mode.")
	}
	t.Parallel()

	newOperator := func(t *testing.T, name, email, phone string, createdAt time.Time) domain.Operator {
		t.Helper()

		return domain.Operator{
			ID:        domaintest.NewUUID(t),
			Name:      name,
			Email:     email,
			Phone:     phone,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
	}

	getStoredOperator := func(t *testing.T, db *sqlx.DB, schema string, id string) *dbOperatorsEntry {
		t.Helper()

		ctx := t.Context()

		txx, err := db.Beginx()
		require.NoError(t, err)
		defer txx.Rollback()

		_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(schema)))
		require.NoError(t, err)

		var entry dbOperatorsEntry
		err = txx.QueryRowxContext(
			ctx,
			"SELECT id, name, email, phone, created_at, updated_at FROM operators WHERE id = $1",
			id,
		).StructScan(&entry)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		require.NoError(t, err)

		err = txx.Commit()
		require.NoError(t, err)

		return &entry
	}

	requireEqualOperators := func(t *testing.T, expected, actual domain.Operator) {
		t.Helper()
		require.Equal(t, expected.ID, actual.ID)
		require.Equal(t, expected.Name, actual.Name)
		require.Equal(t, expected.Email, actual.Email)
		require.Equal(t, expected.Phone, actual.Phone)

		// Time can get truncated when round-tripping to the database
		require.WithinDuration(t, expected.CreatedAt, actual.CreatedAt, time.Millisecond)
		require.WithinDuration(t, expected.UpdatedAt, actual.UpdatedAt, time.Millisecond)
	}

	t.Run("Store and get operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, schema := newPostgres(t, db, "store_and_get")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		operator := newOperator(t, "Ada Lovelace", "ada@example.com", "+4712345678", createdAt)

		err = p.StoreOperator(ctx, operator)
		require.NoError(t, err)

		got, err := p.GetOperator(ctx, operator.ID)
		require.NoError(t, err)
		requireEqualOperators(t, operator, got)

		stored := getStoredOperator(t, db, schema, operator.ID.String())
		require.NotNil(t, stored)
		require.True(t, stored.Phone.Valid)
		require.Equal(t, "+4712345678", stored.Phone.String)
	})

	t.Run("Empty phone is stored as NULL", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, schema := newPostgres(t, db, "null_phone")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		operator := newOperator(t, "Grace Hopper", "grace@example.com", "", createdAt)

		err = p.StoreOperator(ctx, operator)
		require.NoError(t, err)

		stored := getStoredOperator(t, db, schema, operator.ID.String())
		require.NotNil(t, stored)
		require.False(t, stored.Phone.Valid)

		got, err := p.GetOperator(ctx, operator.ID)
		require.NoError(t, err)
		require.Equal(t, "", got.Phone)
	})

	t.Run("Get missing operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "get_missing")

		_, err = p.GetOperator(ctx, domaintest.NewUUID(t))
		require.ErrorIs(t, err, domain.ErrOperatorNotFound)
	})

	t.Run("Duplicate email is rejected case insensitively", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "duplicate_email")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		err = p.StoreOperator(ctx, newOperator(t, "First", "Shared@Example.com", "", createdAt))
		require.NoError(t, err)

		err = p.StoreOperator(ctx, newOperator(t, "Second", "shared@example.com", "", createdAt))
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)

		operators, err := p.ListOperators(ctx)
		require.NoError(t, err)
		require.Len(t, operators, 1)
		require.Equal(t, "First", operators[0].Name)
	})

	t.Run("List returns operators by creation time, newest first", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "list_order")

		operators, err := p.ListOperators(ctx)
		require.NoError(t, err)
		require.Empty(t, operators)

		t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		oldest := newOperator(t, "Oldest", "oldest@example.com", "", t0)
		middle := newOperator(t, "Middle", "middle@example.com", "", t0.Add(time.Hour))
		newest := newOperator(t, "Newest", "newest@example.com", "", t0.Add(2*time.Hour))

		// Store out of order to make sure ordering comes from created_at
		for _, operator := range []domain.Operator{middle, newest, oldest} {
			err := p.StoreOperator(ctx, operator)
			require.NoError(t, err)
		}

		operators, err = p.ListOperators(ctx)
		require.NoError(t, err)
		require.Len(t, operators, 3)
		requireEqualOperators(t, newest, operators[0])
		requireEqualOperators(t, middle, operators[1])
		requireEqualOperators(t, oldest, operators[2])
	})

	t.Run("Update operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "update")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		operator := newOperator(t, "Before", "before@example.com", "", createdAt)

		err = p.StoreOperator(ctx, operator)
		require.NoError(t, err)

		updated := operator
		updated.Name = "After"
		updated.Email = "after@example.com"
		updated.Phone = "+4798765432"
		updated.UpdatedAt = createdAt.Add(time.Hour)

		err = p.UpdateOperator(ctx, updated)
		require.NoError(t, err)

		got, err := p.GetOperator(ctx, operator.ID)
		require.NoError(t, err)
		requireEqualOperators(t, updated, got)

		// Creation time is not touched by updates
		require.WithinDuration(t, createdAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("Update missing operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "update_missing")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		operator := newOperator(t, "Ghost", "ghost@example.com", "", createdAt)

		err = p.UpdateOperator(ctx, operator)
		require.ErrorIs(t, err, domain.ErrOperatorNotFound)
	})

	t.Run("Update to taken email is rejected", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "update_taken_email")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		first := newOperator(t, "First", "first@example.com", "", createdAt)
		second := newOperator(t, "Second", "second@example.com", "", createdAt)

		require.NoError(t, p.StoreOperator(ctx, first))
		require.NoError(t, p.StoreOperator(ctx, second))

		second.Email = "First@Example.com"
		err = p.UpdateOperator(ctx, second)
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)

		// Unchanged in the database
		got, err := p.GetOperator(ctx, second.ID)
		require.NoError(t, err)
		require.Equal(t, "second@example.com", got.Email)
	})

	t.Run("Update keeping own email", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "update_own_email")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		operator := newOperator(t, "Same", "same@example.com", "", createdAt)

		require.NoError(t, p.StoreOperator(ctx, operator))

		operator.Email = "Same@Example.com"
		operator.UpdatedAt = createdAt.Add(time.Minute)

		err = p.UpdateOperator(ctx, operator)
		require.NoError(t, err)

		got, err := p.GetOperator(ctx, operator.ID)
		require.NoError(t, err)
		require.Equal(t, "Same@Example.com", got.Email)
	})

	t.Run("Delete operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, schema := newPostgres(t, db, "delete")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		operator := newOperator(t, "Doomed", "doomed@example.com", "", createdAt)

		require.NoError(t, p.StoreOperator(ctx, operator))

		err = p.DeleteOperator(ctx, operator.ID)
		require.NoError(t, err)

		_, err = p.GetOperator(ctx, operator.ID)
		require.ErrorIs(t, err, domain.ErrOperatorNotFound)

		stored := getStoredOperator(t, db, schema, operator.ID.String())
		require.Nil(t, stored)

		// Deleting again fails
		err = p.DeleteOperator(ctx, operator.ID)
		require.ErrorIs(t, err, domain.ErrOperatorNotFound)
	})

	t.Run("Email is free after delete", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		db, err := database.NewPostgresDatabase(database.LOCAL_CONNECTION_STRING)
		require.NoError(t, err)
		defer db.Close()

		p, _ := newPostgres(t, db, "email_free_after_delete")

		createdAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		operator := newOperator(t, "First owner", "recycled@example.com", "", createdAt)

		require.NoError(t, p.StoreOperator(ctx, operator))
		require.NoError(t, p.DeleteOperator(ctx, operator.ID))

		err = p.StoreOperator(ctx, newOperator(t, "Second owner", "recycled@example.com", "", createdAt))
		require.NoError(t, err)
	})
}
