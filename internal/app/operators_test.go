package app_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smoother-operators/memolith/internal/adapters/operatorrepository"
	"github.com/smoother-operators/memolith/internal/app"
	"github.com/smoother-operators/memolith/internal/domain"
	"github.com/smoother-operators/memolith/internal/domaintest"
)

func TestCreateOperator(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 13, 10, 51, 2, 0, time.UTC)

	t.Run("creates and stores an operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()
		createOperator := app.BuildCreateOperator(repo, func() time.Time { return start })

		operator, err := createOperator(ctx, "  Ada Lovelace ", " ada@example.com ", " +4712345678 ")
		require.NoError(t, err)

		require.Equal(t, "Ada Lovelace", operator.Name)
		require.Equal(t, "ada@example.com", operator.Email)
		require.Equal(t, "+4712345678", operator.Phone)
		require.Equal(t, start, operator.CreatedAt)
		require.Equal(t, start, operator.UpdatedAt)

		stored, err := repo.GetOperator(ctx, operator.ID)
		require.NoError(t, err)
		require.Equal(t, operator, stored)
	})

	t.Run("rejects invalid operators", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()
		createOperator := app.BuildCreateOperator(repo, func() time.Time { return start })

		cases := []struct {
			name          string
			operatorName  string
			operatorEmail string
			operatorPhone string
		}{
			{name: "missing name", operatorName: "   ", operatorEmail: "a@example.com"},
			{name: "missing email", operatorName: "A", operatorEmail: ""},
			{name: "bad email", operatorName: "A", operatorEmail: "not-an-email"},
			{name: "bad phone", operatorName: "A", operatorEmail: "a@example.com", operatorPhone: "not-a-phone"},
			{name: "long name", operatorName: strings.Repeat("a", 256), operatorEmail: "a@example.com"},
		}
		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				_, err := createOperator(ctx, c.operatorName, c.operatorEmail, c.operatorPhone)
				require.ErrorIs(t, err, domain.ErrInvalidInput)
			})
		}

		operators, err := repo.ListOperators(ctx)
		require.NoError(t, err)
		require.Empty(t, operators, "invalid operators must not be stored")
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()
		createOperator := app.BuildCreateOperator(repo, func() time.Time { return start })

		_, err := createOperator(ctx, "First", "shared@example.com", "")
		require.NoError(t, err)

		_, err = createOperator(ctx, "Second", "Shared@Example.com", "")
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})
}

func TestListAndGetOperators(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 13, 10, 51, 2, 0, time.UTC)

	t.Run("lists newest first", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()

		currentTime := start
		createOperator := app.BuildCreateOperator(repo, func() time.Time { return currentTime })

		first, err := createOperator(ctx, "First", "first@example.com", "")
		require.NoError(t, err)

		currentTime = currentTime.Add(time.Hour)
		second, err := createOperator(ctx, "Second", "second@example.com", "")
		require.NoError(t, err)

		listOperators := app.BuildListOperators(repo)
		operators, err := listOperators(ctx)
		require.NoError(t, err)
		require.Equal(t, []domain.Operator{second, first}, operators)
	})

	t.Run("get missing operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		getOperator := app.BuildGetOperator(operatorrepository.NewStub())

		_, err := getOperator(ctx, domaintest.NewUUID(t))
		require.ErrorIs(t, err, domain.ErrOperatorNotFound)
	})
}

func TestUpdateOperator(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 13, 10, 51, 2, 0, time.UTC)

	ptr := func(s string) *string {
		return &s
	}

	t.Run("updates only the provided fields", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()

		currentTime := start
		nowFunc := func() time.Time { return currentTime }

		createOperator := app.BuildCreateOperator(repo, nowFunc)
		operator, err := createOperator(ctx, "Before", "before@example.com", "+4712345678")
		require.NoError(t, err)

		currentTime = currentTime.Add(time.Hour)

		updateOperator := app.BuildUpdateOperator(repo, nowFunc)
		updated, err := updateOperator(ctx, operator.ID, app.OperatorUpdate{
			Name: ptr("  After  "),
		})
		require.NoError(t, err)

		require.Equal(t, "After", updated.Name)
		require.Equal(t, "before@example.com", updated.Email)
		require.Equal(t, "+4712345678", updated.Phone)
		require.Equal(t, start, updated.CreatedAt)
		require.Equal(t, start.Add(time.Hour), updated.UpdatedAt)

		stored, err := repo.GetOperator(ctx, operator.ID)
		require.NoError(t, err)
		require.Equal(t, updated, stored)
	})

	t.Run("clears the phone with an empty value", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()

		createOperator := app.BuildCreateOperator(repo, func() time.Time { return start })
		operator, err := createOperator(ctx, "Name", "name@example.com", "+4712345678")
		require.NoError(t, err)

		updateOperator := app.BuildUpdateOperator(repo, func() time.Time { return start })
		updated, err := updateOperator(ctx, operator.ID, app.OperatorUpdate{
			Phone: ptr(""),
		})
		require.NoError(t, err)
		require.Equal(t, "", updated.Phone)
	})

	t.Run("rejects updates making the operator invalid", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()

		createOperator := app.BuildCreateOperator(repo, func() time.Time { return start })
		operator, err := createOperator(ctx, "Valid", "valid@example.com", "")
		require.NoError(t, err)

		updateOperator := app.BuildUpdateOperator(repo, func() time.Time { return start })
		_, err = updateOperator(ctx, operator.ID, app.OperatorUpdate{
			Email: ptr("not-an-email"),
		})
		require.ErrorIs(t, err, domain.ErrInvalidInput)

		// Unchanged in the repository
		stored, err := repo.GetOperator(ctx, operator.ID)
		require.NoError(t, err)
		require.Equal(t, "valid@example.com", stored.Email)
	})

	t.Run("rejects taking another operator's email", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()

		createOperator := app.BuildCreateOperator(repo, func() time.Time { return start })
		_, err := createOperator(ctx, "First", "first@example.com", "")
		require.NoError(t, err)
		second, err := createOperator(ctx, "Second", "second@example.com", "")
		require.NoError(t, err)

		updateOperator := app.BuildUpdateOperator(repo, func() time.Time { return start })
		_, err = updateOperator(ctx, second.ID, app.OperatorUpdate{
			Email: ptr("first@example.com"),
		})
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("update missing operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		updateOperator := app.BuildUpdateOperator(operatorrepository.NewStub(), func() time.Time { return start })

		_, err := updateOperator(ctx, domaintest.NewUUID(t), app.OperatorUpdate{Name: ptr("Anyone")})
		require.ErrorIs(t, err, domain.ErrOperatorNotFound)
	})
}

func TestDeleteOperator(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 13, 10, 51, 2, 0, time.UTC)

	t.Run("deletes an operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		repo := operatorrepository.NewStub()

		createOperator := app.BuildCreateOperator(repo, func() time.Time { return start })
		operator, err := createOperator(ctx, "Doomed", "doomed@example.com", "")
		require.NoError(t, err)

		deleteOperator := app.BuildDeleteOperator(repo)
		require.NoError(t, deleteOperator(ctx, operator.ID))

		_, err = repo.GetOperator(ctx, operator.ID)
		require.ErrorIs(t, err, domain.ErrOperatorNotFound)
	})

	t.Run("delete missing operator", func(t *testing.T) {
		t.Parallel()
		ctx := t.Context()

		deleteOperator := app.BuildDeleteOperator(operatorrepository.NewStub())

		err := deleteOperator(ctx, domaintest.NewUUID(t))
		require.ErrorIs(t, err, domain.ErrOperatorNotFound)
	})
}
