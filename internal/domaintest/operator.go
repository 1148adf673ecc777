package domaintest

import (
	"fmt"
	"testing"
	"time"

	"github.com/smoother-operators/memolith/internal/domain"
)

// NewOperator returns a valid operator with a unique ID and email.
func NewOperator(t *testing.T) domain.Operator {
	t.Helper()

	id := NewUUID(t)
	createdAt := time.Date(2024, 5, 13, 10, 51, 2, 0, time.UTC)

	return domain.Operator{
		ID:        id,
		Name:      "Ada Lovelace",
		Email:     fmt.Sprintf("operator-%s@example.com", id),
		Phone:     "+4712345678",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}
