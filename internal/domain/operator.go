package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxOperatorNameLength  = 255
	MaxOperatorEmailLength = 320
	MaxOperatorPhoneLength = 20
)

var emailRx = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// phoneRx matches E.164-style numbers after separators have been stripped.
var phoneRx = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

type Operator struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func ValidateOperatorName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > MaxOperatorNameLength {
		return fmt.Errorf("%w: name cannot exceed %d characters", ErrInvalidInput, MaxOperatorNameLength)
	}
	return nil
}

func ValidateOperatorEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if len(email) > MaxOperatorEmailLength {
		return fmt.Errorf("%w: email cannot exceed %d characters", ErrInvalidInput, MaxOperatorEmailLength)
	}
	if !emailRx.MatchString(email) {
		return fmt.Errorf("%w: email format is invalid", ErrInvalidInput)
	}
	return nil
}

func ValidateOperatorPhone(phone string) error {
	if phone == "" {
		return nil
	}
	if len(phone) > MaxOperatorPhoneLength {
		return fmt.Errorf("%w: phone number cannot exceed %d characters", ErrInvalidInput, MaxOperatorPhoneLength)
	}

	stripped := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(phone)
	if !phoneRx.MatchString(stripped) {
		return fmt.Errorf("%w: phone number format is invalid", ErrInvalidInput)
	}
	return nil
}

func ValidateOperator(operator Operator) error {
	if err := ValidateOperatorName(operator.Name); err != nil {
		return err
	}
	if err := ValidateOperatorEmail(operator.Email); err != nil {
		return err
	}
	if err := ValidateOperatorPhone(operator.Phone); err != nil {
		return err
	}
	return nil
}
