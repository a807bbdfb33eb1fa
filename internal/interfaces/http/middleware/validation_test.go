package middleware

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/mealplan/backend/internal/domain/account"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type comboForm struct {
	ComboType string `json:"combo_type" binding:"required,combo"`
	StartDate string `json:"start_date" binding:"required,isodate"`
	EndDate   string `json:"end_date" binding:"omitempty,isodate"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	catalog := account.NewStaticCatalog(map[string]decimal.Decimal{"STANDARD": decimal.NewFromInt(10)})
	require.NoError(t, RegisterValidations(v, catalog))
	return v
}

func TestRegisterValidations(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Struct(comboForm{ComboType: "standard", StartDate: "2024-12-02"}))
	assert.NoError(t, v.Struct(comboForm{ComboType: "STANDARD", StartDate: "2024-12-02", EndDate: "2024-12-31"}))

	err := v.Struct(comboForm{ComboType: "DELUXE", StartDate: "02.12.2024", EndDate: "2024-02-30"})
	require.Error(t, err)

	details := ValidationDetails(err)
	require.Len(t, details, 3)
	assert.Equal(t, "combo_type", details[0].Field)
	assert.Equal(t, "Unknown combo type", details[0].Message)
	assert.Equal(t, "start_date", details[1].Field)
	assert.Equal(t, "Must be a date in YYYY-MM-DD format", details[1].Message)
	assert.Equal(t, "end_date", details[2].Field)
}

func TestValidationDetails_NonValidationError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
