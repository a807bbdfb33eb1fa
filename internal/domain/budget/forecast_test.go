package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate_ScenarioE(t *testing.T) {
	calc := NewCalculator(language.English)

	f := calc.Calculate(Input{
		Budget:         dec("-50"),
		OverdraftLimit: dec("200"),
		Currency:       "USD",
		ActiveTotal:    dec("30"),
		ActiveCount:    3,
	})

	assert.True(t, f.AvailableBudget.Equal(dec("150")))
	assert.True(t, f.IsLowBudget)
	assert.Equal(t, WarningOverdraft, f.WarningLevel)
	assert.Contains(t, f.WarningMessage, "Overdraft in use")
	assert.Contains(t, f.WarningMessage, "-50.00 USD")
	assert.True(t, f.ConsumptionPercent.Equal(dec("20")), f.ConsumptionPercent.String())
	assert.Equal(t, int64(3), f.TotalOrders)
}

func TestCalculate_WarningPriority(t *testing.T) {
	calc := NewCalculator(language.English)

	tests := []struct {
		name      string
		budget    string
		overdraft string
		level     WarningLevel
		low       bool
		contains  string
	}{
		{"negative", "-1", "0", WarningOverdraft, true, "Overdraft in use"},
		{"zero", "0", "100", WarningExhausted, true, "Budget exhausted"},
		{"low", "10", "90", WarningLow, true, "10.0%"},
		{"exactly twenty percent", "20", "80", WarningNone, false, ""},
		{"healthy", "500", "100", WarningNone, false, ""},
		{"no overdraft", "1", "0", WarningNone, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := calc.Calculate(Input{Budget: dec(tt.budget), OverdraftLimit: dec(tt.overdraft)})
			assert.Equal(t, tt.level, f.WarningLevel)
			assert.Equal(t, tt.low, f.IsLowBudget)
			if tt.contains == "" {
				assert.Empty(t, f.WarningMessage)
			} else {
				assert.Contains(t, f.WarningMessage, tt.contains)
			}
		})
	}
}

func TestConsumptionPercent(t *testing.T) {
	tests := []struct {
		name      string
		forecast  string
		budget    string
		available string
		want      string
	}{
		{"against budget", "250", "1000", "1200", "25"},
		{"rounds to one decimal", "1", "3", "3", "33.3"},
		{"rounds half up", "1", "16", "16", "6.3"},
		{"zero budget uses available", "50", "0", "200", "25"},
		{"negative budget uses available", "30", "-50", "150", "20"},
		{"nothing available", "30", "0", "0", "0"},
		{"negative available", "30", "-300", "-100", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConsumptionPercent(dec(tt.forecast), dec(tt.budget), dec(tt.available))
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestCompareDays(t *testing.T) {
	assert.True(t, CompareDays(12, 10).ChangePercent.Equal(dec("20")))
	assert.True(t, CompareDays(5, 10).ChangePercent.Equal(dec("-50")))
	assert.True(t, CompareDays(1, 3).ChangePercent.Equal(dec("-66.7")))
	assert.True(t, CompareDays(7, 0).ChangePercent.IsZero())
}
