// Package budget computes the read-side forecast and consumption figures shown on
// account dashboards. Everything here is pure; rounding happens only on the
// figures returned to callers.
package budget

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	hundred         = decimal.NewFromInt(100)
	lowBudgetRatio  = decimal.RequireFromString("0.2")
	percentDecimals = int32(1)
)

// WarningLevel classifies the budget warning
type WarningLevel string

const (
	WarningNone      WarningLevel = ""
	WarningOverdraft WarningLevel = "OVERDRAFT"
	WarningExhausted WarningLevel = "EXHAUSTED"
	WarningLow       WarningLevel = "LOW"
)

// Input is everything the calculator needs about one account
type Input struct {
	Budget         decimal.Decimal
	OverdraftLimit decimal.Decimal
	Currency       string
	ActiveTotal    decimal.Decimal // sum of prices of Active orders
	ActiveCount    int64
}

// Forecast is the calculator's output
type Forecast struct {
	Forecast           decimal.Decimal
	TotalOrders        int64
	Budget             decimal.Decimal
	OverdraftLimit     decimal.Decimal
	AvailableBudget    decimal.Decimal
	ConsumptionPercent decimal.Decimal
	RemainingPercent   decimal.Decimal
	IsLowBudget        bool
	WarningLevel       WarningLevel
	WarningMessage     string
}

// Calculator produces budget forecasts. The printer formats money in warnings.
type Calculator struct {
	printer *message.Printer
}

// NewCalculator creates a calculator formatting numbers for tag
func NewCalculator(tag language.Tag) *Calculator {
	return &Calculator{printer: message.NewPrinter(tag)}
}

// Calculate computes the forecast for one account
func (c *Calculator) Calculate(in Input) Forecast {
	available := in.Budget.Add(in.OverdraftLimit)

	f := Forecast{
		Forecast:           in.ActiveTotal,
		TotalOrders:        in.ActiveCount,
		Budget:             in.Budget,
		OverdraftLimit:     in.OverdraftLimit,
		AvailableBudget:    available,
		ConsumptionPercent: ConsumptionPercent(in.ActiveTotal, in.Budget, available),
		IsLowBudget:        IsLowBudget(in.Budget, available),
	}
	if available.IsPositive() && in.Budget.IsPositive() {
		f.RemainingPercent = in.Budget.Div(available).Mul(hundred).Round(percentDecimals)
	}
	f.WarningLevel = warningLevel(in.Budget, f.IsLowBudget)
	f.WarningMessage = c.warningMessage(f.WarningLevel, in.Budget, f.RemainingPercent, in.Currency)
	return f
}

// ConsumptionPercent is forecast over budget (or over available budget when the
// budget is not positive) as a percentage with one decimal. A non-positive
// denominator yields zero.
func ConsumptionPercent(forecast, budget, available decimal.Decimal) decimal.Decimal {
	denominator := available
	if budget.IsPositive() {
		denominator = budget
	}
	if !denominator.IsPositive() {
		return decimal.Zero
	}
	return forecast.Div(denominator).Mul(hundred).Round(percentDecimals)
}

// IsLowBudget is true when the budget is spent, or when less than 20% of the
// available budget remains
func IsLowBudget(budget, available decimal.Decimal) bool {
	if !budget.IsPositive() {
		return true
	}
	return available.IsPositive() && budget.Div(available).LessThan(lowBudgetRatio)
}

func warningLevel(budget decimal.Decimal, low bool) WarningLevel {
	switch {
	case budget.IsNegative():
		return WarningOverdraft
	case budget.IsZero():
		return WarningExhausted
	case low:
		return WarningLow
	default:
		return WarningNone
	}
}

func (c *Calculator) warningMessage(level WarningLevel, budget, remainingPercent decimal.Decimal, currency string) string {
	switch level {
	case WarningOverdraft:
		return c.printer.Sprintf("Overdraft in use: balance is %s", c.money(budget, currency))
	case WarningExhausted:
		return c.printer.Sprintf("Budget exhausted")
	case WarningLow:
		return c.printer.Sprintf("Low remaining balance: %v%% of available budget left",
			number.Decimal(remainingPercent.InexactFloat64(), number.Scale(1)))
	default:
		return ""
	}
}

func (c *Calculator) money(amount decimal.Decimal, currency string) string {
	formatted := c.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.Scale(2)))
	if currency == "" {
		return formatted
	}
	return formatted + " " + currency
}

// DayOverDay compares today's order count with yesterday's
type DayOverDay struct {
	Today         int64
	Yesterday     int64
	ChangePercent decimal.Decimal
}

// CompareDays computes the day-over-day change; it is zero when yesterday had no orders
func CompareDays(today, yesterday int64) DayOverDay {
	result := DayOverDay{Today: today, Yesterday: yesterday, ChangePercent: decimal.Zero}
	if yesterday == 0 {
		return result
	}
	diff := decimal.NewFromInt(today - yesterday)
	result.ChangePercent = diff.Div(decimal.NewFromInt(yesterday)).Mul(hundred).Round(percentDecimals)
	return result
}
