package math

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoValues is returned when a calculation receives an empty set
	ErrNoValues = errors.New("no values received")
	// ErrZeroValue is returned when a divisor would be zero
	ErrZeroValue = errors.New("cannot calculate with zero value")

	errNegativeValue = errors.New("cannot calculate with negative value")
)

// DecimalPercentageChange returns the fractional change between two values,
// ie 100 -> 110 is 0.1
func DecimalPercentageChange(from, to decimal.Decimal) (decimal.Decimal, error) {
	if from.IsZero() {
		return decimal.Zero, ErrZeroValue
	}
	return to.Sub(from).Div(from), nil
}

// DecimalArithmeticMean is the basic form of calculating an average.
// Divide the sum of all values by the length of values
func DecimalArithmeticMean(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) == 0 {
		return decimal.Zero, ErrNoValues
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values)))), nil
}

// DecimalSampleStandardDeviation measures the dispersion of a dataset
// relative to its mean using n-1 degrees of freedom
func DecimalSampleStandardDeviation(values []decimal.Decimal) (decimal.Decimal, error) {
	if len(values) <= 1 {
		return decimal.Zero, ErrNoValues
	}
	mean, err := DecimalArithmeticMean(values)
	if err != nil {
		return decimal.Zero, err
	}
	var combined decimal.Decimal
	for i := range values {
		diff := values[i].Sub(mean)
		combined = combined.Add(diff.Mul(diff))
	}
	variance := combined.Div(decimal.NewFromInt(int64(len(values) - 1)))
	return decimalSqrt(variance)
}

// DecimalSharpeRatio returns the sharpe ratio of a series of periodic returns
// compared to a risk-free rate expressed per period
func DecimalSharpeRatio(movementPerCandle []decimal.Decimal, riskFreeRate decimal.Decimal) (decimal.Decimal, error) {
	if len(movementPerCandle) <= 1 {
		return decimal.Zero, ErrNoValues
	}
	excess := make([]decimal.Decimal, len(movementPerCandle))
	for i := range movementPerCandle {
		excess[i] = movementPerCandle[i].Sub(riskFreeRate)
	}
	mean, err := DecimalArithmeticMean(excess)
	if err != nil {
		return decimal.Zero, err
	}
	stdDev, err := DecimalSampleStandardDeviation(excess)
	if err != nil {
		return decimal.Zero, err
	}
	if stdDev.IsZero() {
		return decimal.Zero, ErrZeroValue
	}
	return mean.Div(stdDev), nil
}

// DecimalSortinoRatio returns the sortino ratio of a series of periodic
// returns, penalising only downside deviation below the risk-free rate
func DecimalSortinoRatio(movementPerCandle []decimal.Decimal, riskFreeRate decimal.Decimal) (decimal.Decimal, error) {
	if len(movementPerCandle) == 0 {
		return decimal.Zero, ErrNoValues
	}
	mean, err := DecimalArithmeticMean(movementPerCandle)
	if err != nil {
		return decimal.Zero, err
	}
	var totalNegativeResultsSquared decimal.Decimal
	for i := range movementPerCandle {
		diff := movementPerCandle[i].Sub(riskFreeRate)
		if diff.IsNegative() {
			totalNegativeResultsSquared = totalNegativeResultsSquared.Add(diff.Mul(diff))
		}
	}
	downside, err := decimalSqrt(totalNegativeResultsSquared.Div(decimal.NewFromInt(int64(len(movementPerCandle)))))
	if err != nil {
		return decimal.Zero, err
	}
	if downside.IsZero() {
		return decimal.Zero, ErrZeroValue
	}
	return mean.Sub(riskFreeRate).Div(downside), nil
}

// DecimalCompoundAnnualGrowthRate calculates CAGR as a fraction.
// Using days, intervals per year would be 365 and number of intervals would be
// the number of days
func DecimalCompoundAnnualGrowthRate(openValue, closeValue, intervalsPerYear, numberOfIntervals decimal.Decimal) (decimal.Decimal, error) {
	if openValue.IsZero() || numberOfIntervals.IsZero() {
		return decimal.Zero, ErrZeroValue
	}
	ratio := closeValue.Div(openValue).InexactFloat64()
	if ratio < 0 {
		return decimal.Zero, errNegativeValue
	}
	k := math.Pow(ratio, intervalsPerYear.Div(numberOfIntervals).InexactFloat64()) - 1
	if math.IsInf(k, 0) || math.IsNaN(k) {
		return decimal.Zero, ErrZeroValue
	}
	return decimal.NewFromFloat(k), nil
}

func decimalSqrt(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, errNegativeValue
	}
	return decimal.NewFromFloat(math.Sqrt(d.InexactFloat64())), nil
}
