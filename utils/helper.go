package utils

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

// ValidatePhoneNumber parses and validates a phone number against a
// region (e.g. "IN"). Blank numbers are allowed; callers decide whether
// the field is required.
func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	if phoneNumber == "" {
		return nil
	}
	num, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return errors.New("invalid phone number")
	}
	if !libphonenumber.IsValidNumber(num) {
		return errors.New("invalid phone number")
	}
	return nil
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	if len(defaults) > 0 {
		return defaults[0]
	}
	var zero T
	return zero
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// RoundMoney rounds a currency amount to 2 decimal places, half up.
// All persisted money amounts go through this exactly once.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

func ParseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

// TruncateToDate drops the time-of-day component in UTC.
func TruncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths advances a due date by whole months, preserving the
// day-of-month the way EMI schedules expect (time.AddDate semantics:
// Jan 31 + 1 month normalizes to Mar 2/3, which matches the legacy
// schedule generator).
func AddMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}
