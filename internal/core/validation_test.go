package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-15", true},
		{"2023-12-31", true},
		{"2024-02-29", true}, // leap year
		{"2023-02-29", false},
		{"2024-13-01", false},
		{"2024-01-32", false},
		{"2024-00-10", false},
		{"not-a-date", false},
		{"2024/01/15", false},
		{"2024-1-15", false},
		{"2024-01-15T10:00:00", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, ValidateDate(tc.in), "%q", tc.in)
	}
}

func TestValidatePositiveNumber(t *testing.T) {
	for _, in := range []any{10, 0.1, "123.45", " 8 ", int64(3), float32(2.5)} {
		n, err := ValidatePositiveNumber(in, "Test")
		require.NoError(t, err, "%v", in)
		assert.Greater(t, n, 0.0)
	}

	cases := []struct {
		in      any
		message string
		target  error
	}{
		{0, "Test must be greater than 0", ErrNotPositive},
		{-10, "Test must be greater than 0", ErrNotPositive},
		{"-0.5", "Test must be greater than 0", ErrNotPositive},
		{"abc", "Test must be a valid number", ErrInvalidNumber},
		{"", "Test must be a valid number", ErrInvalidNumber},
		{nil, "Test must be a valid number", ErrInvalidNumber},
		{"NaN", "Test must be a valid number", ErrInvalidNumber},
		{"inf", "Test must be a valid number", ErrInvalidNumber},
		{"0x1p-2", "Test must be a valid number", ErrInvalidNumber},
		{" -0X10 ", "Test must be a valid number", ErrInvalidNumber},
		{"+0x1", "Test must be a valid number", ErrInvalidNumber},
		{[]int{1}, "Test must be a valid number", ErrInvalidNumber},
	}
	for _, tc := range cases {
		_, err := ValidatePositiveNumber(tc.in, "Test")
		require.Error(t, err, "%v", tc.in)
		assert.Equal(t, tc.message, err.Error())
		assert.True(t, errors.Is(err, tc.target), "%v should wrap %v", tc.in, tc.target)

		var fe *FieldError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "Test", fe.Field)
	}
}

func TestValidAppliance(t *testing.T) {
	assert.True(t, ValidAppliance("Air Conditioner"))
	assert.True(t, ValidAppliance("  TV "))
	assert.False(t, ValidAppliance(""))
	assert.False(t, ValidAppliance(" \t\n"))
}

func TestEntryInputValidate(t *testing.T) {
	valid := EntryInput{Date: NewDate(2024, 1, 15), Appliance: "AC", PowerWatts: 1500, HoursUsed: 8}
	require.NoError(t, valid.Validate())

	noDate := valid
	noDate.Date = Date{}
	assert.ErrorIs(t, noDate.Validate(), ErrInvalidDate)

	blank := valid
	blank.Appliance = "   "
	assert.ErrorIs(t, blank.Validate(), ErrEmptyAppliance)

	noPower := valid
	noPower.PowerWatts = 0
	assert.ErrorIs(t, noPower.Validate(), ErrNotPositive)

	noHours := valid
	noHours.HoursUsed = -1
	assert.ErrorIs(t, noHours.Validate(), ErrNotPositive)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())
	assert.Equal(t, 2, d.Month())
	assert.Equal(t, 2024, d.Year())

	_, err = ParseDate("2024-02-30")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
