package codes

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFormattedSkuCode(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "9-0309-0", expected: "009-0309-0"},
		{input: "09-0309-0", expected: "009-0309-0"},
		{input: "009-0309-0", expected: "009-0309-0"},
		{input: "123-4567-8", expected: "123-4567-8"},
	}

	for _, row := range table {
		result, err := NormalizeFormattedSkuCode(row.input)
		require.NoError(t, err, row.input)
		require.Equal(t, row.expected, result)
	}
}

func TestNormalizeFormattedSkuCodeRejects(t *testing.T) {
	for _, input := range []string{
		"XX",
		"",
		"0009-0309-0",
		"-0309-0",
		"9-309-0",
		"123-4567-89",
		"1234567",
	} {
		_, err := NormalizeFormattedSkuCode(input)
		require.Error(t, err, input)
		require.True(t, errors.Is(err, ErrInvalidFormat), input)
	}
}

func TestSkuCodeFromFormatted(t *testing.T) {
	code, err := SkuCodeFromFormatted("009-0309-0")
	require.NoError(t, err)
	require.Equal(t, "0090309", code)

	code, err = SkuCodeFromFormatted("123-4567-8")
	require.NoError(t, err)
	require.Equal(t, "1234567", code)

	_, err = SkuCodeFromFormatted("9-0309-0")
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidateProductCode(t *testing.T) {
	require.NoError(t, ValidateProductCode("1234567P"))
	require.NoError(t, ValidateProductCode(ProductCodeFromSkuCode("0309090")))

	for _, input := range []string{"1234567", "1234567p", "123456P", "12345678P", "P1234567", ""} {
		require.ErrorIs(t, ValidateProductCode(input), ErrInvalidFormat, input)
	}
}

func TestValidateSkuCode(t *testing.T) {
	require.NoError(t, ValidateSkuCode("0309090"))
	require.ErrorIs(t, ValidateSkuCode("030-9090"), ErrInvalidFormat)
	require.ErrorIs(t, ValidateSkuCode("030909"), ErrInvalidFormat)
}
