package iris

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTIN_EliminaSeparadores(t *testing.T) {
	got, err := NormalizeTIN("123-45-6789")
	require.NoError(t, err)
	assert.Equal(t, "123456789", got)
}

func TestNormalizeTIN_FallaConMenosDe9Digitos(t *testing.T) {
	_, err := NormalizeTIN("12345")
	require.Error(t, err, "un TIN de 5 dígitos debe rechazarse")
	assert.Contains(t, err.Error(), "9 dígitos")
}

func TestNormalizeTIN_FallaConMasDe9Digitos(t *testing.T) {
	_, err := NormalizeTIN("1234567890")
	require.Error(t, err)
}

func TestFormatTIN_RellenaConCeros(t *testing.T) {
	assert.Equal(t, "001234567", FormatTIN("1234567"))
	assert.Equal(t, "123456789", FormatTIN("123-45-6789"))
}

func TestValidZIP(t *testing.T) {
	assert.True(t, ValidZIP("30301"))
	assert.True(t, ValidZIP("303011234"))
	assert.False(t, ValidZIP("3030"), "4 dígitos no es un ZIP válido")
	assert.False(t, ValidZIP("30301-1234"), "el guión no forma parte del formato del esquema")
	assert.False(t, ValidZIP("ABCDE"))
}

func TestFormatAmount_DosDecimales(t *testing.T) {
	assert.Equal(t, "2000.00", FormatAmount(decimal.NewFromInt(2000)))
	assert.Equal(t, "50.50", FormatAmount(decimal.RequireFromString("50.5")))
	assert.Equal(t, "0.13", FormatAmount(decimal.RequireFromString("0.125")))
}

func TestFormatIndicator(t *testing.T) {
	assert.Equal(t, "1", FormatIndicator(true))
	assert.Equal(t, "0", FormatIndicator(false))
}
