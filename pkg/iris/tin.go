package iris

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var zipPattern = regexp.MustCompile(`^\d{5}(\d{4})?$`)

// NormalizeTIN elimina todo carácter no numérico del TIN y valida que queden
// exactamente 9 dígitos. "123-45-6789" -> "123456789"; "12345" -> error.
func NormalizeTIN(tin string) (string, error) {
	var b strings.Builder
	for _, r := range tin {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 9 {
		return "", fmt.Errorf("iris: el TIN debe tener 9 dígitos, se encontraron %d", len(digits))
	}
	return digits, nil
}

// FormatTIN rinde el TIN como 9 dígitos sin separadores, rellenando con
// ceros a la izquierda si es corto.
func FormatTIN(tin string) string {
	var b strings.Builder
	for _, r := range tin {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 9 {
		digits = strings.Repeat("0", 9-len(digits)) + digits
	}
	return digits
}

// ValidZIP indica si el código postal tiene formato de 5 o 5+4 dígitos.
func ValidZIP(zip string) bool {
	return zipPattern.MatchString(zip)
}

// FormatAmount rinde un monto con exactamente 2 decimales ("2000.00").
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

// FormatIndicator rinde un booleano como indicador "1"/"0" del esquema.
func FormatIndicator(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
