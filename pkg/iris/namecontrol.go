package iris

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// businessArticles artículos iniciales que se descartan al derivar el
// name control de un negocio.
var businessArticles = []string{"THE ", "A ", "AN "}

// foldDiacritics descompone y elimina marcas diacríticas ("Muñoz" -> "Munoz")
// para que el name control quede en ASCII como exige el IRS.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DeriveNameControl deriva el name control de 4 caracteres a partir de un
// nombre: para personas naturales se pasa el apellido; para negocios el
// nombre comercial sin el artículo inicial. Toma los primeros 4 caracteres
// alfanuméricos en mayúsculas y rellena con "X".
func DeriveNameControl(name string, isBusiness bool) string {
	if name == "" {
		return "XXXX"
	}

	if isBusiness {
		upper := strings.ToUpper(name)
		for _, article := range businessArticles {
			if strings.HasPrefix(upper, article) {
				name = name[len(article):]
				break
			}
		}
	}

	if folded, _, err := transform.String(foldDiacritics, name); err == nil {
		name = folded
	}

	var b strings.Builder
	for _, r := range name {
		if b.Len() == 4 {
			break
		}
		if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}

	control := b.String()
	for len(control) < 4 {
		control += "X"
	}
	return control
}
