package iris

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Translator convierte los mensajes crípticos del validador XSD (cvc-*)
// en mensajes accionables para el usuario final, con el campo del
// formulario a resaltar. Los mensajes al usuario van en inglés: son los
// que el preparador del formulario ve en pantalla.
type Translator struct{}

// NewTranslator construye el traductor de errores.
func NewTranslator() *Translator {
	return &Translator{}
}

// fieldNames nombre amigable por elemento XML.
var fieldNames = map[string]string{
	// Nombres de persona
	"PersonFirstNm":        "First Name",
	"PersonMiddleNm":       "Middle Name",
	"PersonLastNm":         "Last Name",
	"SuffixNm":             "Name Suffix",
	"PersonNameControlTxt": "Name Control",

	// Nombres de negocio
	"BusinessNameLine1Txt":   "Business Name (Line 1)",
	"BusinessNameLine2Txt":   "Business Name (Line 2)",
	"BusinessNameControlTxt": "Business Name Control",

	// Dirección
	"AddressLine1Txt":     "Street Address (Line 1)",
	"AddressLine2Txt":     "Street Address (Line 2)",
	"CityNm":              "City",
	"StateAbbreviationCd": "State",
	"ZIPCd":               "ZIP Code",

	// TIN
	"SSN": "Social Security Number",
	"EIN": "Employer Identification Number",
	"TIN": "Taxpayer Identification Number",

	// Montos
	"NonemployeeCompensationAmt":  "Box 1 - Nonemployee Compensation",
	"FederalIncomeTaxWithheldAmt": "Federal Income Tax Withheld",
	"RentAmt":                     "Box 1 - Rents",
	"RoyaltyAmt":                  "Box 2 - Royalties",
	"OtherIncomeAmt":              "Box 3 - Other Income",
}

// formFieldMapping identificador del campo del formulario a resaltar en la
// interfaz por elemento XML; vacío cuando no hay campo asociado.
var formFieldMapping = map[string]string{
	"PersonFirstNm":        "name",
	"PersonMiddleNm":       "name",
	"PersonLastNm":         "name",
	"BusinessNameLine1Txt": "name",
	"BusinessNameLine2Txt": "name_line_2",
	"AddressLine1Txt":      "address1",
	"AddressLine2Txt":      "address2",
	"CityNm":               "city",
	"StateAbbreviationCd":  "state",
	"ZIPCd":                "zip",
	"SSN":                  "tin",
	"EIN":                  "tin",
	"TIN":                  "tin",
}

// typeToField infiere el elemento a partir del nombre del tipo del esquema
// cuando el mensaje no trae el elemento explícito.
var typeToField = map[string]string{
	"PersonFirstNameType":   "PersonFirstNm",
	"PersonMiddleNameType":  "PersonMiddleNm",
	"PersonLastNameType":    "PersonLastNm",
	"BusinessNameLine1Type": "BusinessNameLine1Txt",
	"BusinessNameLine2Type": "BusinessNameLine2Txt",
}

// Los patrones se evalúan en orden; gana el primero que haga match.
var (
	rePatternValid = regexp.MustCompile(`(?i)cvc-pattern-valid: Value '(.+?)' is not facet-valid with respect to pattern '(.+?)' for type '(.+?)'`)
	reTypeInvalid  = regexp.MustCompile(`(?i)cvc-type\.3\.1\.3: The value '(.+?)' of element '(.+?)' is not valid`)
	reMaxLength    = regexp.MustCompile(`(?i)cvc-maxLength-valid: Value '(.+?)' with length = '(\d+)' is not facet-valid with respect to maxLength '(\d+)' for type '(.+?)'`)
	reMinLength    = regexp.MustCompile(`(?i)cvc-minLength-valid: Value '(.+?)' with length = '(\d+)' is not facet-valid with respect to minLength '(\d+)' for type '(.+?)'`)
	reBadContent   = regexp.MustCompile(`(?i)cvc-complex-type\.2\.4\.a: Invalid content was found starting with element '(.+?)'`)
	reIncomplete   = regexp.MustCompile(`(?i)cvc-complex-type\.2\.4\.b: The content of element '(.+?)' is not complete`)
	reElementName  = regexp.MustCompile(`element '(.+?)'`)
)

type patternHandler struct {
	re      *regexp.Regexp
	handler func(t *Translator, groups []string, fullError string) TranslatedError
}

var errorPatterns = []patternHandler{
	{rePatternValid, (*Translator).translatePatternError},
	{reTypeInvalid, (*Translator).translateTypeError},
	{reMaxLength, (*Translator).translateMaxLengthError},
	{reMinLength, (*Translator).translateMinLengthError},
	{reBadContent, (*Translator).translateInvalidContent},
	{reIncomplete, (*Translator).translateIncompleteContent},
}

// Translate traduce un mensaje crudo del validador a su versión accionable.
func (t *Translator) Translate(errorMessage string, line, column int) TranslatedError {
	for _, p := range errorPatterns {
		if groups := p.re.FindStringSubmatch(errorMessage); groups != nil {
			out := p.handler(t, groups, errorMessage)
			out.OriginalError = errorMessage
			out.Line = line
			out.Column = column
			return out
		}
	}
	out := t.translateGeneric(errorMessage)
	out.OriginalError = errorMessage
	out.Line = line
	out.Column = column
	return out
}

// TranslateErrors traduce los hallazgos del validador preservando el orden.
func (t *Translator) TranslateErrors(findings []ValidationError) []TranslatedError {
	out := make([]TranslatedError, 0, len(findings))
	for _, f := range findings {
		translated := t.Translate(f.Message, f.Line, f.Column)
		if f.Severity != "" {
			translated.Severity = f.Severity
		}
		out = append(out, translated)
	}
	return out
}

// ── Traductores por patrón ────────────────────────────────────────────────

func (t *Translator) translatePatternError(groups []string, fullError string) TranslatedError {
	value, typeName := groups[1], groups[3]

	field := extractFieldFromContext(fullError, typeName)
	fieldName := friendlyName(field)

	// Caso especial: un '&' en el segundo nombre delata un nombre de negocio
	// capturado como persona natural.
	if strings.Contains(typeName, "MiddleNm") || strings.Contains(field, "MiddleNm") {
		if strings.Contains(value, "&") {
			return TranslatedError{
				Field:          "TIN Type",
				Message:        "Recipient name contains '&' which indicates a business entity.",
				Fix:            "Change TIN Type from SSN to EIN. Business names should use EIN, not SSN.",
				Severity:       SeverityError,
				HighlightField: "tin_type",
			}
		}
		return TranslatedError{
			Field:          "Middle Name",
			Message:        fmt.Sprintf("Middle name '%s' contains invalid characters.", value),
			Fix:            "Middle names can only contain letters (A-Z), hyphens, and spaces. Remove any numbers or special characters.",
			Severity:       SeverityError,
			HighlightField: "name",
		}
	}

	return TranslatedError{
		Field:          fieldName,
		Message:        fmt.Sprintf("%s contains invalid characters: '%s'", fieldName, value),
		Fix:            "Remove special characters. Allowed: letters, numbers, hyphens, spaces.",
		Severity:       SeverityError,
		HighlightField: formFieldMapping[field],
	}
}

func (t *Translator) translateTypeError(groups []string, _ string) TranslatedError {
	value, element := groups[1], groups[2]
	fieldName := friendlyName(element)

	// Suele ser eco de un error de patrón anterior sobre el mismo elemento.
	if strings.Contains(element, "MiddleNm") {
		return TranslatedError{
			Field:          "TIN Type",
			Message:        "Name parsing failed - appears to be a business entity.",
			Fix:            "Check TIN Type. If this is a business (LLC, Inc, Corp), change TIN Type to EIN.",
			Severity:       SeverityError,
			HighlightField: "tin_type",
		}
	}

	return TranslatedError{
		Field:          fieldName,
		Message:        fmt.Sprintf("%s value '%s' is invalid.", fieldName, value),
		Fix:            "Check the format and characters used in this field.",
		Severity:       SeverityError,
		HighlightField: formFieldMapping[element],
	}
}

func (t *Translator) translateMaxLengthError(groups []string, fullError string) TranslatedError {
	value := groups[1]
	actualLength, _ := strconv.Atoi(groups[2])
	maxLength, _ := strconv.Atoi(groups[3])
	typeName := groups[4]

	field := extractFieldFromContext(fullError, typeName)
	fieldName := friendlyName(field)

	// Un apellido de más de 25 caracteres casi siempre es un nombre de
	// negocio registrado con tipo de TIN equivocado.
	if (strings.Contains(typeName, "LastNm") || strings.Contains(field, "LastNm")) && actualLength > 25 {
		return TranslatedError{
			Field:          "TIN Type",
			Message:        fmt.Sprintf("Name '%s' is %d characters (max %d for individuals).", value, actualLength, maxLength),
			Fix:            fmt.Sprintf("This appears to be a business name. Change TIN Type to EIN so the full business name can be used (75 char limit instead of %d).", maxLength),
			Severity:       SeverityError,
			HighlightField: "tin_type",
		}
	}

	return TranslatedError{
		Field:          fieldName,
		Message:        fmt.Sprintf("%s is too long: %d characters (max %d).", fieldName, actualLength, maxLength),
		Fix:            fmt.Sprintf("Shorten to %d characters or less.", maxLength),
		Severity:       SeverityError,
		HighlightField: formFieldMapping[field],
	}
}

func (t *Translator) translateMinLengthError(groups []string, fullError string) TranslatedError {
	actualLength, _ := strconv.Atoi(groups[2])
	minLength, _ := strconv.Atoi(groups[3])
	typeName := groups[4]

	field := extractFieldFromContext(fullError, typeName)
	fieldName := friendlyName(field)

	return TranslatedError{
		Field:          fieldName,
		Message:        fmt.Sprintf("%s is too short: %d characters (min %d).", fieldName, actualLength, minLength),
		Fix:            fmt.Sprintf("Must be at least %d characters.", minLength),
		Severity:       SeverityError,
		HighlightField: formFieldMapping[field],
	}
}

func (t *Translator) translateInvalidContent(groups []string, _ string) TranslatedError {
	element := groups[1]
	fieldName := friendlyName(element)

	return TranslatedError{
		Field:          fieldName,
		Message:        fmt.Sprintf("Unexpected element: %s", element),
		Fix:            "This field may be in the wrong order or shouldn't be included.",
		Severity:       SeverityError,
		HighlightField: formFieldMapping[element],
	}
}

func (t *Translator) translateIncompleteContent(groups []string, _ string) TranslatedError {
	element := groups[1]
	fieldName := friendlyName(element)

	return TranslatedError{
		Field:          fieldName,
		Message:        fmt.Sprintf("Required field is missing in %s.", fieldName),
		Fix:            "Check that all required fields are filled in.",
		Severity:       SeverityError,
		HighlightField: formFieldMapping[element],
	}
}

func (t *Translator) translateGeneric(errorMessage string) TranslatedError {
	if groups := reElementName.FindStringSubmatch(errorMessage); groups != nil {
		element := groups[1]
		return TranslatedError{
			Field:          friendlyName(element),
			Message:        errorMessage,
			Fix:            "Review this field for format or content issues.",
			Severity:       SeverityError,
			HighlightField: formFieldMapping[element],
		}
	}

	return TranslatedError{
		Field:    "Unknown",
		Message:  errorMessage,
		Fix:      "Please review the form data.",
		Severity: SeverityError,
	}
}

// ── Auxiliares ────────────────────────────────────────────────────────────

func friendlyName(element string) string {
	if name, ok := fieldNames[element]; ok {
		return name
	}
	return element
}

// extractFieldFromContext saca el nombre del elemento del mensaje completo;
// si no aparece, lo infiere del nombre del tipo del esquema.
func extractFieldFromContext(fullError, typeName string) string {
	if groups := reElementName.FindStringSubmatch(fullError); groups != nil {
		return groups[1]
	}
	if field, ok := typeToField[typeName]; ok {
		return field
	}
	return typeName
}
