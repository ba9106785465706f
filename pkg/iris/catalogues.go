// Package iris contiene catálogos y utilidades alineados al esquema de
// transmisión del IRS IRIS (Information Returns Intake System), canal A2A,
// versión de esquema 2.0.3.
package iris

// =============================================================================
// Constantes del esquema de transmisión IRIS
// =============================================================================

const (
	// Namespace del esquema de transmisión.
	Namespace = "urn:us:gov:treasury:irs:ir"
	// SchemaVersion que viaja en SchemaVersionNum.
	SchemaVersion = "2.0.3"
	// SchemaLocation relativa usada en xsi:schemaLocation.
	SchemaLocation = Namespace + " ../MSG/IRS-IRIntakeTransmissionMessage.xsd"
	// SubmissionChannelA2A: canal aplicación-a-aplicación.
	SubmissionChannelA2A = "A2A"
)

// =============================================================================
// Tipos de formulario soportados (FormTypeCd del header de cada submission)
// =============================================================================

const (
	FormType1099NEC  = "1099NEC"
	FormType1099MISC = "1099MISC"
	FormType1099S    = "1099S"
	FormType1098     = "1098"
)

// ValidFormTypes tipos de formulario soportados por el generador.
var ValidFormTypes = map[string]bool{
	FormType1099NEC:  true,
	FormType1099MISC: true,
	FormType1099S:    true,
	FormType1098:     true,
}

// detailElements mapea el FormTypeCd declarado al nombre del elemento de
// detalle que debe aparecer en IRSubmission1Detail.
var detailElements = map[string]string{
	FormType1099NEC:  "Form1099NECDetail",
	FormType1099MISC: "Form1099MISCDetail",
	FormType1099S:    "Form1099SDetail",
	FormType1098:     "Form1098Detail",
}

// DetailElementFor devuelve el nombre del elemento de detalle esperado para
// un FormTypeCd; ok en false si el código no se reconoce.
func DetailElementFor(formTypeCd string) (string, bool) {
	name, ok := detailElements[formTypeCd]
	return name, ok
}

// =============================================================================
// Tipos de TIN (TINSubmittedTypeCd)
// =============================================================================

const (
	TINTypeEIN  = "EIN"
	TINTypeSSN  = "SSN"
	TINTypeITIN = "ITIN"
	TINTypeATIN = "ATIN"
)

// TINSubmittedTypeCode devuelve el valor de TINSubmittedTypeCd para un tipo
// de TIN: EIN corresponde a entidad, el resto a persona natural.
func TINSubmittedTypeCode(tinType string) string {
	if tinType == TINTypeEIN {
		return "BUSINESS_TIN"
	}
	return "INDIVIDUAL_TIN"
}

// =============================================================================
// Estados y territorios válidos (StateAbbreviationCd), incluyendo DC y los
// territorios (AS, GU, MP, PR, VI, FM, MH, PW).
// =============================================================================

// ValidStateCodes códigos de estado/territorio de 2 letras aceptados por IRIS.
var ValidStateCodes = map[string]bool{
	"AL": true, "AK": true, "AS": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "DC": true, "FL": true, "GA": true,
	"GU": true, "HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true, "MA": true,
	"MI": true, "MN": true, "MS": true, "MO": true, "MT": true, "NE": true,
	"NV": true, "NH": true, "NJ": true, "NM": true, "NY": true, "NC": true,
	"ND": true, "MP": true, "OH": true, "OK": true, "OR": true, "PA": true,
	"PR": true, "RI": true, "SC": true, "SD": true, "TN": true, "TX": true,
	"UT": true, "VT": true, "VA": true, "VI": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "FM": true, "MH": true, "PW": true,
}
