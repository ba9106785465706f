package iris

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/iris-1099/pkg/iris"
)

// Elementos obligatorios por sección. La comparación usa el nombre local del
// tag, de modo que documentos con prefijo (irs:TIN) y con namespace por
// defecto validan igual.
var (
	requiredManifestElements = []string{
		"SchemaVersionNum",
		"UniqueTransmissionId",
		"TaxYr",
		"PriorYearDataInd",
		"TransmissionTypeCd",
		"TestCd",
		"TransmitterGrp",
		"VendorCd",
		"SoftwareId",
		"TotalIssuerFormCnt",
		"TotalRecipientFormCnt",
		"PaperSubmissionInd",
		"MediaSourceCd",
		"SubmissionChannelCd",
	}

	requiredTransmitterElements = []string{
		"TIN",
		"TINSubmittedTypeCd",
		"TransmitterControlCd",
		"ForeignEntityInd",
	}

	requiredIssuerElements = []string{
		"ForeignEntityInd",
		"TIN",
		"TINSubmittedTypeCd",
		"MailingAddressGrp",
	}

	requiredHeaderElements = []string{
		"SubmissionId",
		"TaxYr",
		"IssuerDetail",
		"FormTypeCd",
		"ParentFormTypeCd",
		"CFSFElectionInd",
		"TotalReportedRcpntFormCnt",
	}

	// Montos reconocidos para la verificación de no-negatividad.
	amountElements = []string{
		"NonemployeeCompensationAmt",
		"FederalIncomeTaxWithheldAmt",
		"StateTaxWithheldAmt",
		"RentAmt",
		"RoyaltyAmt",
		"OtherIncomeAmt",
	}
)

// Validator valida una transmisión IRIS en dos pasadas siempre presentes
// (estructura y reglas de negocio) más una tercera opcional contra el XSD
// delegada en la estrategia SchemaValidator. Nunca muta el documento;
// todos los hallazgos se devuelven como datos.
type Validator struct {
	schema SchemaValidator
}

// NewValidator construye un validador; schema en nil degrada a la estrategia
// no-op (sin validación XSD).
func NewValidator(schema SchemaValidator) *Validator {
	if schema == nil {
		schema = NoopSchemaValidator{}
	}
	return &Validator{schema: schema}
}

// Validate ejecuta las pasadas y devuelve (is_valid, hallazgos).
// is_valid es true si y solo si no hay hallazgos con severidad error;
// los warnings nunca bloquean el envío.
func (v *Validator) Validate(xmlContent []byte) (bool, []ValidationError) {
	var errs []ValidationError

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlContent); err != nil {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("XML mal formado: %v", err),
			Severity: SeverityError,
		})
		return false, errs
	}

	root := doc.Root()
	if root == nil {
		errs = append(errs, ValidationError{
			Message:  "documento sin elemento raíz",
			Severity: SeverityError,
		})
		return false, errs
	}

	errs = append(errs, v.validateStructure(root)...)
	errs = append(errs, v.schema.Validate(xmlContent)...)
	errs = append(errs, v.validateBusinessRules(root)...)

	for _, e := range errs {
		if e.Severity == SeverityError {
			return false, errs
		}
	}
	return true, errs
}

// ── Pasada estructural ────────────────────────────────────────────────────

func (v *Validator) validateStructure(root *etree.Element) []ValidationError {
	var errs []ValidationError

	if root.Tag != "IRTransmission" {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("elemento raíz inválido: se esperaba 'IRTransmission', se encontró '%s'", root.Tag),
			Severity: SeverityError,
			Element:  "IRTransmission",
		})
		return errs
	}

	manifest := childByTag(root, "IRTransmissionManifest")
	if manifest == nil {
		errs = append(errs, ValidationError{
			Message:  "falta el elemento obligatorio IRTransmissionManifest",
			Severity: SeverityError,
			Element:  "IRTransmissionManifest",
		})
		return errs
	}

	for _, name := range requiredManifestElements {
		if childByTag(manifest, name) == nil {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("falta el elemento obligatorio del manifiesto: %s", name),
				Severity: SeverityError,
				Element:  name,
			})
		}
	}

	if transmitter := childByTag(manifest, "TransmitterGrp"); transmitter != nil {
		for _, name := range requiredTransmitterElements {
			if childByTag(transmitter, name) == nil {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("falta el elemento obligatorio del transmisor: %s", name),
					Severity: SeverityError,
					Element:  "TransmitterGrp/" + name,
				})
			}
		}
	}

	submissions := childrenByTag(root, "IRSubmission1Grp")
	if len(submissions) == 0 {
		errs = append(errs, ValidationError{
			Message:  "no se encontraron grupos de submission; se requiere al menos un IRSubmission1Grp",
			Severity: SeverityError,
			Element:  "IRSubmission1Grp",
		})
	}

	for _, sub := range submissions {
		errs = append(errs, v.validateSubmissionGroup(sub)...)
	}

	return errs
}

func (v *Validator) validateSubmissionGroup(sub *etree.Element) []ValidationError {
	var errs []ValidationError

	header := childByTag(sub, "IRSubmission1Header")
	if header == nil {
		errs = append(errs, ValidationError{
			Message:  "falta el elemento obligatorio IRSubmission1Header",
			Severity: SeverityError,
			Element:  "IRSubmission1Header",
		})
		return errs
	}

	for _, name := range requiredHeaderElements {
		if childByTag(header, name) == nil {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("falta el elemento obligatorio del header: %s", name),
				Severity: SeverityError,
				Element:  "IRSubmission1Header/" + name,
			})
		}
	}

	if issuer := childByTag(header, "IssuerDetail"); issuer != nil {
		for _, name := range requiredIssuerElements {
			if childByTag(issuer, name) == nil {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("falta el elemento obligatorio del emisor: %s", name),
					Severity: SeverityError,
					Element:  "IssuerDetail/" + name,
				})
			}
		}

		hasBusiness := childByTag(issuer, "BusinessName") != nil
		hasPerson := childByTag(issuer, "PersonName") != nil
		if !hasBusiness && !hasPerson {
			errs = append(errs, ValidationError{
				Message:  "el emisor debe tener BusinessName o PersonName",
				Severity: SeverityError,
				Element:  "IssuerDetail",
			})
		}
	}

	// El elemento de detalle declarado por FormTypeCd debe existir.
	formTypeElem := childByTag(header, "FormTypeCd")
	if formTypeElem != nil && formTypeElem.Text() != "" {
		formType := formTypeElem.Text()
		if detail := childByTag(sub, "IRSubmission1Detail"); detail != nil {
			if expected, ok := iris.DetailElementFor(formType); ok {
				if len(childrenByTag(detail, expected)) == 0 {
					errs = append(errs, ValidationError{
						Message:  fmt.Sprintf("FormTypeCd es %s pero no se encontraron elementos %s", formType, expected),
						Severity: SeverityError,
						Element:  "IRSubmission1Detail",
					})
				}
			}
		}
	}

	return errs
}

// ── Pasada de reglas de negocio ───────────────────────────────────────────

func (v *Validator) validateBusinessRules(root *etree.Element) []ValidationError {
	var errs []ValidationError

	manifest := childByTag(root, "IRTransmissionManifest")
	if manifest == nil {
		return errs
	}

	// Todo TIN debe ser exactamente 9 dígitos.
	for _, tinElem := range descendantsByTag(root, "TIN") {
		tin := strings.ReplaceAll(tinElem.Text(), "-", "")
		if len(tin) != 9 || !isAllDigits(tin) {
			errs = append(errs, ValidationError{
				Message:  "formato de TIN inválido: debe ser de 9 dígitos",
				Severity: SeverityError,
				Element:  "TIN",
			})
		}
	}

	// TCC de 5 alfanuméricos.
	for _, tccElem := range descendantsByTag(manifest, "TransmitterControlCd") {
		tcc := tccElem.Text()
		if len(tcc) != 5 || !isAlphanumeric(tcc) {
			errs = append(errs, ValidationError{
				Message:  "formato de TCC inválido: deben ser 5 caracteres alfanuméricos",
				Severity: SeverityError,
				Element:  "TransmitterControlCd",
			})
		}
		break
	}

	// TotalIssuerFormCnt debe coincidir con los grupos reales (error).
	if cntElem := childByTag(manifest, "TotalIssuerFormCnt"); cntElem != nil && cntElem.Text() != "" {
		declared, err := strconv.Atoi(cntElem.Text())
		actual := len(childrenByTag(root, "IRSubmission1Grp"))
		if err == nil && declared != actual {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("TotalIssuerFormCnt (%d) no coincide con los grupos de submission reales (%d)", declared, actual),
				Severity: SeverityError,
				Element:  "TotalIssuerFormCnt",
			})
		}
	}

	// TotalRecipientFormCnt debería coincidir con los detalles (warning:
	// el nombre del elemento de detalle varía por tipo de formulario).
	if cntElem := childByTag(manifest, "TotalRecipientFormCnt"); cntElem != nil && cntElem.Text() != "" {
		declared, err := strconv.Atoi(cntElem.Text())
		actual := 0
		for _, detail := range descendantsByTag(root, "IRSubmission1Detail") {
			for _, child := range detail.ChildElements() {
				if strings.Contains(child.Tag, "Detail") {
					actual++
				}
			}
		}
		if err == nil && declared != actual {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("TotalRecipientFormCnt (%d) no coincide con los formularios reales (%d)", declared, actual),
				Severity: SeverityWarning,
				Element:  "TotalRecipientFormCnt",
			})
		}
	}

	// Códigos de estado válidos.
	for _, stateElem := range descendantsByTag(root, "StateAbbreviationCd") {
		code := strings.ToUpper(stateElem.Text())
		if code != "" && !iris.ValidStateCodes[code] {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("código de estado inválido: %s", stateElem.Text()),
				Severity: SeverityError,
				Element:  "StateAbbreviationCd",
			})
		}
	}

	// ZIP de 5 o 5+4 dígitos.
	for _, zipElem := range descendantsByTag(root, "ZIPCd") {
		zip := strings.ReplaceAll(zipElem.Text(), "-", "")
		if zip != "" && !iris.ValidZIP(zip) {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("formato de código postal inválido: %s", zipElem.Text()),
				Severity: SeverityError,
				Element:  "ZIPCd",
			})
		}
	}

	// Montos reconocidos no negativos.
	for _, name := range amountElements {
		for _, amtElem := range descendantsByTag(root, name) {
			text := amtElem.Text()
			if text == "" {
				continue
			}
			value, err := decimal.NewFromString(text)
			if err != nil {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("formato de monto inválido en %s: %s", name, text),
					Severity: SeverityError,
					Element:  name,
				})
				continue
			}
			if value.IsNegative() {
				errs = append(errs, ValidationError{
					Message:  fmt.Sprintf("%s no puede ser negativo: %s", name, text),
					Severity: SeverityError,
					Element:  name,
				})
			}
		}
	}

	return errs
}

// ── Navegación por nombre local ───────────────────────────────────────────

func childByTag(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

func childrenByTag(parent *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			out = append(out, child)
		}
	}
	return out
}

func descendantsByTag(root *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.Tag == tag {
				out = append(out, child)
			}
			walk(child)
		}
	}
	walk(root)
	return out
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return s != ""
}
