package iris

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/iris-1099/internal/domain/filing"
)

func generateValidXML(t *testing.T) []byte {
	t.Helper()
	g := NewGenerator(GeneratorParams{
		Transmitter: testTransmitter(),
		SoftwareID:  "25SW001234",
		IsTest:      true,
	})
	out, err := g.GenerateBytes([]*filing.SubmissionBatch{necBatchGA()}, 2025, "")
	require.NoError(t, err)
	return out
}

func errorsOnly(findings []ValidationError) []ValidationError {
	var out []ValidationError
	for _, f := range findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

func TestValidate_TransmisionGeneradaEsValida(t *testing.T) {
	v := NewValidator(nil)

	valid, findings := v.Validate(generateValidXML(t))

	assert.True(t, valid, "una transmisión recién generada debe pasar la validación: %v", findings)
	assert.Empty(t, errorsOnly(findings), "no debe haber hallazgos de severidad error")
}

func TestValidate_XMLMalFormado(t *testing.T) {
	v := NewValidator(nil)

	valid, findings := v.Validate([]byte("<IRTransmission><sin-cierre>"))

	assert.False(t, valid)
	require.NotEmpty(t, findings)
	assert.Contains(t, findings[0].Message, "mal formado")
}

func TestValidate_RaizIncorrecta(t *testing.T) {
	v := NewValidator(nil)

	valid, findings := v.Validate([]byte(`<?xml version="1.0"?><Transmision/>`))

	assert.False(t, valid)
	require.Len(t, findings, 1)
	assert.Equal(t, "IRTransmission", findings[0].Element)
}

func TestValidate_FaltaTotalRecipientFormCnt(t *testing.T) {
	xml := string(generateValidXML(t))
	// Quita el elemento completo del manifiesto.
	start := strings.Index(xml, "<TotalRecipientFormCnt>")
	end := strings.Index(xml, "</TotalRecipientFormCnt>") + len("</TotalRecipientFormCnt>")
	require.Greater(t, start, 0)
	mutated := xml[:start] + xml[end:]

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(mutated))

	assert.False(t, valid)
	errs := errorsOnly(findings)
	require.Len(t, errs, 1, "debe reportarse exactamente un error")
	assert.Equal(t, "TotalRecipientFormCnt", errs[0].Element)
}

func TestValidate_ConteoDeEmisoresNoCoincide(t *testing.T) {
	xml := strings.Replace(string(generateValidXML(t)),
		"<TotalIssuerFormCnt>1</TotalIssuerFormCnt>",
		"<TotalIssuerFormCnt>3</TotalIssuerFormCnt>", 1)

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.False(t, valid, "el conteo de emisores incorrecto es error")
	errs := errorsOnly(findings)
	require.Len(t, errs, 1)
	assert.Equal(t, "TotalIssuerFormCnt", errs[0].Element)
}

func TestValidate_ConteoDeFormulariosEsAdvertencia(t *testing.T) {
	xml := strings.Replace(string(generateValidXML(t)),
		"<TotalRecipientFormCnt>2</TotalRecipientFormCnt>",
		"<TotalRecipientFormCnt>5</TotalRecipientFormCnt>", 1)

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.True(t, valid, "el conteo de formularios es advertencia, no bloquea")
	require.Len(t, findings, 1)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Equal(t, "TotalRecipientFormCnt", findings[0].Element)
}

func TestValidate_TINInvalido(t *testing.T) {
	xml := strings.Replace(string(generateValidXML(t)),
		"<TIN>111223333</TIN>", "<TIN>12345</TIN>", 1)

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.False(t, valid)
	errs := errorsOnly(findings)
	require.Len(t, errs, 1)
	assert.Equal(t, "TIN", errs[0].Element)
}

func TestValidate_TCCInvalido(t *testing.T) {
	xml := strings.Replace(string(generateValidXML(t)),
		"<TransmitterControlCd>AB123</TransmitterControlCd>",
		"<TransmitterControlCd>AB-12</TransmitterControlCd>", 1)

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.False(t, valid)
	errs := errorsOnly(findings)
	require.Len(t, errs, 1)
	assert.Equal(t, "TransmitterControlCd", errs[0].Element)
}

func TestValidate_EstadoInvalido(t *testing.T) {
	xml := strings.ReplaceAll(string(generateValidXML(t)),
		"<StateAbbreviationCd>GA</StateAbbreviationCd>",
		"<StateAbbreviationCd>ZZ</StateAbbreviationCd>")

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.False(t, valid)
	require.NotEmpty(t, errorsOnly(findings))
	assert.Equal(t, "StateAbbreviationCd", errorsOnly(findings)[0].Element)
}

func TestValidate_CodigoPostalInvalido(t *testing.T) {
	xml := strings.Replace(string(generateValidXML(t)),
		"<ZIPCd>31401</ZIPCd>", "<ZIPCd>314</ZIPCd>", 1)

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.False(t, valid)
	errs := errorsOnly(findings)
	require.Len(t, errs, 1)
	assert.Equal(t, "ZIPCd", errs[0].Element)
}

func TestValidate_MontoNegativo(t *testing.T) {
	xml := strings.Replace(string(generateValidXML(t)),
		"<NonemployeeCompensationAmt>500.00</NonemployeeCompensationAmt>",
		"<NonemployeeCompensationAmt>-500.00</NonemployeeCompensationAmt>", 1)

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.False(t, valid)
	errs := errorsOnly(findings)
	require.Len(t, errs, 1)
	assert.Equal(t, "NonemployeeCompensationAmt", errs[0].Element)
	assert.Contains(t, errs[0].Message, "negativo")
}

func TestValidate_DetalleNoCoincideConFormTypeCd(t *testing.T) {
	xml := strings.ReplaceAll(string(generateValidXML(t)),
		"Form1099NECDetail", "Form1099MISCDetail")

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.False(t, valid)
	var matched bool
	for _, f := range errorsOnly(findings) {
		if strings.Contains(f.Message, "Form1099NECDetail") {
			matched = true
		}
	}
	assert.True(t, matched, "debe señalarse que el detalle declarado por FormTypeCd no aparece")
}

func TestValidate_DocumentoConPrefijo(t *testing.T) {
	// La validación compara nombres locales: un documento con prefijo de
	// namespace valida igual que uno con namespace por defecto.
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<irs:IRTransmission xmlns:irs="urn:us:gov:treasury:irs:ir">
  <irs:IRTransmissionManifest>
    <irs:SchemaVersionNum>2.0.3</irs:SchemaVersionNum>
  </irs:IRTransmissionManifest>
</irs:IRTransmission>`

	v := NewValidator(nil)
	valid, findings := v.Validate([]byte(xml))

	assert.False(t, valid, "faltan elementos obligatorios")
	for _, f := range findings {
		assert.NotEqual(t, "IRTransmission", f.Element,
			"la raíz con prefijo debe reconocerse por su nombre local")
		assert.NotEqual(t, "SchemaVersionNum", f.Element,
			"SchemaVersionNum con prefijo debe reconocerse por su nombre local")
	}
}

// estrategia de esquema que siempre reporta un hallazgo fijo.
type stubSchemaValidator struct{ findings []ValidationError }

func (s stubSchemaValidator) Validate([]byte) []ValidationError { return s.findings }

func TestValidate_EstrategiaDeEsquemaSeIncluye(t *testing.T) {
	v := NewValidator(stubSchemaValidator{findings: []ValidationError{{
		Message:  "cvc-pattern-valid: Value 'x' is not facet-valid",
		Severity: SeverityError,
		Element:  "PersonFirstNm",
	}}})

	valid, findings := v.Validate(generateValidXML(t))

	assert.False(t, valid, "un error del XSD invalida la transmisión")
	var seen bool
	for _, f := range findings {
		if f.Element == "PersonFirstNm" {
			seen = true
		}
	}
	assert.True(t, seen, "los hallazgos del XSD se agregan a los de las otras pasadas")
}
