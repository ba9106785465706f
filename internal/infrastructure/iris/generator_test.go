package iris

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/iris-1099/internal/domain/filing"
)

func testTransmitter() filing.TransmitterInfo {
	return filing.TransmitterInfo{
		TIN:          "123456789",
		TINType:      "EIN",
		TCC:          "AB123",
		BusinessName: "Transmisora SA",
		Address1:     "100 Main St",
		City:         "Atlanta",
		State:        "GA",
		ZipCode:      "30301",
		Country:      "US",
		ContactName:  "Ana Gomez",
		ContactEmail: "ana@transmisora.com",
		ContactPhone: "(404) 555-1234",
	}
}

func testIssuer() filing.IssuerInfo {
	return filing.IssuerInfo{
		TIN:          "987654321",
		TINType:      "EIN",
		BusinessName: "Acme Pagos LLC",
		Address1:     "200 Peachtree St",
		City:         "Atlanta",
		State:        "GA",
		ZipCode:      "30303",
		Country:      "US",
	}
}

func testRecipient(tin, first, last string) filing.RecipientInfo {
	return filing.RecipientInfo{
		TIN:       tin,
		TINType:   "SSN",
		FirstName: first,
		LastName:  last,
		Address1:  "300 Oak Ave",
		City:      "Savannah",
		State:     "GA",
		ZipCode:   "31401",
	}
}

// necBatchGA: dos 1099-NEC, el segundo con retención estatal en Georgia.
func necBatchGA() *filing.SubmissionBatch {
	return &filing.SubmissionBatch{
		Issuer:   testIssuer(),
		FormType: "1099NEC",
		TaxYear:  2025,
		Forms: []filing.Form{
			&filing.Form1099NEC{
				RecordID:                "1",
				TaxYear:                 2025,
				Recipient:               testRecipient("111223333", "Juan", "Perez"),
				NonemployeeCompensation: decimal.NewFromInt(500),
			},
			&filing.Form1099NEC{
				RecordID:                "2",
				TaxYear:                 2025,
				Recipient:               testRecipient("444556666", "Maria", "Lopez"),
				NonemployeeCompensation: decimal.NewFromInt(1500),
				StateLocalTaxes: []filing.StateLocalTax{
					{
						StateCode:        "GA",
						StateTaxWithheld: decimal.NewFromInt(50),
						StateIncome:      decimal.NewFromInt(1500),
					},
				},
			},
		},
	}
}

func mustGenerate(t *testing.T, g *Generator, batches []*filing.SubmissionBatch) *etree.Document {
	t.Helper()
	out, err := g.Generate(batches, 2025, "")
	require.NoError(t, err, "la generación no debe fallar")

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out), "el documento generado debe ser XML bien formado")
	return doc
}

func findText(t *testing.T, root *etree.Element, path string) string {
	t.Helper()
	el := root
	for _, tag := range strings.Split(path, "/") {
		el = childByTag(el, tag)
		require.NotNilf(t, el, "debe existir el elemento %s en la ruta %s", tag, path)
	}
	return el.Text()
}

func TestGenerate_ManifiestoCompleto(t *testing.T) {
	g := NewGenerator(GeneratorParams{
		Transmitter: testTransmitter(),
		SoftwareID:  "25SW001234",
		IsTest:      true,
	})

	doc := mustGenerate(t, g, []*filing.SubmissionBatch{necBatchGA()})
	root := doc.Root()
	require.Equal(t, "IRTransmission", root.Tag)
	assert.Equal(t, "urn:us:gov:treasury:irs:ir", root.SelectAttrValue("xmlns", ""), "el namespace debe ser el del esquema")

	manifest := childByTag(root, "IRTransmissionManifest")
	require.NotNil(t, manifest)

	assert.Equal(t, "2.0.3", findText(t, root, "IRTransmissionManifest/SchemaVersionNum"))
	assert.Equal(t, "T", findText(t, root, "IRTransmissionManifest/TestCd"), "IsTest debe señalarse con TestCd T")
	assert.Equal(t, "O", findText(t, root, "IRTransmissionManifest/TransmissionTypeCd"), "sin correcciones el tipo es O")
	assert.Equal(t, "I", findText(t, root, "IRTransmissionManifest/VendorCd"), "sin vendor el código es I")
	assert.Equal(t, "1", findText(t, root, "IRTransmissionManifest/TotalIssuerFormCnt"))
	assert.Equal(t, "2", findText(t, root, "IRTransmissionManifest/TotalRecipientFormCnt"))
	assert.Equal(t, "0", findText(t, root, "IRTransmissionManifest/PaperSubmissionInd"))
	assert.Equal(t, "M", findText(t, root, "IRTransmissionManifest/MediaSourceCd"))
	assert.Equal(t, "A2A", findText(t, root, "IRTransmissionManifest/SubmissionChannelCd"))

	// Los elementos del manifiesto deben salir en el orden del esquema.
	var order []string
	for _, child := range manifest.ChildElements() {
		order = append(order, child.Tag)
	}
	assert.Equal(t, []string{
		"SchemaVersionNum", "UniqueTransmissionId", "TaxYr", "PriorYearDataInd",
		"TransmissionTypeCd", "TestCd", "TransmitterGrp", "VendorCd", "SoftwareId",
		"TotalIssuerFormCnt", "TotalRecipientFormCnt", "PaperSubmissionInd",
		"MediaSourceCd", "SubmissionChannelCd",
	}, order, "el orden del manifiesto debe ser estable")
}

func TestGenerateUTID_Formato(t *testing.T) {
	g := NewGenerator(GeneratorParams{Transmitter: testTransmitter(), SoftwareID: "25SW001234"})

	utid := g.GenerateUTID()
	parts := strings.Split(utid, ":")
	require.Len(t, parts, 5, "el UTID tiene 5 segmentos separados por dos puntos")
	assert.Len(t, parts[0], 36, "el primer segmento es un UUID")
	assert.Equal(t, "IRIS", parts[1])
	assert.Equal(t, "AB123", parts[2], "la porción TCC debe coincidir con el TransmitterControlCd")
	assert.Empty(t, parts[3])
	assert.Equal(t, "A", parts[4], "el sufijo de canal A2A es siempre A")
}

func TestGenerate_TotalesNECPorEstado(t *testing.T) {
	g := NewGenerator(GeneratorParams{
		Transmitter: testTransmitter(),
		SoftwareID:  "25SW001234",
		IsTest:      true,
	})

	doc := mustGenerate(t, g, []*filing.SubmissionBatch{necBatchGA()})
	root := doc.Root()

	header := childByTag(childByTag(root, "IRSubmission1Grp"), "IRSubmission1Header")
	require.NotNil(t, header)
	totals := childByTag(header, "IRSubmission1FormTotals")
	require.NotNil(t, totals)

	overall := childByTag(totals, "Form1099NECTotalAmtGrp")
	require.NotNil(t, overall)
	assert.Equal(t, "2000.00", childByTag(overall, "NonemployeeCompensationAmt").Text(),
		"el total general suma ambos formularios")
	assert.Nil(t, childByTag(overall, "FederalIncomeTaxWithheldAmt"),
		"la retención federal en cero se omite en el total general")

	states := childrenByTag(totals, "Form1099NECTotalByStateGrp")
	require.Len(t, states, 1, "solo Georgia tiene retención estatal")
	ga := states[0]
	assert.Equal(t, "GA", childByTag(ga, "StateAbbreviationCd").Text())
	assert.Equal(t, "1", childByTag(ga, "TotalReportedRcpntFormCnt").Text())
	assert.Equal(t, "1500.00", childByTag(ga, "NonemployeeCompensationAmt").Text(),
		"el total estatal solo incluye los formularios con entrada de ese estado")
	assert.Equal(t, "50.00", childByTag(ga, "StateTaxWithheldAmt").Text())
	assert.Equal(t, "0.00", childByTag(ga, "LocalTaxWithheldAmt").Text(),
		"los montos del grupo estatal se emiten siempre, incluso en cero")
}

func TestGenerate_DetalleNEC(t *testing.T) {
	g := NewGenerator(GeneratorParams{
		Transmitter: testTransmitter(),
		SoftwareID:  "25SW001234",
		IsTest:      true,
	})

	doc := mustGenerate(t, g, []*filing.SubmissionBatch{necBatchGA()})
	root := doc.Root()

	detail := childByTag(childByTag(root, "IRSubmission1Grp"), "IRSubmission1Detail")
	require.NotNil(t, detail)
	forms := childrenByTag(detail, "Form1099NECDetail")
	require.Len(t, forms, 2)

	first := forms[0]
	assert.Equal(t, "1", childByTag(first, "RecordId").Text())
	assert.Equal(t, "500.00", childByTag(first, "NonemployeeCompensationAmt").Text())
	assert.Equal(t, "0", childByTag(first, "VoidInd").Text())
	assert.Equal(t, "0", childByTag(first, "CorrectedInd").Text())
	assert.Nil(t, childByTag(first, "StateLocalTaxGrp"), "sin retención estatal no hay grupo estatal")

	recipient := childByTag(first, "RecipientDetail")
	require.NotNil(t, recipient)
	assert.Equal(t, "111223333", childByTag(recipient, "TIN").Text())
	assert.Equal(t, "INDIVIDUAL_TIN", childByTag(recipient, "TINSubmittedTypeCd").Text())
	assert.Equal(t, "PERE", childByTag(recipient, "PersonNameControlTxt").Text(),
		"sin name control explícito se deriva del apellido")

	second := forms[1]
	stGrp := childByTag(second, "StateLocalTaxGrp")
	require.NotNil(t, stGrp)
	assert.Equal(t, "GA", childByTag(stGrp, "StateAbbreviationCd").Text())
	stateTax := childByTag(stGrp, "StateTaxGrp")
	require.NotNil(t, stateTax)
	assert.Equal(t, "50.00", childByTag(stateTax, "StateTaxWithheldAmt").Text())
	assert.Equal(t, "0", childByTag(stateTax, "StateDistributionAmt").Text())
}

func TestGenerate_TipoCConCorrecciones(t *testing.T) {
	g := NewGenerator(GeneratorParams{
		Transmitter: testTransmitter(),
		SoftwareID:  "25SW001234",
	})

	batch := necBatchGA()
	batch.Forms[1].(*filing.Form1099NEC).IsCorrected = true
	batch.Forms[1].(*filing.Form1099NEC).OriginalRecordID = "utid-anterior|1|2"

	doc := mustGenerate(t, g, []*filing.SubmissionBatch{batch})
	root := doc.Root()

	assert.Equal(t, "C", findText(t, root, "IRTransmissionManifest/TransmissionTypeCd"),
		"cualquier corrección en cualquier lote marca la transmisión como C")
	assert.Equal(t, "P", findText(t, root, "IRTransmissionManifest/TestCd"))

	detail := childByTag(childByTag(root, "IRSubmission1Grp"), "IRSubmission1Detail")
	corrected := childrenByTag(detail, "Form1099NECDetail")[1]
	assert.Equal(t, "1", childByTag(corrected, "CorrectedInd").Text())
	prev := childByTag(corrected, "PrevSubmittedRecRecipientGrp")
	require.NotNil(t, prev)
	assert.Equal(t, "utid-anterior|1|2", childByTag(prev, "UniqueRecordId").Text())
}

func TestGenerate_VendorYFirma(t *testing.T) {
	g := NewGenerator(GeneratorParams{
		Transmitter: testTransmitter(),
		SoftwareID:  "25SW001234",
		Vendor: &filing.VendorInfo{
			BusinessName: "Vendor Soft Inc",
			Address1:     "1 Vendor Way",
			City:         "Austin",
			State:        "TX",
			ZipCode:      "78701",
			Country:      "US",
			ContactName:  "Pedro Ruiz",
		},
	})

	batch := necBatchGA()
	batch.SignaturePIN = "1234567" // se recorta a 5
	batch.SignatureTitle = "CFO"
	batch.SignerName = "Laura Diaz"

	doc := mustGenerate(t, g, []*filing.SubmissionBatch{batch})
	root := doc.Root()

	assert.Equal(t, "V", findText(t, root, "IRTransmissionManifest/VendorCd"))
	vendorGrp := childByTag(childByTag(root, "IRTransmissionManifest"), "VendorGrp")
	require.NotNil(t, vendorGrp)

	header := childByTag(childByTag(root, "IRSubmission1Grp"), "IRSubmission1Header")
	sig := childByTag(header, "JuratSignatureGrp")
	require.NotNil(t, sig)
	assert.Equal(t, "1", childByTag(sig, "SignatureIntentInd").Text())
	assert.Equal(t, "12345", childByTag(sig, "JuratSignaturePIN").Text(), "el PIN se recorta a 5 caracteres")
	assert.Equal(t, "CFO", childByTag(sig, "JuratPersonTitleTxt").Text())
}

func TestGenerate_MISCNoEmiteCasilla13(t *testing.T) {
	g := NewGenerator(GeneratorParams{Transmitter: testTransmitter(), SoftwareID: "25SW001234"})

	batch := &filing.SubmissionBatch{
		Issuer:   testIssuer(),
		FormType: "1099MISC",
		TaxYear:  2025,
		Forms: []filing.Form{
			&filing.Form1099MISC{
				RecordID:              "1",
				TaxYear:               2025,
				Recipient:             testRecipient("111223333", "Juan", "Perez"),
				Rents:                 decimal.NewFromInt(12000),
				ExcessGoldenParachute: decimal.NewFromInt(999),
			},
		},
	}

	out, err := g.Generate([]*filing.SubmissionBatch{batch}, 2025, "")
	require.NoError(t, err)
	assert.Contains(t, out, "RentAmt")
	assert.NotContains(t, out, "999", "la casilla 13 se conserva en memoria pero no se emite")
}

func TestGenerate_TipoConcretoIncorrecto(t *testing.T) {
	g := NewGenerator(GeneratorParams{Transmitter: testTransmitter(), SoftwareID: "25SW001234"})

	batch := &filing.SubmissionBatch{
		Issuer:   testIssuer(),
		FormType: "1099NEC",
		TaxYear:  2025,
		Forms: []filing.Form{
			&filing.Form1098{RecordID: "1", TaxYear: 2025, Recipient: testRecipient("111223333", "Juan", "Perez")},
		},
	}

	_, err := g.Generate([]*filing.SubmissionBatch{batch}, 2025, "")
	require.Error(t, err, "un tipo concreto que no coincide con FormTypeCd debe fallar")
}
