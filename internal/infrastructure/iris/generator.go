package iris

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/iris-1099/internal/domain/filing"
	"github.com/tu-usuario/iris-1099/pkg/iris"
)

// Generator produce la transmisión XML IRIS A2A a partir de lotes en
// memoria. La traducción es determinista: mismo lote, mismo documento
// (salvo el UTID generado).
// El XML contiene PII; nunca se registra su contenido en logs.
type Generator struct {
	transmitter filing.TransmitterInfo
	vendor      *filing.VendorInfo
	softwareID  string
	isTest      bool
	isPriorYear bool
}

// GeneratorParams parámetros de construcción del generador.
type GeneratorParams struct {
	// Transmitter identidad del transmisor (el proveedor del software).
	Transmitter filing.TransmitterInfo
	// SoftwareID asignado por el IRS (10 alfanuméricos).
	SoftwareID string
	// Vendor información del vendedor del software; nil si es in-house.
	Vendor *filing.VendorInfo
	// IsTest true para envíos ATS, false para producción.
	IsTest bool
	// IsPriorYear true si la transmisión corresponde a un año fiscal previo.
	IsPriorYear bool
}

// NewGenerator construye un generador de transmisiones.
func NewGenerator(p GeneratorParams) *Generator {
	return &Generator{
		transmitter: p.Transmitter,
		vendor:      p.Vendor,
		softwareID:  p.SoftwareID,
		isTest:      p.IsTest,
		isPriorYear: p.IsPriorYear,
	}
}

// ── Helpers de construcción de elementos ──────────────────────────────────

// addElem agrega un hijo con texto opcional.
func addElem(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	if text != "" {
		el.SetText(text)
	}
	return el
}

// addAmount agrega el monto con 2 decimales solo si es positivo: en el
// esquema la ausencia significa "no aplica", nunca se emite "0.00" opcional.
func addAmount(parent *etree.Element, tag string, amount decimal.Decimal) {
	if amount.IsPositive() {
		addElem(parent, tag, iris.FormatAmount(amount))
	}
}

// addIndicator agrega un indicador booleano "1"/"0" (siempre presente).
func addIndicator(parent *etree.Element, tag string, value bool) {
	addElem(parent, tag, iris.FormatIndicator(value))
}

// truncate recorta al límite de caracteres del esquema.
func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

// formatPhone deja solo dígitos y exige al menos 10; devuelve vacío si no
// alcanza (el elemento se omite).
func formatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 {
		return ""
	}
	return digits[:10]
}

// ── Direcciones ───────────────────────────────────────────────────────────

func addUSAddress(parent *etree.Element, address1, address2, city, state, zip string) {
	grp := addElem(parent, "MailingAddressGrp", "")
	us := addElem(grp, "USAddress", "")
	addElem(us, "AddressLine1Txt", truncate(address1, 35))
	if address2 != "" {
		addElem(us, "AddressLine2Txt", truncate(address2, 35))
	}
	addElem(us, "CityNm", truncate(city, 40))
	addElem(us, "StateAbbreviationCd", strings.ToUpper(truncate(state, 2)))
	addElem(us, "ZIPCd", truncate(strings.ReplaceAll(zip, "-", ""), 9))
}

func addForeignAddress(parent *etree.Element, address1, address2, city, province, postal, country string) {
	grp := addElem(parent, "MailingAddressGrp", "")
	fa := addElem(grp, "ForeignAddress", "")
	addElem(fa, "AddressLine1Txt", truncate(address1, 35))
	if address2 != "" {
		addElem(fa, "AddressLine2Txt", truncate(address2, 35))
	}
	addElem(fa, "CityNm", truncate(city, 40))
	addElem(fa, "ProvinceOrStateNm", truncate(province, 35))
	addElem(fa, "ForeignPostalCd", truncate(postal, 16))
	if country == "" {
		country = "US"
	}
	addElem(fa, "CountryCd", strings.ToUpper(truncate(country, 2)))
}

// ── Grupos del manifiesto ─────────────────────────────────────────────────

func (g *Generator) buildTransmitterGroup(manifest *etree.Element) {
	t := g.transmitter
	grp := addElem(manifest, "TransmitterGrp", "")

	addElem(grp, "TIN", iris.FormatTIN(t.TIN))
	addElem(grp, "TINSubmittedTypeCd", iris.TINSubmittedTypeCode(t.TINType))
	addElem(grp, "TransmitterControlCd", strings.ToUpper(truncate(t.TCC, 5)))
	addIndicator(grp, "ForeignEntityInd", t.IsForeign)

	if t.Name != "" {
		addElem(grp, "PersonNm", truncate(t.Name, 35))
	}

	company := addElem(grp, "CompanyGrp", "")
	busName := addElem(company, "BusinessName", "")
	addElem(busName, "BusinessNameLine1Txt", truncate(t.BusinessName, 75))
	if t.BusinessName2 != "" {
		addElem(busName, "BusinessNameLine2Txt", truncate(t.BusinessName2, 75))
	}

	if t.Country == "US" || !t.IsForeign {
		addUSAddress(company, t.Address1, t.Address2, t.City, t.State, t.ZipCode)
	} else {
		addForeignAddress(company, t.Address1, t.Address2, t.City, t.State, t.ZipCode, t.Country)
	}

	contact := addElem(grp, "ContactNameGrp", "")
	contactName := t.ContactName
	if contactName == "" {
		contactName = t.Name
	}
	addElem(contact, "PersonNm", truncate(contactName, 35))

	if t.ContactEmail != "" {
		addElem(grp, "ContactEmailAddressTxt", truncate(t.ContactEmail, 50))
	}
	if phone := formatPhone(t.ContactPhone); phone != "" {
		addElem(grp, "ContactPhoneNum", phone)
	}
}

func (g *Generator) buildVendorGroup(manifest *etree.Element) {
	if g.vendor == nil {
		return
	}
	v := g.vendor
	grp := addElem(manifest, "VendorGrp", "")

	addIndicator(grp, "ForeignEntityInd", v.IsForeign)

	busName := addElem(grp, "BusinessName", "")
	addElem(busName, "BusinessNameLine1Txt", truncate(v.BusinessName, 75))
	if v.BusinessName2 != "" {
		addElem(busName, "BusinessNameLine2Txt", truncate(v.BusinessName2, 75))
	}

	if v.Country == "US" || !v.IsForeign {
		addUSAddress(grp, v.Address1, v.Address2, v.City, v.State, v.ZipCode)
	} else {
		addForeignAddress(grp, v.Address1, v.Address2, v.City, v.State, v.ZipCode, v.Country)
	}

	contact := addElem(grp, "ContactNameGrp", "")
	addElem(contact, "PersonNm", truncate(v.ContactName, 35))

	if v.ContactEmail != "" {
		addElem(grp, "ContactEmailAddressTxt", truncate(v.ContactEmail, 50))
	}
	if phone := formatPhone(v.ContactPhone); phone != "" {
		addElem(grp, "ContactPhoneNum", phone)
	}
}

// ── Emisor y beneficiario ─────────────────────────────────────────────────

func buildIssuerDetail(header *etree.Element, issuer *filing.IssuerInfo) {
	detail := addElem(header, "IssuerDetail", "")

	addIndicator(detail, "ForeignEntityInd", issuer.IsForeign)
	addElem(detail, "TIN", iris.FormatTIN(issuer.TIN))
	addElem(detail, "TINSubmittedTypeCd", iris.TINSubmittedTypeCode(issuer.TINType))

	if issuer.IsBusiness() {
		control := issuer.BusinessNameControl
		if control == "" {
			control = iris.DeriveNameControl(issuer.BusinessName, true)
		}
		addElem(detail, "BusinessNameControlTxt", control)
		busName := addElem(detail, "BusinessName", "")
		addElem(busName, "BusinessNameLine1Txt", truncate(issuer.BusinessName, 75))
		if issuer.BusinessName2 != "" {
			addElem(busName, "BusinessNameLine2Txt", truncate(issuer.BusinessName2, 75))
		}
	} else {
		control := issuer.PersonNameControl
		if control == "" {
			control = iris.DeriveNameControl(issuer.LastName, false)
		}
		addElem(detail, "PersonNameControlTxt", control)
		person := addElem(detail, "PersonName", "")
		if issuer.FirstName != "" {
			addElem(person, "PersonFirstNm", truncate(issuer.FirstName, 35))
		}
		if issuer.MiddleName != "" {
			addElem(person, "PersonMiddleNm", truncate(issuer.MiddleName, 35))
		}
		if issuer.LastName != "" {
			addElem(person, "PersonLastNm", truncate(issuer.LastName, 35))
		}
		if issuer.Suffix != "" {
			addElem(person, "SuffixNm", truncate(issuer.Suffix, 10))
		}
	}

	if issuer.Country == "US" || !issuer.IsForeign {
		addUSAddress(detail, issuer.Address1, issuer.Address2, issuer.City, issuer.State, issuer.ZipCode)
	} else {
		addForeignAddress(detail, issuer.Address1, issuer.Address2, issuer.City, issuer.State, issuer.ZipCode, issuer.Country)
	}

	if phone := formatPhone(issuer.Phone); phone != "" {
		addElem(detail, "PhoneNum", phone)
	}
}

func buildRecipientDetail(parent *etree.Element, r *filing.RecipientInfo) {
	detail := addElem(parent, "RecipientDetail", "")

	addElem(detail, "TIN", iris.FormatTIN(r.TIN))
	addElem(detail, "TINSubmittedTypeCd", iris.TINSubmittedTypeCode(r.TINType))

	if r.IsBusiness() {
		control := r.BusinessNameControl
		if control == "" {
			control = iris.DeriveNameControl(r.BusinessName, true)
		}
		addElem(detail, "BusinessNameControlTxt", control)
		busName := addElem(detail, "BusinessName", "")
		addElem(busName, "BusinessNameLine1Txt", truncate(r.BusinessName, 75))
		if r.BusinessName2 != "" {
			addElem(busName, "BusinessNameLine2Txt", truncate(r.BusinessName2, 75))
		}
	} else {
		control := r.PersonNameControl
		if control == "" {
			control = iris.DeriveNameControl(r.LastName, false)
		}
		addElem(detail, "PersonNameControlTxt", control)
		person := addElem(detail, "PersonName", "")
		if r.FirstName != "" {
			addElem(person, "PersonFirstNm", truncate(r.FirstName, 35))
		}
		if r.MiddleName != "" {
			addElem(person, "PersonMiddleNm", truncate(r.MiddleName, 35))
		}
		if r.LastName != "" {
			addElem(person, "PersonLastNm", truncate(r.LastName, 35))
		}
		if r.Suffix != "" {
			addElem(person, "SuffixNm", truncate(r.Suffix, 10))
		}
	}

	addUSAddress(detail, r.Address1, r.Address2, r.City, r.State, r.ZipCode)
}

// ── Submission por lote ───────────────────────────────────────────────────

func (g *Generator) buildSubmissionGroup(root *etree.Element, batch *filing.SubmissionBatch, submissionID string) error {
	grp := addElem(root, "IRSubmission1Grp", "")

	header := addElem(grp, "IRSubmission1Header", "")
	addElem(header, "SubmissionId", submissionID)
	addElem(header, "TaxYr", strconv.Itoa(batch.TaxYear))

	buildIssuerDetail(header, &batch.Issuer)

	if batch.Issuer.ContactName != "" || batch.Issuer.ContactPhone != "" {
		contact := addElem(header, "ContactPersonInformationGrp", "")
		if batch.Issuer.ContactName != "" {
			addElem(contact, "ContactPersonNm", truncate(batch.Issuer.ContactName, 35))
		}
		if phone := formatPhone(batch.Issuer.ContactPhone); phone != "" {
			addElem(contact, "ContactPhoneNum", phone)
		}
		if batch.Issuer.ContactEmail != "" {
			addElem(contact, "ContactEmailAddressTxt", truncate(batch.Issuer.ContactEmail, 50))
		}
	}

	addElem(header, "FormTypeCd", batch.FormType)
	addElem(header, "ParentFormTypeCd", "1096")
	addIndicator(header, "CFSFElectionInd", batch.CFSFElection)

	if batch.SignaturePIN != "" {
		sig := addElem(header, "JuratSignatureGrp", "")
		addElem(sig, "SignatureIntentInd", "1")
		addElem(sig, "JuratSignaturePIN", truncate(batch.SignaturePIN, 5))
		sigDate := batch.SignatureDate
		if sigDate.IsZero() {
			sigDate = time.Now()
		}
		addElem(sig, "SignatureDt", sigDate.Format("2006-01-02"))
		if batch.SignatureTitle != "" {
			addElem(sig, "JuratPersonTitleTxt", truncate(batch.SignatureTitle, 35))
		}
		if batch.SignerName != "" {
			addElem(sig, "PersonNm", truncate(batch.SignerName, 35))
		}
	}

	addElem(header, "TotalReportedRcpntFormCnt", strconv.Itoa(len(batch.Forms)))

	formTotals := addElem(header, "IRSubmission1FormTotals", "")
	if err := buildFormTotals(formTotals, batch); err != nil {
		return err
	}

	if len(batch.Forms) > 0 {
		detail := addElem(grp, "IRSubmission1Detail", "")
		for _, form := range batch.Forms {
			if err := buildFormDetail(detail, batch.FormType, form); err != nil {
				return err
			}
		}
	}

	return nil
}

// ── Transmisión completa ──────────────────────────────────────────────────

// GenerateUTID genera un Unique Transmission ID con formato
// {uuid}:IRIS:{TCC}::A. El sufijo de canal es SIEMPRE la literal "A" para
// A2A, sin importar test/producción: el ambiente se señala aparte con el
// elemento TestCd (T/P). La porción TCC debe coincidir con
// TransmitterControlCd o el IRS rechaza la transmisión.
func (g *Generator) GenerateUTID() string {
	tcc := strings.ToUpper(truncate(g.transmitter.TCC, 5))
	if tcc == "" {
		tcc = "XXXXX"
	}
	return fmt.Sprintf("%s:IRIS:%s::A", uuid.NewString(), tcc)
}

// Generate produce el documento XML completo de la transmisión: un
// IRTransmissionManifest seguido de un IRSubmission1Grp por lote.
// Si transmissionID es vacío se genera un UTID nuevo. El documento sale
// indentado y sin líneas en blanco.
func (g *Generator) Generate(batches []*filing.SubmissionBatch, taxYear int, transmissionID string) (string, error) {
	if transmissionID == "" {
		transmissionID = g.GenerateUTID()
	}

	totalIssuers := len(batches)
	totalRecipients := 0
	hasCorrections := false
	for _, batch := range batches {
		totalRecipients += len(batch.Forms)
		for _, form := range batch.Forms {
			if form.Corrected() {
				hasCorrections = true
			}
		}
	}
	// C si cualquier formulario de cualquier lote es corrección; O si no.
	transmissionType := "O"
	if hasCorrections {
		transmissionType = "C"
	}
	testCd := "P"
	if g.isTest {
		testCd = "T"
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("IRTransmission")
	root.CreateAttr("xmlns", iris.Namespace)
	root.CreateAttr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
	root.CreateAttr("xsi:schemaLocation", iris.SchemaLocation)

	manifest := addElem(root, "IRTransmissionManifest", "")
	addElem(manifest, "SchemaVersionNum", iris.SchemaVersion)
	addElem(manifest, "UniqueTransmissionId", transmissionID)
	addElem(manifest, "TaxYr", strconv.Itoa(taxYear))
	addIndicator(manifest, "PriorYearDataInd", g.isPriorYear)
	addElem(manifest, "TransmissionTypeCd", transmissionType)
	addElem(manifest, "TestCd", testCd)

	g.buildTransmitterGroup(manifest)

	// V=Vendor, I=In-house
	vendorCd := "I"
	if g.vendor != nil {
		vendorCd = "V"
	}
	addElem(manifest, "VendorCd", vendorCd)
	addElem(manifest, "SoftwareId", truncate(g.softwareID, 10))
	g.buildVendorGroup(manifest)

	addElem(manifest, "TotalIssuerFormCnt", strconv.Itoa(totalIssuers))
	addElem(manifest, "TotalRecipientFormCnt", strconv.Itoa(totalRecipients))
	addElem(manifest, "PaperSubmissionInd", "0")
	addElem(manifest, "MediaSourceCd", "M")
	addElem(manifest, "SubmissionChannelCd", iris.SubmissionChannelA2A)

	for i, batch := range batches {
		if err := g.buildSubmissionGroup(root, batch, strconv.Itoa(i+1)); err != nil {
			return "", err
		}
	}

	doc.IndentTabs()
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("no se pudo serializar la transmisión: %w", err)
	}
	return out, nil
}

// GenerateBytes variante en bytes (UTF-8) de Generate.
func (g *Generator) GenerateBytes(batches []*filing.SubmissionBatch, taxYear int, transmissionID string) ([]byte, error) {
	out, err := g.Generate(batches, taxYear, transmissionID)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}
