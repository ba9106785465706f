// Package filing define los tipos de valor de un lote de formularios
// informativos (1099-NEC, 1099-MISC, 1099-S, 1098) listos para transmitir
// al IRS vía IRIS A2A. Son valores inmutables construidos por el llamador
// justo antes de generar/validar/enviar; este núcleo no los persiste.
package filing

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransmitterInfo identifica al transmisor (proveedor de software).
type TransmitterInfo struct {
	TIN           string // 9 dígitos
	TINType       string // EIN o SSN
	TCC           string // Transmitter Control Code (5 caracteres)
	Name          string // Nombre de persona de contacto
	BusinessName  string
	BusinessName2 string // DBA o segunda línea
	Address1      string
	Address2      string
	City          string
	State         string
	ZipCode       string
	Country       string
	ContactName   string
	ContactEmail  string
	ContactPhone  string // 10 dígitos sin formato
	IsForeign     bool
}

// VendorInfo identifica al proveedor del software (opcional en el manifiesto).
type VendorInfo struct {
	BusinessName  string
	BusinessName2 string
	Address1      string
	Address2      string
	City          string
	State         string
	ZipCode       string
	Country       string
	ContactName   string
	ContactEmail  string
	ContactPhone  string
	IsForeign     bool
}

// IssuerInfo es la entidad que emite los formularios (pagador).
// Invariante: exactamente uno de {BusinessName, LastName} está poblado.
type IssuerInfo struct {
	TIN       string // 9 dígitos
	TINType   string // EIN o SSN
	IsForeign bool
	// Negocio
	BusinessName        string
	BusinessName2       string
	BusinessNameControl string // name control de 4 caracteres
	// Persona natural
	FirstName         string
	MiddleName        string
	LastName          string
	Suffix            string
	PersonNameControl string
	// Dirección
	Address1 string
	Address2 string
	City     string
	State    string
	ZipCode  string
	Country  string
	Phone    string
	// Contacto
	ContactName  string
	ContactPhone string
	ContactEmail string
}

// IsBusiness indica si el emisor se identifica por nombre comercial.
func (i *IssuerInfo) IsBusiness() bool {
	return i.BusinessName != ""
}

// RecipientInfo es el beneficiario (payee) de un formulario.
// Misma exclusividad negocio/persona que IssuerInfo.
type RecipientInfo struct {
	TIN     string // 9 dígitos
	TINType string // SSN, EIN, ITIN o ATIN
	// Persona natural
	FirstName         string
	MiddleName        string
	LastName          string
	Suffix            string
	PersonNameControl string
	// Negocio
	BusinessName        string
	BusinessName2       string
	BusinessNameControl string
	// Dirección
	Address1 string
	Address2 string
	City     string
	State    string
	ZipCode  string
	Country  string
	// Opcional
	AccountNumber string
}

// IsBusiness indica si el beneficiario se identifica por nombre comercial.
func (r *RecipientInfo) IsBusiness() bool {
	return r.BusinessName != ""
}

// StateLocalTax retenciones e ingresos estatales/locales de un formulario.
// Un formulario puede llevar cero, una o dos entradas.
type StateLocalTax struct {
	StateCode        string // código de estado de 2 letras
	StateIDNumber    string // número de cuenta/ID estatal
	StateTaxWithheld decimal.Decimal
	StateIncome      decimal.Decimal
	LocalTaxWithheld decimal.Decimal
	LocalIncome      decimal.Decimal
	LocalityName     string
}

// Form1099NEC datos de un formulario 1099-NEC (Nonemployee Compensation).
type Form1099NEC struct {
	RecordID  string // único dentro de la submission
	TaxYear   int
	Recipient RecipientInfo
	// Casillas
	NonemployeeCompensation decimal.Decimal // Casilla 1
	DirectSalesIndicator    bool            // Casilla 2
	FederalTaxWithheld      decimal.Decimal // Casilla 4
	// Estatales/locales (hasta 2 estados)
	StateLocalTaxes []StateLocalTax
	// Banderas
	IsVoid          bool
	IsCorrected     bool
	SecondTINNotice bool
	// Correcciones
	OriginalRecordID string
	// Estados con elección CFSF
	CFSFStates []string
}

// Form1099MISC datos de un formulario 1099-MISC (Miscellaneous Information).
type Form1099MISC struct {
	RecordID  string
	TaxYear   int
	Recipient RecipientInfo
	// Casillas
	Rents                     decimal.Decimal // Casilla 1
	Royalties                 decimal.Decimal // Casilla 2
	OtherIncome               decimal.Decimal // Casilla 3
	FederalTaxWithheld        decimal.Decimal // Casilla 4
	FishingBoatProceeds       decimal.Decimal // Casilla 5
	MedicalHealthcarePayments decimal.Decimal // Casilla 6
	DirectSalesIndicator      bool            // Casilla 7
	SubstitutePayments        decimal.Decimal // Casilla 8
	CropInsuranceProceeds     decimal.Decimal // Casilla 9
	GrossProceedsAttorney     decimal.Decimal // Casilla 10
	FishPurchasedResale       decimal.Decimal // Casilla 11
	Section409ADeferrals      decimal.Decimal // Casilla 12
	ExcessGoldenParachute     decimal.Decimal // Casilla 13
	NonqualifiedDeferredComp  decimal.Decimal // Casilla 14
	// Estatales/locales
	StateLocalTaxes []StateLocalTax
	// Banderas
	IsVoid                 bool
	IsCorrected            bool
	SecondTINNotice        bool
	FATCAFilingRequirement bool
	OriginalRecordID       string
	CFSFStates             []string
}

// Form1099S datos de un formulario 1099-S (Proceeds from Real Estate
// Transactions).
type Form1099S struct {
	RecordID  string
	TaxYear   int
	Recipient RecipientInfo // transferor
	// Casillas
	ClosingDate                     time.Time       // Casilla 1
	GrossProceeds                   decimal.Decimal // Casilla 2
	AddressOrLegalDesc              string          // Casilla 3
	TransferorReceivedConsideration bool            // Casilla 4
	TransferorIsForeignPerson       bool            // Casilla 5
	BuyersRealEstateTax             decimal.Decimal // Casilla 6
	// Banderas
	IsVoid           bool
	IsCorrected      bool
	OriginalRecordID string
}

// Form1098 datos de un formulario 1098 (Mortgage Interest Statement).
type Form1098 struct {
	RecordID  string
	TaxYear   int
	Recipient RecipientInfo // pagador/prestatario
	// Casillas
	MortgageInterestReceived      decimal.Decimal // Casilla 1
	OutstandingMortgagePrincipal  decimal.Decimal // Casilla 2
	MortgageOriginationDate       time.Time       // Casilla 3
	RefundOfOverpaidInterest      decimal.Decimal // Casilla 4
	MortgageInsurancePremiums     decimal.Decimal // Casilla 5
	PointsPaidOnPurchase          decimal.Decimal // Casilla 6
	PropertyAddressSameAsBorrower bool            // Casilla 7
	PropertyAddress               string          // Casilla 8
	PropertiesSecuringMortgage    int             // Casilla 9
	OtherInfo                     string          // Casilla 10
	MortgageAcquisitionDate       time.Time       // Casilla 11
	// Banderas
	IsVoid           bool
	IsCorrected      bool
	OriginalRecordID string
}

// Form abstrae los cuatro tipos de formulario para el generador y la
// validación de lote.
type Form interface {
	// ID devuelve el record id, único dentro de la submission.
	ID() string
	// Year devuelve el año fiscal del formulario.
	Year() int
	// Corrected indica si el formulario corrige a uno previamente enviado.
	Corrected() bool
	// Payee devuelve el beneficiario del formulario.
	Payee() *RecipientInfo
	// Amounts devuelve los montos de casilla para verificación de no-negatividad.
	Amounts() []decimal.Decimal
}

func (f *Form1099NEC) ID() string            { return f.RecordID }
func (f *Form1099NEC) Year() int             { return f.TaxYear }
func (f *Form1099NEC) Corrected() bool       { return f.IsCorrected }
func (f *Form1099NEC) Payee() *RecipientInfo { return &f.Recipient }
func (f *Form1099NEC) Amounts() []decimal.Decimal {
	return []decimal.Decimal{f.NonemployeeCompensation, f.FederalTaxWithheld}
}

func (f *Form1099MISC) ID() string            { return f.RecordID }
func (f *Form1099MISC) Year() int             { return f.TaxYear }
func (f *Form1099MISC) Corrected() bool       { return f.IsCorrected }
func (f *Form1099MISC) Payee() *RecipientInfo { return &f.Recipient }
func (f *Form1099MISC) Amounts() []decimal.Decimal {
	return []decimal.Decimal{
		f.Rents, f.Royalties, f.OtherIncome, f.FederalTaxWithheld,
		f.FishingBoatProceeds, f.MedicalHealthcarePayments, f.SubstitutePayments,
		f.CropInsuranceProceeds, f.GrossProceedsAttorney, f.FishPurchasedResale,
		f.Section409ADeferrals, f.ExcessGoldenParachute, f.NonqualifiedDeferredComp,
	}
}

func (f *Form1099S) ID() string            { return f.RecordID }
func (f *Form1099S) Year() int             { return f.TaxYear }
func (f *Form1099S) Corrected() bool       { return f.IsCorrected }
func (f *Form1099S) Payee() *RecipientInfo { return &f.Recipient }
func (f *Form1099S) Amounts() []decimal.Decimal {
	return []decimal.Decimal{f.GrossProceeds, f.BuyersRealEstateTax}
}

func (f *Form1098) ID() string            { return f.RecordID }
func (f *Form1098) Year() int             { return f.TaxYear }
func (f *Form1098) Corrected() bool       { return f.IsCorrected }
func (f *Form1098) Payee() *RecipientInfo { return &f.Recipient }
func (f *Form1098) Amounts() []decimal.Decimal {
	return []decimal.Decimal{
		f.MortgageInterestReceived, f.OutstandingMortgagePrincipal,
		f.RefundOfOverpaidInterest, f.MortgageInsurancePremiums,
		f.PointsPaidOnPurchase,
	}
}

// SubmissionBatch lote de formularios de un mismo emisor y tipo.
// Invariante: todos los formularios comparten FormType y TaxYear.
type SubmissionBatch struct {
	Issuer   IssuerInfo
	FormType string // "1099NEC", "1099MISC", "1099S", "1098"
	TaxYear  int
	Forms    []Form
	// Firma opcional (JuratSignatureGrp)
	SignaturePIN   string
	SignatureDate  time.Time
	SignatureTitle string
	SignerName     string
	// Elección CFSF a nivel de submission
	CFSFElection bool
}
