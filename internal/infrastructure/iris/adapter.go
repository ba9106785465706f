package iris

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/iris-1099/internal/domain/filing"
	"github.com/tu-usuario/iris-1099/pkg/iris"
)

// Registros planos tal como los entrega la capa de datos. La conversión y
// normalización ocurre una sola vez aquí: el generador solo ve lotes ya
// tipados y validados. Los TIN llegan ya desencriptados en claro.

// FilerRecord datos del emisor (pagador) tal como vienen de la capa de datos.
type FilerRecord struct {
	TIN         string
	TINType     string // vacío asume EIN
	Name        string
	DBAName     string
	Address1    string
	Address2    string
	City        string
	State       string
	Zip         string
	Country     string // vacío asume US
	Phone       string
	ContactName string
	Email       string
}

// RecipientRecord datos del beneficiario. Name trae el nombre completo; para
// personas naturales se divide en primer nombre / segundo nombre / apellido.
type RecipientRecord struct {
	TIN           string
	TINType       string // vacío asume SSN
	Name          string
	NameLine2     string
	Address1      string
	Address2      string
	City          string
	State         string
	Zip           string
	AccountNumber string
}

// StateTaxRecord una ranura de retención estatal del registro plano.
type StateTaxRecord struct {
	Code     string
	IDNumber string
	Withheld decimal.Decimal
	Income   decimal.Decimal
}

// FormRecord casillas del formulario en el registro plano. Un solo struct
// cubre los cuatro tipos; el form type del lote decide qué campos se leen.
type FormRecord struct {
	IsCorrection     bool
	OriginalRecordID string

	// Hasta dos ranuras de retención estatal.
	State1 StateTaxRecord
	State2 StateTaxRecord

	// 1099-NEC
	NonemployeeCompensation decimal.Decimal
	NECDirectSales          bool
	NECFederalWithheld      decimal.Decimal

	// 1099-MISC
	Rents                     decimal.Decimal
	Royalties                 decimal.Decimal
	OtherIncome               decimal.Decimal
	MISCFederalWithheld       decimal.Decimal
	FishingBoatProceeds       decimal.Decimal
	MedicalHealthcarePayments decimal.Decimal
	MISCDirectSales           bool
	SubstitutePayments        decimal.Decimal
	CropInsuranceProceeds     decimal.Decimal
	GrossProceedsAttorney     decimal.Decimal
	FishPurchasedResale       decimal.Decimal
	Section409ADeferrals      decimal.Decimal
	ExcessGoldenParachute     decimal.Decimal
	NonqualifiedDeferredComp  decimal.Decimal

	// 1099-S
	ClosingDate                     time.Time
	GrossProceeds                   decimal.Decimal
	AddressOrLegalDesc              string
	TransferorReceivedConsideration bool
	TransferorIsForeignPerson       bool
	BuyersRealEstateTax             decimal.Decimal

	// 1098
	MortgageInterestReceived      decimal.Decimal
	OutstandingMortgagePrincipal  decimal.Decimal
	MortgageOriginationDate       time.Time
	RefundOfOverpaidInterest      decimal.Decimal
	MortgageInsurancePremiums     decimal.Decimal
	PointsPaidOnPurchase          decimal.Decimal
	PropertyAddressSameAsBorrower bool
	PropertyAddress               string
	PropertiesSecuringMortgage    int
	OtherInfo                     string
	MortgageAcquisitionDate       time.Time
}

// FormWithRecipient una fila del lote: el beneficiario y sus casillas.
type FormWithRecipient struct {
	Recipient RecipientRecord
	Form      FormRecord
}

// BuildSubmissionBatch convierte registros planos en un lote listo para
// generar. Normaliza TINs, divide nombres de persona natural, arma las
// retenciones estatales desde las dos ranuras e infiere la elección CFSF
// (NEC/MISC con al menos una retención estatal en el primer formulario).
// Los record id se asignan secuencialmente desde "1".
func BuildSubmissionBatch(filer FilerRecord, rows []FormWithRecipient, taxYear int, formType string) (*filing.SubmissionBatch, error) {
	if !iris.ValidFormTypes[formType] {
		return nil, fmt.Errorf("%w: tipo de formulario no soportado: %q", filing.ErrInvalidBatch, formType)
	}

	var errs []error

	issuerTIN, err := iris.NormalizeTIN(filer.TIN)
	if err != nil {
		errs = append(errs, fmt.Errorf("emisor: %w", err))
	}

	issuer := filing.IssuerInfo{
		TIN:           issuerTIN,
		TINType:       defaultString(filer.TINType, iris.TINTypeEIN),
		BusinessName:  filer.Name,
		BusinessName2: filer.DBAName,
		Address1:      filer.Address1,
		Address2:      filer.Address2,
		City:          filer.City,
		State:         filer.State,
		ZipCode:       filer.Zip,
		Country:       defaultString(filer.Country, "US"),
		Phone:         filer.Phone,
		ContactName:   filer.ContactName,
		ContactEmail:  filer.Email,
	}

	forms := make([]filing.Form, 0, len(rows))
	for i, row := range rows {
		recordID := strconv.Itoa(i + 1)

		recipient, err := buildRecipientInfo(row.Recipient)
		if err != nil {
			errs = append(errs, fmt.Errorf("fila %s: %w", recordID, err))
			continue
		}

		stateTaxes := buildStateTaxes(row.Form)
		form := buildForm(formType, recordID, taxYear, recipient, row.Form, stateTaxes)
		forms = append(forms, form)
	}

	if len(errs) > 0 {
		return nil, errors.Join(filing.ErrInvalidBatch, errors.Join(errs...))
	}

	return &filing.SubmissionBatch{
		Issuer:       issuer,
		FormType:     formType,
		TaxYear:      taxYear,
		Forms:        forms,
		CFSFElection: inferCFSFElection(formType, forms),
	}, nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// buildRecipientInfo normaliza el TIN y divide el nombre completo en
// primer nombre / segundo nombre / apellido cuando es persona natural.
func buildRecipientInfo(r RecipientRecord) (filing.RecipientInfo, error) {
	tin, err := iris.NormalizeTIN(r.TIN)
	if err != nil {
		return filing.RecipientInfo{}, err
	}

	tinType := defaultString(r.TINType, iris.TINTypeSSN)
	info := filing.RecipientInfo{
		TIN:           tin,
		TINType:       tinType,
		Address1:      r.Address1,
		Address2:      r.Address2,
		City:          r.City,
		State:         r.State,
		ZipCode:       r.Zip,
		AccountNumber: r.AccountNumber,
	}

	if tinType == iris.TINTypeEIN {
		info.BusinessName = r.Name
		info.BusinessName2 = r.NameLine2
		return info, nil
	}

	first, middle, last := splitPersonName(r.Name)
	info.FirstName = first
	info.MiddleName = middle
	info.LastName = last
	return info, nil
}

// splitPersonName divide "Primero [Segundo] Apellido": la primera palabra es
// el primer nombre, la última el apellido, y la del medio (si hay tres
// partes) el segundo nombre. Un nombre de una sola palabra es el apellido.
func splitPersonName(full string) (first, middle, last string) {
	parts := strings.SplitN(strings.TrimSpace(full), " ", 3)
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return "", "", parts[0]
	case 2:
		return parts[0], "", parts[1]
	default:
		lastParts := strings.Fields(parts[2])
		if len(lastParts) > 0 {
			return parts[0], parts[1], lastParts[len(lastParts)-1]
		}
		return parts[0], parts[1], ""
	}
}

func buildStateTaxes(f FormRecord) []filing.StateLocalTax {
	var out []filing.StateLocalTax
	for _, slot := range []StateTaxRecord{f.State1, f.State2} {
		if slot.Code == "" {
			continue
		}
		out = append(out, filing.StateLocalTax{
			StateCode:        strings.ToUpper(slot.Code),
			StateIDNumber:    slot.IDNumber,
			StateTaxWithheld: slot.Withheld,
			StateIncome:      slot.Income,
		})
	}
	return out
}

func cfsfStatesOf(taxes []filing.StateLocalTax) []string {
	out := make([]string, 0, len(taxes))
	for _, st := range taxes {
		out = append(out, st.StateCode)
	}
	return out
}

func buildForm(formType, recordID string, taxYear int, recipient filing.RecipientInfo, f FormRecord, stateTaxes []filing.StateLocalTax) filing.Form {
	switch formType {
	case iris.FormType1099NEC:
		return &filing.Form1099NEC{
			RecordID:                recordID,
			TaxYear:                 taxYear,
			Recipient:               recipient,
			NonemployeeCompensation: f.NonemployeeCompensation,
			DirectSalesIndicator:    f.NECDirectSales,
			FederalTaxWithheld:      f.NECFederalWithheld,
			StateLocalTaxes:         stateTaxes,
			IsCorrected:             f.IsCorrection,
			OriginalRecordID:        f.OriginalRecordID,
			CFSFStates:              cfsfStatesOf(stateTaxes),
		}
	case iris.FormType1099MISC:
		return &filing.Form1099MISC{
			RecordID:                  recordID,
			TaxYear:                   taxYear,
			Recipient:                 recipient,
			Rents:                     f.Rents,
			Royalties:                 f.Royalties,
			OtherIncome:               f.OtherIncome,
			FederalTaxWithheld:        f.MISCFederalWithheld,
			FishingBoatProceeds:       f.FishingBoatProceeds,
			MedicalHealthcarePayments: f.MedicalHealthcarePayments,
			DirectSalesIndicator:      f.MISCDirectSales,
			SubstitutePayments:        f.SubstitutePayments,
			CropInsuranceProceeds:     f.CropInsuranceProceeds,
			GrossProceedsAttorney:     f.GrossProceedsAttorney,
			FishPurchasedResale:       f.FishPurchasedResale,
			Section409ADeferrals:      f.Section409ADeferrals,
			ExcessGoldenParachute:     f.ExcessGoldenParachute,
			NonqualifiedDeferredComp:  f.NonqualifiedDeferredComp,
			StateLocalTaxes:           stateTaxes,
			IsCorrected:               f.IsCorrection,
			OriginalRecordID:          f.OriginalRecordID,
			CFSFStates:                cfsfStatesOf(stateTaxes),
		}
	case iris.FormType1099S:
		return &filing.Form1099S{
			RecordID:                        recordID,
			TaxYear:                         taxYear,
			Recipient:                       recipient,
			ClosingDate:                     f.ClosingDate,
			GrossProceeds:                   f.GrossProceeds,
			AddressOrLegalDesc:              f.AddressOrLegalDesc,
			TransferorReceivedConsideration: f.TransferorReceivedConsideration,
			TransferorIsForeignPerson:       f.TransferorIsForeignPerson,
			BuyersRealEstateTax:             f.BuyersRealEstateTax,
			IsCorrected:                     f.IsCorrection,
			OriginalRecordID:                f.OriginalRecordID,
		}
	default: // 1098, garantizado por la validación de entrada
		return &filing.Form1098{
			RecordID:                      recordID,
			TaxYear:                       taxYear,
			Recipient:                     recipient,
			MortgageInterestReceived:      f.MortgageInterestReceived,
			OutstandingMortgagePrincipal:  f.OutstandingMortgagePrincipal,
			MortgageOriginationDate:       f.MortgageOriginationDate,
			RefundOfOverpaidInterest:      f.RefundOfOverpaidInterest,
			MortgageInsurancePremiums:     f.MortgageInsurancePremiums,
			PointsPaidOnPurchase:          f.PointsPaidOnPurchase,
			PropertyAddressSameAsBorrower: f.PropertyAddressSameAsBorrower,
			PropertyAddress:               f.PropertyAddress,
			PropertiesSecuringMortgage:    f.PropertiesSecuringMortgage,
			OtherInfo:                     f.OtherInfo,
			MortgageAcquisitionDate:       f.MortgageAcquisitionDate,
			IsCorrected:                   f.IsCorrection,
			OriginalRecordID:              f.OriginalRecordID,
		}
	}
}

// inferCFSFElection la elección CFSF se marca para NEC/MISC cuando el primer
// formulario trae al menos una retención estatal.
func inferCFSFElection(formType string, forms []filing.Form) bool {
	if formType != iris.FormType1099NEC && formType != iris.FormType1099MISC {
		return false
	}
	if len(forms) == 0 {
		return false
	}
	switch f := forms[0].(type) {
	case *filing.Form1099NEC:
		return len(f.StateLocalTaxes) > 0
	case *filing.Form1099MISC:
		return len(f.StateLocalTaxes) > 0
	}
	return false
}
