package iris

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/tu-usuario/iris-1099/internal/domain/filing"
	"github.com/tu-usuario/iris-1099/pkg/iris"
)

// buildFormDetail agrega el elemento de detalle del formulario según el tipo
// declarado en el lote. Falla si el tipo concreto no corresponde al FormTypeCd.
func buildFormDetail(detail *etree.Element, formType string, form filing.Form) error {
	switch formType {
	case iris.FormType1099NEC:
		nec, ok := form.(*filing.Form1099NEC)
		if !ok {
			return fmt.Errorf("formulario %s: se esperaba 1099-NEC, se recibió %T", form.ID(), form)
		}
		build1099NECDetail(detail, nec)
	case iris.FormType1099MISC:
		misc, ok := form.(*filing.Form1099MISC)
		if !ok {
			return fmt.Errorf("formulario %s: se esperaba 1099-MISC, se recibió %T", form.ID(), form)
		}
		build1099MISCDetail(detail, misc)
	case iris.FormType1099S:
		s, ok := form.(*filing.Form1099S)
		if !ok {
			return fmt.Errorf("formulario %s: se esperaba 1099-S, se recibió %T", form.ID(), form)
		}
		build1099SDetail(detail, s)
	case iris.FormType1098:
		m, ok := form.(*filing.Form1098)
		if !ok {
			return fmt.Errorf("formulario %s: se esperaba 1098, se recibió %T", form.ID(), form)
		}
		build1098Detail(detail, m)
	default:
		return fmt.Errorf("tipo de formulario no soportado: %q", formType)
	}
	return nil
}

// buildStateLocalTaxGroup agrega un StateLocalTaxGrp con su grupo estatal y,
// si hay retención o localidad, el grupo local.
func buildStateLocalTaxGroup(parent *etree.Element, st *filing.StateLocalTax) {
	grp := addElem(parent, "StateLocalTaxGrp", "")

	addElem(grp, "StateAbbreviationCd", strings.ToUpper(truncate(st.StateCode, 2)))

	stateGrp := addElem(grp, "StateTaxGrp", "")
	if st.StateIDNumber != "" {
		addElem(stateGrp, "StateIdNum", truncate(st.StateIDNumber, 20))
	}
	addElem(stateGrp, "StateTaxWithheldAmt", iris.FormatAmount(st.StateTaxWithheld))
	addElem(stateGrp, "StateIncomeAmt", iris.FormatAmount(st.StateIncome))
	addElem(stateGrp, "StateDistributionAmt", "0")

	if st.LocalTaxWithheld.IsPositive() || st.LocalityName != "" {
		localGrp := addElem(grp, "LocalTaxGrp", "")
		if st.LocalityName != "" {
			addElem(localGrp, "LocalityNm", truncate(st.LocalityName, 20))
		}
		addElem(localGrp, "LocalTaxWithheldAmt", iris.FormatAmount(st.LocalTaxWithheld))
		addElem(localGrp, "LocalIncomeAmt", iris.FormatAmount(st.LocalIncome))
	}
}

// addFormPreamble agrega los elementos comunes al inicio de todo detalle:
// año, record id, void/corrected y la referencia al registro original.
func addFormPreamble(detail *etree.Element, taxYear int, recordID string, corrected bool, originalRecordID string, cfsfStates []string) {
	addElem(detail, "TaxYr", strconv.Itoa(taxYear))
	addElem(detail, "RecordId", truncate(recordID, 20))

	for _, state := range cfsfStates {
		addElem(detail, "CFSFElectionStateCd", strings.ToUpper(truncate(state, 2)))
	}

	// VoidInd siempre 0 en presentación electrónica.
	addElem(detail, "VoidInd", "0")
	addIndicator(detail, "CorrectedInd", corrected)

	if corrected && originalRecordID != "" {
		prev := addElem(detail, "PrevSubmittedRecRecipientGrp", "")
		addElem(prev, "UniqueRecordId", originalRecordID)
	}
}

func build1099NECDetail(parent *etree.Element, form *filing.Form1099NEC) {
	detail := addElem(parent, "Form1099NECDetail", "")

	addFormPreamble(detail, form.TaxYear, form.RecordID, form.IsCorrected, form.OriginalRecordID, form.CFSFStates)

	buildRecipientDetail(detail, &form.Recipient)
	if form.Recipient.AccountNumber != "" {
		addElem(detail, "RecipientAccountNum", truncate(form.Recipient.AccountNumber, 30))
	}

	addIndicator(detail, "SecondTINNoticeInd", form.SecondTINNotice)

	// Casilla 1
	addAmount(detail, "NonemployeeCompensationAmt", form.NonemployeeCompensation)
	// Casilla 2
	addIndicator(detail, "DirectSaleAboveThresholdInd", form.DirectSalesIndicator)
	// Casilla 4
	addAmount(detail, "FederalIncomeTaxWithheldAmt", form.FederalTaxWithheld)

	for i := range form.StateLocalTaxes {
		buildStateLocalTaxGroup(detail, &form.StateLocalTaxes[i])
	}
}

func build1099MISCDetail(parent *etree.Element, form *filing.Form1099MISC) {
	detail := addElem(parent, "Form1099MISCDetail", "")

	addFormPreamble(detail, form.TaxYear, form.RecordID, form.IsCorrected, form.OriginalRecordID, form.CFSFStates)

	buildRecipientDetail(detail, &form.Recipient)
	if form.Recipient.AccountNumber != "" {
		addElem(detail, "RecipientAccountNum", truncate(form.Recipient.AccountNumber, 30))
	}

	addIndicator(detail, "SecondTINNoticeInd", form.SecondTINNotice)
	addIndicator(detail, "FATCAFilingRequirementInd", form.FATCAFilingRequirement)

	addAmount(detail, "RentAmt", form.Rents)                                // Casilla 1
	addAmount(detail, "RoyaltyAmt", form.Royalties)                         // Casilla 2
	addAmount(detail, "OtherIncomeAmt", form.OtherIncome)                   // Casilla 3
	addAmount(detail, "FederalIncomeTaxWithheldAmt", form.FederalTaxWithheld) // Casilla 4
	addAmount(detail, "FishingBoatProceedsAmt", form.FishingBoatProceeds)   // Casilla 5
	addAmount(detail, "MedicalHealthCarePaymentAmt", form.MedicalHealthcarePayments) // Casilla 6

	// Casilla 7
	addIndicator(detail, "DirectSaleAboveThresholdInd", form.DirectSalesIndicator)

	addAmount(detail, "SubstitutePaymentAmt", form.SubstitutePayments)            // Casilla 8
	addAmount(detail, "CropInsuranceProceedAmt", form.CropInsuranceProceeds)      // Casilla 9
	addAmount(detail, "GrossProceedsPaidToAttorneyAmt", form.GrossProceedsAttorney) // Casilla 10
	addAmount(detail, "FishPurchasedForResaleAmt", form.FishPurchasedResale)      // Casilla 11
	addAmount(detail, "Section409ADeferralAmt", form.Section409ADeferrals)        // Casilla 12
	addAmount(detail, "NonqualifiedDeferredCompensationAmt", form.NonqualifiedDeferredComp) // Casilla 14

	for i := range form.StateLocalTaxes {
		buildStateLocalTaxGroup(detail, &form.StateLocalTaxes[i])
	}
}

func build1099SDetail(parent *etree.Element, form *filing.Form1099S) {
	detail := addElem(parent, "Form1099SDetail", "")

	addFormPreamble(detail, form.TaxYear, form.RecordID, form.IsCorrected, form.OriginalRecordID, nil)

	buildRecipientDetail(detail, &form.Recipient)
	if form.Recipient.AccountNumber != "" {
		addElem(detail, "RecipientAccountNum", truncate(form.Recipient.AccountNumber, 30))
	}

	// Casilla 1
	if !form.ClosingDate.IsZero() {
		addElem(detail, "ClosingDt", form.ClosingDate.Format("2006-01-02"))
	}
	// Casilla 2
	addAmount(detail, "GrossProceedsAmt", form.GrossProceeds)
	// Casilla 3
	if form.AddressOrLegalDesc != "" {
		addElem(detail, "AddressOrLegalDescTxt", truncate(form.AddressOrLegalDesc, 100))
	}
	// Casilla 4
	addIndicator(detail, "TransferorRcvdConsiderationInd", form.TransferorReceivedConsideration)
	// Casilla 5
	addIndicator(detail, "TransferorForeignPersonInd", form.TransferorIsForeignPerson)
	// Casilla 6
	addAmount(detail, "BuyerRealEstateTaxAmt", form.BuyersRealEstateTax)
}

func build1098Detail(parent *etree.Element, form *filing.Form1098) {
	detail := addElem(parent, "Form1098Detail", "")

	addFormPreamble(detail, form.TaxYear, form.RecordID, form.IsCorrected, form.OriginalRecordID, nil)

	buildRecipientDetail(detail, &form.Recipient)
	if form.Recipient.AccountNumber != "" {
		addElem(detail, "RecipientAccountNum", truncate(form.Recipient.AccountNumber, 30))
	}

	// Casilla 1
	addAmount(detail, "MortgageInterestReceivedAmt", form.MortgageInterestReceived)
	// Casilla 2
	addAmount(detail, "OutstandingMortgPrincipalAmt", form.OutstandingMortgagePrincipal)
	// Casilla 3
	if !form.MortgageOriginationDate.IsZero() {
		addElem(detail, "MortgageOriginationDt", form.MortgageOriginationDate.Format("2006-01-02"))
	}
	// Casilla 4
	addAmount(detail, "OverpaidInterestRefundAmt", form.RefundOfOverpaidInterest)
	// Casilla 5
	addAmount(detail, "MortgageInsurancePremiumsAmt", form.MortgageInsurancePremiums)
	// Casilla 6
	addAmount(detail, "PrinResPurchasePointsPaidAmt", form.PointsPaidOnPurchase)
	// Casilla 7
	addIndicator(detail, "PropAddrSameBorrowerAddrInd", form.PropertyAddressSameAsBorrower)
	// Casilla 8: solo cuando la propiedad no coincide con la dirección del prestatario
	if form.PropertyAddress != "" && !form.PropertyAddressSameAsBorrower {
		propGrp := addElem(detail, "PropertyAddressGrp", "")
		addElem(propGrp, "PropertyDesc", truncate(form.PropertyAddress, 100))
	}
	// Casilla 9
	if form.PropertiesSecuringMortgage > 0 {
		addElem(detail, "PropertiesSecuringMortgageCnt", strconv.Itoa(form.PropertiesSecuringMortgage))
	}
	// Casilla 10
	if form.OtherInfo != "" {
		addElem(detail, "OtherTxt", truncate(form.OtherInfo, 100))
	}
	// Casilla 11
	if !form.MortgageAcquisitionDate.IsZero() {
		addElem(detail, "MortgageAcquisitionDt", form.MortgageAcquisitionDate.Format("2006-01-02"))
	}
}
