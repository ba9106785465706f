package iris

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/tu-usuario/iris-1099/internal/domain/filing"
	"github.com/tu-usuario/iris-1099/pkg/iris"
)

// buildFormTotals agrega a IRSubmission1FormTotals el grupo de totales
// generales y, para NEC/MISC, un grupo por cada código de estado distinto.
// 1099-S y 1098 no llevan desglose estatal: no tienen retención por estado.
func buildFormTotals(formTotals *etree.Element, batch *filing.SubmissionBatch) error {
	switch batch.FormType {
	case iris.FormType1099NEC:
		return buildNECTotals(formTotals, batch.Forms)
	case iris.FormType1099MISC:
		return buildMISCTotals(formTotals, batch.Forms)
	case iris.FormType1099S:
		return build1099STotals(formTotals, batch.Forms)
	case iris.FormType1098:
		return build1098Totals(formTotals, batch.Forms)
	}
	return fmt.Errorf("tipo de formulario no soportado: %q", batch.FormType)
}

// necStateTotal acumulado por estado para 1099-NEC.
type necStateTotal struct {
	count         int
	fedWithheld   decimal.Decimal
	stateWithheld decimal.Decimal
	localWithheld decimal.Decimal
	compensation  decimal.Decimal
}

func buildNECTotals(formTotals *etree.Element, forms []filing.Form) error {
	totalCompensation := decimal.Zero
	totalFedWithheld := decimal.Zero
	stateTotals := make(map[string]*necStateTotal)

	for _, f := range forms {
		form, ok := f.(*filing.Form1099NEC)
		if !ok {
			return fmt.Errorf("formulario %s: se esperaba 1099-NEC, se recibió %T", f.ID(), f)
		}
		totalCompensation = totalCompensation.Add(form.NonemployeeCompensation)
		totalFedWithheld = totalFedWithheld.Add(form.FederalTaxWithheld)

		for _, st := range form.StateLocalTaxes {
			acc := stateTotals[st.StateCode]
			if acc == nil {
				acc = &necStateTotal{}
				stateTotals[st.StateCode] = acc
			}
			acc.count++
			acc.fedWithheld = acc.fedWithheld.Add(form.FederalTaxWithheld)
			acc.stateWithheld = acc.stateWithheld.Add(st.StateTaxWithheld)
			acc.localWithheld = acc.localWithheld.Add(st.LocalTaxWithheld)
			acc.compensation = acc.compensation.Add(form.NonemployeeCompensation)
		}
	}

	grp := addElem(formTotals, "Form1099NECTotalAmtGrp", "")
	addAmount(grp, "FederalIncomeTaxWithheldAmt", totalFedWithheld)
	addAmount(grp, "NonemployeeCompensationAmt", totalCompensation)

	for _, stateCode := range sortedStateCodes(stateTotals) {
		acc := stateTotals[stateCode]
		stateGrp := addElem(formTotals, "Form1099NECTotalByStateGrp", "")
		addElem(stateGrp, "StateAbbreviationCd", stateCode)
		addElem(stateGrp, "TotalReportedRcpntFormCnt", strconv.Itoa(acc.count))
		addElem(stateGrp, "FederalIncomeTaxWithheldAmt", iris.FormatAmount(acc.fedWithheld))
		addElem(stateGrp, "StateTaxWithheldAmt", iris.FormatAmount(acc.stateWithheld))
		addElem(stateGrp, "LocalTaxWithheldAmt", iris.FormatAmount(acc.localWithheld))
		addElem(stateGrp, "NonemployeeCompensationAmt", iris.FormatAmount(acc.compensation))
	}
	return nil
}

// miscStateTotal acumulado por estado para 1099-MISC.
type miscStateTotal struct {
	count         int
	fedWithheld   decimal.Decimal
	stateWithheld decimal.Decimal
	localWithheld decimal.Decimal
	rents         decimal.Decimal
	royalties     decimal.Decimal
	otherIncome   decimal.Decimal
}

func buildMISCTotals(formTotals *etree.Element, forms []filing.Form) error {
	var fedWithheld, rents, royalties, otherIncome, fishingBoat, medical decimal.Decimal
	stateTotals := make(map[string]*miscStateTotal)

	for _, f := range forms {
		form, ok := f.(*filing.Form1099MISC)
		if !ok {
			return fmt.Errorf("formulario %s: se esperaba 1099-MISC, se recibió %T", f.ID(), f)
		}
		fedWithheld = fedWithheld.Add(form.FederalTaxWithheld)
		rents = rents.Add(form.Rents)
		royalties = royalties.Add(form.Royalties)
		otherIncome = otherIncome.Add(form.OtherIncome)
		fishingBoat = fishingBoat.Add(form.FishingBoatProceeds)
		medical = medical.Add(form.MedicalHealthcarePayments)

		for _, st := range form.StateLocalTaxes {
			acc := stateTotals[st.StateCode]
			if acc == nil {
				acc = &miscStateTotal{}
				stateTotals[st.StateCode] = acc
			}
			acc.count++
			acc.fedWithheld = acc.fedWithheld.Add(form.FederalTaxWithheld)
			acc.stateWithheld = acc.stateWithheld.Add(st.StateTaxWithheld)
			acc.localWithheld = acc.localWithheld.Add(st.LocalTaxWithheld)
			acc.rents = acc.rents.Add(form.Rents)
			acc.royalties = acc.royalties.Add(form.Royalties)
			acc.otherIncome = acc.otherIncome.Add(form.OtherIncome)
		}
	}

	grp := addElem(formTotals, "Form1099MISCTotalAmtGrp", "")
	addAmount(grp, "FederalIncomeTaxWithheldAmt", fedWithheld)
	addAmount(grp, "RentAmt", rents)
	addAmount(grp, "RoyaltyAmt", royalties)
	addAmount(grp, "OtherIncomeAmt", otherIncome)
	addAmount(grp, "FishingBoatProceedsAmt", fishingBoat)
	addAmount(grp, "MedicalHealthCarePaymentAmt", medical)

	for _, stateCode := range sortedStateCodes(stateTotals) {
		acc := stateTotals[stateCode]
		stateGrp := addElem(formTotals, "Form1099MISCTotalByStateGrp", "")
		addElem(stateGrp, "StateAbbreviationCd", stateCode)
		addElem(stateGrp, "TotalReportedRcpntFormCnt", strconv.Itoa(acc.count))
		addElem(stateGrp, "FederalIncomeTaxWithheldAmt", iris.FormatAmount(acc.fedWithheld))
		addElem(stateGrp, "StateTaxWithheldAmt", iris.FormatAmount(acc.stateWithheld))
		addElem(stateGrp, "LocalTaxWithheldAmt", iris.FormatAmount(acc.localWithheld))
		addElem(stateGrp, "RentAmt", iris.FormatAmount(acc.rents))
		addElem(stateGrp, "RoyaltyAmt", iris.FormatAmount(acc.royalties))
		addElem(stateGrp, "OtherIncomeAmt", iris.FormatAmount(acc.otherIncome))
	}
	return nil
}

func build1099STotals(formTotals *etree.Element, forms []filing.Form) error {
	var grossProceeds, buyersTax decimal.Decimal
	for _, f := range forms {
		form, ok := f.(*filing.Form1099S)
		if !ok {
			return fmt.Errorf("formulario %s: se esperaba 1099-S, se recibió %T", f.ID(), f)
		}
		grossProceeds = grossProceeds.Add(form.GrossProceeds)
		buyersTax = buyersTax.Add(form.BuyersRealEstateTax)
	}

	grp := addElem(formTotals, "Form1099STotalAmtGrp", "")
	addAmount(grp, "GrossProceedsAmt", grossProceeds)
	addAmount(grp, "BuyerRealEstateTaxAmt", buyersTax)
	return nil
}

func build1098Totals(formTotals *etree.Element, forms []filing.Form) error {
	var interest, principal, refund, insurance, points decimal.Decimal
	for _, f := range forms {
		form, ok := f.(*filing.Form1098)
		if !ok {
			return fmt.Errorf("formulario %s: se esperaba 1098, se recibió %T", f.ID(), f)
		}
		interest = interest.Add(form.MortgageInterestReceived)
		principal = principal.Add(form.OutstandingMortgagePrincipal)
		refund = refund.Add(form.RefundOfOverpaidInterest)
		insurance = insurance.Add(form.MortgageInsurancePremiums)
		points = points.Add(form.PointsPaidOnPurchase)
	}

	grp := addElem(formTotals, "Form1098TotalAmtGrp", "")
	addAmount(grp, "MortgageInterestReceivedAmt", interest)
	addAmount(grp, "OutstandingMortgPrincipalAmt", principal)
	addAmount(grp, "OverpaidInterestRefundAmt", refund)
	addAmount(grp, "MortgageInsurancePremiumsAmt", insurance)
	addAmount(grp, "PrinResPurchasePointsPaidAmt", points)
	return nil
}

// sortedStateCodes devuelve los códigos de estado en orden estable para que
// la salida sea determinista.
func sortedStateCodes[T any](m map[string]*T) []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
