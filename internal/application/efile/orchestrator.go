package efile

import (
	"context"
	"fmt"

	"github.com/tu-usuario/iris-1099/internal/domain"
	"github.com/tu-usuario/iris-1099/internal/domain/filing"
	infra "github.com/tu-usuario/iris-1099/internal/infrastructure/iris"
	"github.com/tu-usuario/iris-1099/pkg/logger"
)

// UseCase orquesta la presentación: validación de dominio, generación del
// XML, validación estructural/de negocio y envío. Un documento inválido
// jamás llega al IRS.
type UseCase struct {
	generator  *infra.Generator
	validator  *infra.Validator
	translator *infra.Translator
	submitter  Submitter
	log        *logger.Logger
}

// NewUseCase construye el orquestador.
func NewUseCase(generator *infra.Generator, validator *infra.Validator, submitter Submitter, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{
		generator:  generator,
		validator:  validator,
		translator: infra.NewTranslator(),
		submitter:  submitter,
		log:        log,
	}
}

// PrepareResult salida de la preparación: el XML generado y, si la
// validación falló, los hallazgos crudos y traducidos. Valid en false
// significa que el documento no debe enviarse.
type PrepareResult struct {
	XML              []byte
	TransmissionID   string
	Valid            bool
	Findings         []infra.ValidationError
	TranslatedErrors []infra.TranslatedError
}

// Prepare valida el lote a nivel de dominio, genera la transmisión y la
// valida. Los hallazgos de validación se devuelven como datos, nunca como
// error de Go: el llamador decide si corrige y regenera.
func (uc *UseCase) Prepare(batches []*filing.SubmissionBatch, taxYear int) (*PrepareResult, error) {
	for _, batch := range batches {
		if err := filing.ValidateBatch(batch); err != nil {
			return nil, err
		}
	}

	transmissionID := uc.generator.GenerateUTID()
	xmlContent, err := uc.generator.GenerateBytes(batches, taxYear, transmissionID)
	if err != nil {
		return nil, fmt.Errorf("generación de la transmisión: %w", err)
	}

	valid, findings := uc.validator.Validate(xmlContent)
	result := &PrepareResult{
		XML:            xmlContent,
		TransmissionID: transmissionID,
		Valid:          valid,
		Findings:       findings,
	}
	if !valid {
		result.TranslatedErrors = uc.translator.TranslateErrors(findings)
		uc.log.Warn().
			Int("hallazgos", len(findings)).
			Str("transmission_id", transmissionID).
			Msg("la transmisión generada no pasó la validación")
	}
	return result, nil
}

// PrepareAndSubmit prepara y, solo si la validación pasa, envía. Con
// hallazgos de severidad error devuelve el PrepareResult junto con
// ErrTransmissionRejected para que el llamador corrija los datos.
func (uc *UseCase) PrepareAndSubmit(ctx context.Context, batches []*filing.SubmissionBatch, taxYear int) (*PrepareResult, *infra.SubmissionResult, error) {
	prepared, err := uc.Prepare(batches, taxYear)
	if err != nil {
		return nil, nil, err
	}

	if !prepared.Valid {
		return prepared, nil, fmt.Errorf("%w: la transmisión no pasó la validación local", domain.ErrTransmissionRejected)
	}

	uc.log.Info().
		Str("transmission_id", prepared.TransmissionID).
		Int("lotes", len(batches)).
		Msg("enviando transmisión validada")

	result, err := uc.submitter.SubmitXML(ctx, prepared.XML, prepared.TransmissionID)
	if err != nil {
		return prepared, nil, err
	}
	return prepared, result, nil
}

// CheckStatus consulta el estado de una transmisión previamente enviada.
func (uc *UseCase) CheckStatus(ctx context.Context, receiptID, transmissionID string) (*infra.SubmissionResult, error) {
	return uc.submitter.GetStatus(ctx, receiptID, transmissionID)
}

// FetchAcknowledgment recupera la confirmación detallada de una transmisión.
func (uc *UseCase) FetchAcknowledgment(ctx context.Context, receiptID, transmissionID string) (*infra.AcknowledgmentResult, error) {
	return uc.submitter.GetAcknowledgment(ctx, receiptID, transmissionID)
}

// TestConnection verifica conectividad y credenciales contra el IRS.
func (uc *UseCase) TestConnection(ctx context.Context) (bool, error) {
	return uc.submitter.TestConnection(ctx)
}
