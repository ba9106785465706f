package efile

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/iris-1099/internal/domain"
	"github.com/tu-usuario/iris-1099/internal/domain/filing"
	infra "github.com/tu-usuario/iris-1099/internal/infrastructure/iris"
	"github.com/tu-usuario/iris-1099/pkg/logger"
)

// submitterMock doble del puerto Submitter que registra lo enviado.
type submitterMock struct {
	submitted      [][]byte
	submitResult   *infra.SubmissionResult
	submitErr      error
	statusResult   *infra.SubmissionResult
	ackResult      *infra.AcknowledgmentResult
	lastReceiptID  string
	lastRequestRan string
}

func (m *submitterMock) TestConnection(context.Context) (bool, error) { return true, nil }

func (m *submitterMock) SubmitXML(_ context.Context, xmlContent []byte, _ string) (*infra.SubmissionResult, error) {
	m.submitted = append(m.submitted, xmlContent)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return m.submitResult, nil
}

func (m *submitterMock) GetStatus(_ context.Context, receiptID, _ string) (*infra.SubmissionResult, error) {
	m.lastReceiptID = receiptID
	m.lastRequestRan = "STATUS"
	return m.statusResult, nil
}

func (m *submitterMock) GetAcknowledgment(_ context.Context, receiptID, _ string) (*infra.AcknowledgmentResult, error) {
	m.lastReceiptID = receiptID
	m.lastRequestRan = "ACK"
	return m.ackResult, nil
}

func testGenerator() *infra.Generator {
	return infra.NewGenerator(infra.GeneratorParams{
		Transmitter: filing.TransmitterInfo{
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
		},
		SoftwareID: "25SW001234",
		IsTest:     true,
	})
}

func testBatch() *filing.SubmissionBatch {
	return &filing.SubmissionBatch{
		Issuer: filing.IssuerInfo{
			TIN:          "987654321",
			TINType:      "EIN",
			BusinessName: "Acme Pagos LLC",
			Address1:     "200 Peachtree St",
			City:         "Atlanta",
			State:        "GA",
			ZipCode:      "30303",
			Country:      "US",
		},
		FormType: "1099NEC",
		TaxYear:  2025,
		Forms: []filing.Form{
			&filing.Form1099NEC{
				RecordID: "1",
				TaxYear:  2025,
				Recipient: filing.RecipientInfo{
					TIN:       "111223333",
					TINType:   "SSN",
					FirstName: "Juan",
					LastName:  "Perez",
					Address1:  "300 Oak Ave",
					City:      "Savannah",
					State:     "GA",
					ZipCode:   "31401",
				},
				NonemployeeCompensation: decimal.NewFromInt(500),
			},
		},
	}
}

func TestPrepareAndSubmit_FlujoCompleto(t *testing.T) {
	mock := &submitterMock{
		submitResult: &infra.SubmissionResult{
			ReceiptID: "REC-001",
			Status:    infra.StatusProcessing,
		},
	}
	uc := NewUseCase(testGenerator(), infra.NewValidator(nil), mock, logger.Nop())

	prepared, result, err := uc.PrepareAndSubmit(context.Background(), []*filing.SubmissionBatch{testBatch()}, 2025)
	require.NoError(t, err)

	assert.True(t, prepared.Valid)
	assert.NotEmpty(t, prepared.TransmissionID)
	assert.Contains(t, string(prepared.XML), prepared.TransmissionID,
		"el UTID generado viaja dentro del documento")
	assert.Equal(t, "REC-001", result.ReceiptID)
	require.Len(t, mock.submitted, 1, "el documento validado se envía una sola vez")
}

func TestPrepareAndSubmit_RechazaLoteInvalido(t *testing.T) {
	mock := &submitterMock{}
	uc := NewUseCase(testGenerator(), infra.NewValidator(nil), mock, logger.Nop())

	batch := testBatch()
	batch.Issuer.TIN = "123" // TIN inválido: falla la validación de dominio

	_, _, err := uc.PrepareAndSubmit(context.Background(), []*filing.SubmissionBatch{batch}, 2025)
	require.Error(t, err)
	assert.ErrorIs(t, err, filing.ErrInvalidBatch)
	assert.Empty(t, mock.submitted, "un lote inválido jamás llega al IRS")
}

// validador de esquema que siempre reprueba, para forzar un documento
// estructuralmente válido pero rechazado.
type failingSchema struct{}

func (failingSchema) Validate([]byte) []infra.ValidationError {
	return []infra.ValidationError{{
		Message:  "cvc-pattern-valid: Value 'X' is not facet-valid with respect to pattern '[0-9]+' for type 'ZIPCdType' of element 'ZIPCd'",
		Severity: infra.SeverityError,
		Element:  "ZIPCd",
	}}
}

func TestPrepareAndSubmit_NoEnviaDocumentoInvalido(t *testing.T) {
	mock := &submitterMock{}
	uc := NewUseCase(testGenerator(), infra.NewValidator(failingSchema{}), mock, logger.Nop())

	prepared, _, err := uc.PrepareAndSubmit(context.Background(), []*filing.SubmissionBatch{testBatch()}, 2025)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransmissionRejected)

	require.NotNil(t, prepared, "el resultado de preparación se devuelve para corregir datos")
	assert.False(t, prepared.Valid)
	require.NotEmpty(t, prepared.TranslatedErrors, "los hallazgos llegan traducidos")
	assert.Equal(t, "ZIP Code", prepared.TranslatedErrors[0].Field)
	assert.Empty(t, mock.submitted, "un documento inválido jamás se envía")
}

func TestCheckStatusYFetchAcknowledgment_Delegan(t *testing.T) {
	mock := &submitterMock{
		statusResult: &infra.SubmissionResult{Status: infra.StatusAccepted},
		ackResult:    &infra.AcknowledgmentResult{Status: infra.StatusAccepted},
	}
	uc := NewUseCase(testGenerator(), infra.NewValidator(nil), mock, logger.Nop())

	status, err := uc.CheckStatus(context.Background(), "REC-001", "")
	require.NoError(t, err)
	assert.Equal(t, infra.StatusAccepted, status.Status)
	assert.Equal(t, "REC-001", mock.lastReceiptID)
	assert.Equal(t, "STATUS", mock.lastRequestRan)

	ack, err := uc.FetchAcknowledgment(context.Background(), "REC-001", "")
	require.NoError(t, err)
	assert.Equal(t, infra.StatusAccepted, ack.Status)
	assert.Equal(t, "ACK", mock.lastRequestRan)
}
