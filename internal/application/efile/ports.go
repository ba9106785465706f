// Package efile orquesta el flujo completo de presentación electrónica:
// validar el lote, generar la transmisión, validarla y enviarla, más las
// consultas de estado y confirmación.
package efile

import (
	"context"

	infra "github.com/tu-usuario/iris-1099/internal/infrastructure/iris"
)

// Submitter puerto hacia el canal A2A del IRS. Lo implementa el cliente de
// infraestructura; las pruebas inyectan un doble.
type Submitter interface {
	TestConnection(ctx context.Context) (bool, error)
	SubmitXML(ctx context.Context, xmlContent []byte, transmissionID string) (*infra.SubmissionResult, error)
	GetStatus(ctx context.Context, receiptID, transmissionID string) (*infra.SubmissionResult, error)
	GetAcknowledgment(ctx context.Context, receiptID, transmissionID string) (*infra.AcknowledgmentResult, error)
}
