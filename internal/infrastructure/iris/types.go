// Package iris implementa la integración con el IRS IRIS A2A: generación de
// la transmisión XML, validación estructural y de reglas de negocio,
// autenticación OAuth con client assertion JWT, envío/consulta y traducción
// de errores de esquema.
package iris

import (
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Token de acceso
// ═══════════════════════════════════════════════════════════════════════════

// expiryBuffer margen de seguridad antes del vencimiento real del token.
const expiryBuffer = 30 * time.Second

// AccessToken token bearer emitido por el endpoint OAuth del IRS.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// IsExpired indica si el token debe renovarse: true cuando
// now >= ExpiresAt - 30s.
func (t *AccessToken) IsExpired() bool {
	return t.isExpiredAt(time.Now())
}

func (t *AccessToken) isExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt.Add(-expiryBuffer))
}

// ═══════════════════════════════════════════════════════════════════════════
// Estados de una transmisión
// ═══════════════════════════════════════════════════════════════════════════

// SubmissionStatus estado de una transmisión según el IRS. Conjunto cerrado:
// todo código externo no reconocido se mapea a StatusUnknown, nunca se trata
// como éxito.
type SubmissionStatus string

const (
	StatusPending            SubmissionStatus = "PENDING"
	StatusProcessing         SubmissionStatus = "PROCESSING"
	StatusAccepted           SubmissionStatus = "ACCEPTED"
	StatusAcceptedWithErrors SubmissionStatus = "ACCEPTED_WITH_ERRORS"
	StatusPartiallyAccepted  SubmissionStatus = "PARTIALLY_ACCEPTED"
	StatusRejected           SubmissionStatus = "REJECTED"
	StatusError              SubmissionStatus = "ERROR"
	StatusUnknown            SubmissionStatus = "UNKNOWN"
)

// IsTerminal indica si el estado ya no cambiará con nuevas consultas.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusAcceptedWithErrors, StatusPartiallyAccepted, StatusRejected:
		return true
	}
	return false
}

// statusCodeMap tabla exhaustiva de códigos externos del IRS a estados.
// Cubre las variantes con guión bajo y con espacio observadas en ATS.
var statusCodeMap = map[string]SubmissionStatus{
	"PENDING":              StatusPending,
	"PROCESSING":           StatusProcessing,
	"IN PROCESS":           StatusProcessing,
	"ACCEPTED":             StatusAccepted,
	"ACCEPTED_WITH_ERRORS": StatusAcceptedWithErrors,
	"ACCEPTED WITH ERRORS": StatusAcceptedWithErrors,
	"PARTIALLY_ACCEPTED":   StatusPartiallyAccepted,
	"PARTIALLY ACCEPTED":   StatusPartiallyAccepted,
	"REJECTED":             StatusRejected,
	"ERROR":                StatusError,
}

// ParseSubmissionStatus mapea un código de estado externo al conjunto
// cerrado; los no reconocidos devuelven StatusUnknown.
func ParseSubmissionStatus(code string) SubmissionStatus {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if status, ok := statusCodeMap[normalized]; ok {
		return status
	}
	return StatusUnknown
}

// ═══════════════════════════════════════════════════════════════════════════
// Resultados tipados
// ═══════════════════════════════════════════════════════════════════════════

// FormError error reportado por el IRS para un formulario individual.
type FormError struct {
	RecordID  string
	ErrorCode string
	Message   string
	Field     string
}

// SubmissionResult resultado del envío o consulta de una transmisión.
// Degraded en true indica que la respuesta HTTP fue exitosa pero el cuerpo
// no pudo interpretarse; en ese caso Status es StatusUnknown y Message
// describe la causa, preservando el ReceiptID ya obtenido.
type SubmissionResult struct {
	ReceiptID            string
	UniqueTransmissionID string
	Status               SubmissionStatus
	Message              string
	RecordCount          int
	AcceptedCount        int
	RejectedCount        int
	WarningCount         int
	Errors               []FormError
	Degraded             bool
}

// IsSuccess indica si la transmisión fue recibida y no rechazada.
func (r *SubmissionResult) IsSuccess() bool {
	switch r.Status {
	case StatusAccepted, StatusAcceptedWithErrors, StatusPartiallyAccepted,
		StatusPending, StatusProcessing:
		return true
	}
	return false
}

// FormResult resultado por formulario dentro de una confirmación.
type FormResult struct {
	RecordID string
	Status   SubmissionStatus
	Errors   []FormError
}

// AcknowledgmentResult confirmación detallada (ACK) de una transmisión
// previamente enviada.
type AcknowledgmentResult struct {
	ReceiptID            string
	UniqueTransmissionID string
	Status               SubmissionStatus
	Message              string
	FormResults          []FormResult
	TransmissionErrors   []FormError
	Degraded             bool
}

// ═══════════════════════════════════════════════════════════════════════════
// Errores de validación
// ═══════════════════════════════════════════════════════════════════════════

// Severidades de un ValidationError.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError un hallazgo del validador; nunca se propaga como error de
// Go, siempre como dato para que el llamador decida.
type ValidationError struct {
	Line     int // 0 si no aplica
	Column   int // 0 si no aplica
	Message  string
	Severity string
	Element  string
}

// TranslatedError mensaje accionable producido por el traductor de errores.
type TranslatedError struct {
	Field          string
	Message        string
	Fix            string
	Severity       string
	HighlightField string
	OriginalError  string
	Line           int
	Column         int
}
