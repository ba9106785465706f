package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidConfig        = errors.New("configuración inválida")
	ErrAuthentication       = errors.New("autenticación con el IRS fallida")
	ErrTokenExpired         = errors.New("token de acceso expirado o revocado")
	ErrForbidden            = errors.New("acceso denegado por el IRS (verificar TCC)")
	ErrTransmissionRejected = errors.New("transmisión rechazada por validación del IRS")
	ErrServiceUnavailable   = errors.New("servicio IRIS no disponible")
	ErrNotFound             = errors.New("transmisión no encontrada")
	ErrAckNotReady          = errors.New("confirmación aún no disponible")
	ErrSubmissionFailed     = errors.New("envío de la transmisión fallido")
)
