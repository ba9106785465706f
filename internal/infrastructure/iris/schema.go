package iris

// SchemaValidator es la estrategia de validación contra el XSD oficial.
// El entorno de ejecución no siempre trae los esquemas del IRS instalados,
// así que la pasada XSD es opcional y degrada sin bloquear las otras dos.
type SchemaValidator interface {
	Validate(xmlContent []byte) []ValidationError
}

// NoopSchemaValidator estrategia por defecto cuando no hay XSD disponible.
type NoopSchemaValidator struct{}

func (NoopSchemaValidator) Validate([]byte) []ValidationError { return nil }
