package filing

import (
	"errors"
	"fmt"

	"github.com/tu-usuario/iris-1099/pkg/iris"
)

// ErrInvalidBatch indica que el lote no cumple los invariantes de dominio.
var ErrInvalidBatch = errors.New("lote de formularios inválido")

// ValidateBatch verifica los invariantes de un lote antes de generar XML:
// tipo de formulario soportado, al menos un formulario, año fiscal uniforme,
// record ids únicos, exclusividad negocio/persona en emisor y beneficiarios,
// TINs de 9 dígitos y montos no negativos. Devuelve todos los problemas
// encontrados unidos con errors.Join, envueltos en ErrInvalidBatch.
func ValidateBatch(batch *SubmissionBatch) error {
	var errs []error

	if !iris.ValidFormTypes[batch.FormType] {
		errs = append(errs, fmt.Errorf("tipo de formulario no soportado: %q", batch.FormType))
	}
	if len(batch.Forms) == 0 {
		errs = append(errs, errors.New("el lote no contiene formularios"))
	}
	if batch.TaxYear < 2000 {
		errs = append(errs, fmt.Errorf("año fiscal inválido: %d", batch.TaxYear))
	}

	if err := validateParty("emisor", batch.Issuer.TIN, batch.Issuer.BusinessName, batch.Issuer.LastName); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(batch.Forms))
	for _, form := range batch.Forms {
		id := form.ID()
		if id == "" {
			errs = append(errs, errors.New("formulario sin record id"))
		} else if seen[id] {
			errs = append(errs, fmt.Errorf("record id duplicado en el lote: %q", id))
		}
		seen[id] = true

		if form.Year() != batch.TaxYear {
			errs = append(errs, fmt.Errorf("formulario %s: año fiscal %d distinto al del lote (%d)", id, form.Year(), batch.TaxYear))
		}

		payee := form.Payee()
		if err := validateParty(fmt.Sprintf("beneficiario del formulario %s", id), payee.TIN, payee.BusinessName, payee.LastName); err != nil {
			errs = append(errs, err)
		}

		for _, amt := range form.Amounts() {
			if amt.IsNegative() {
				errs = append(errs, fmt.Errorf("formulario %s: monto negativo %s", id, amt.String()))
				break
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(ErrInvalidBatch, errors.Join(errs...))
	}
	return nil
}

// validateParty valida TIN y exclusividad negocio/persona de una parte.
func validateParty(role, tin, businessName, lastName string) error {
	var errs []error

	if _, err := iris.NormalizeTIN(tin); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", role, err))
	}
	if businessName == "" && lastName == "" {
		errs = append(errs, fmt.Errorf("%s: se requiere nombre comercial o apellido", role))
	}
	if businessName != "" && lastName != "" {
		errs = append(errs, fmt.Errorf("%s: nombre comercial y nombre de persona son mutuamente excluyentes", role))
	}

	return errors.Join(errs...)
}
