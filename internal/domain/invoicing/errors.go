package invoicing

import (
	"fmt"
	"strings"

	"github.com/portal/backend/internal/domain/shared"
)

// Invoicing error codes. Each maps to an HTTP status in the interfaces layer.
var (
	ErrMissingRequiredField  = shared.NewDomainError("MISSING_REQUIRED_FIELD", "Missing required field")
	ErrInvalidDocumentFormat = shared.NewDomainError("INVALID_DOCUMENT_FORMAT", "The structured document is not a valid CFDI")
	ErrMissingFiscalFolio    = shared.NewDomainError("MISSING_FISCAL_FOLIO", "The structured document has no fiscal folio (TimbreFiscalDigital UUID)")
	ErrCrossValidation       = shared.NewDomainError("CROSS_VALIDATION_MISMATCH", "The structured document does not match the reception")
	ErrStorageUpload         = shared.NewDomainError("STORAGE_UPLOAD_ERROR", "Failed to upload documents to storage")
	ErrDuplicateFolio        = shared.NewDomainError("DUPLICATE_FOLIO", "An invoice with this fiscal folio already exists")
	ErrUnauthorizedWorker    = shared.NewDomainError("UNAUTHORIZED_WORKER_INVOCATION", "Unauthorized worker execution")
	ErrInvalidTransition     = shared.NewDomainError("INVALID_SYNC_TRANSITION", "Sync status transition not allowed")
)

// MismatchError carries every field-level diff found by cross-validation.
// errors.Is(err, ErrCrossValidation) holds for it.
type MismatchError struct {
	Mismatches []Mismatch
}

func (e *MismatchError) Error() string {
	msgs := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		msgs[i] = m.String()
	}
	return fmt.Sprintf("%s: %s", ErrCrossValidation.Message, strings.Join(msgs, " | "))
}

func (e *MismatchError) Is(target error) bool {
	return ErrCrossValidation.Is(target)
}

// Messages returns the human-readable diagnostics in rule order
func (e *MismatchError) Messages() []string {
	msgs := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		msgs[i] = m.String()
	}
	return msgs
}

// missingField builds a MISSING_REQUIRED_FIELD error naming the field
func missingField(name string) error {
	return ErrMissingRequiredField.WithMessage(fmt.Sprintf("Missing required field: %s", name))
}
