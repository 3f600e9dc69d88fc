package audit

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/heartmarshall/labassist-backend/internal/domain"
)

var (
	ErrSchema   = errors.New("audit entry fails schema")
	ErrChecksum = errors.New("audit entry checksum mismatch")
	ErrCorrupt  = errors.New("audit entry corrupted")
)

// Verifier checks entries received from another process before they are
// stored: the schema first, then the checksum.
type Verifier struct {
	sums     *Checksummer
	validate *validator.Validate
}

// NewVerifier creates a Verifier keyed like the Logger that produced the
// entries.
func NewVerifier(secret string) (*Verifier, error) {
	sums, err := NewChecksummer(secret)
	if err != nil {
		return nil, err
	}
	return &Verifier{sums: sums, validate: newValidator()}, nil
}

// Admit returns e ready to be stored, or an error wrapping ErrSchema,
// ErrChecksum or ErrCorrupt.
//
// A keyed checksum must verify as sent; a mismatch means the entry was
// altered or signed with another key. An entry from a client without the
// secret carries the fallback checksum, which only shows the content was
// not corrupted on the way. It is checked against the content and then
// re-stamped with the keyed checksum, so everything stored verifies.
func (v *Verifier) Admit(e domain.AuditEntry) (domain.AuditEntry, error) {
	if err := v.validate.Struct(e); err != nil {
		return e, fmt.Errorf("%w: %s", ErrSchema, validationFields(err))
	}

	if !IsFallback(e.Checksum) {
		if !v.sums.Verify(e) {
			return e, ErrChecksum
		}
		return e, nil
	}

	if !v.sums.verifyFallback(e) {
		return e, ErrCorrupt
	}
	sum, err := v.sums.Sum(e)
	if err != nil {
		return e, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	e.Checksum = sum
	return e, nil
}
