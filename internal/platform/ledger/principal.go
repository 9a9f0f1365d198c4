// Package ledger holds the primitives shared by every registry domain: principal
// and record identifiers, content references, the error taxonomy, the clock, and
// the per-patient transaction contract implemented by each storage substrate.
package ledger

import (
	"fmt"
	"unicode"
)

// MaxPrincipalLen bounds the byte length of a principal identifier.
const MaxPrincipalLen = 128

// Principal is an opaque identity (typically a wallet address). Equality is exact;
// no case folding is applied.
type Principal string

// String returns the principal as a plain string.
func (p Principal) String() string { return string(p) }

// Validate checks that the principal is well formed.
func (p Principal) Validate() error {
	if p == "" {
		return fmt.Errorf("%w: principal is required", ErrInvalidArgument)
	}
	if len(p) > MaxPrincipalLen {
		return fmt.Errorf("%w: principal exceeds %d bytes", ErrInvalidArgument, MaxPrincipalLen)
	}
	for _, r := range string(p) {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: principal contains whitespace or control characters", ErrInvalidArgument)
		}
	}
	return nil
}
