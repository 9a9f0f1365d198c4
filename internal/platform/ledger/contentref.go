package ledger

import (
	"fmt"
	"regexp"
)

// MaxContentRefLen bounds the byte length of a content reference.
const MaxContentRefLen = 512

var contentRefPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:/._+=\-]*$`)

// ContentRef addresses data held in an external content-addressed store
// (for example an IPFS CID). Only its syntactic shape is ever checked.
type ContentRef string

func (r ContentRef) String() string { return string(r) }

// Validate checks the shape of the reference. Reachability is never checked.
func (r ContentRef) Validate() error {
	if r == "" {
		return fmt.Errorf("%w: content reference is required", ErrInvalidArgument)
	}
	if len(r) > MaxContentRefLen {
		return fmt.Errorf("%w: content reference exceeds %d bytes", ErrInvalidArgument, MaxContentRefLen)
	}
	if !contentRefPattern.MatchString(string(r)) {
		return fmt.Errorf("%w: content reference %q is malformed", ErrInvalidArgument, string(r))
	}
	return nil
}
