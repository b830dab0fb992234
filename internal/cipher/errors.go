package cipher

import (
	"errors"
	"fmt"
)

// ErrEmptyCiphertext is returned when there is nothing to decrypt.
var ErrEmptyCiphertext = errors.New("ciphertext is empty")

// ErrMissingKey is returned when a key has a nil component.
var ErrMissingKey = errors.New("key is missing a component")

// DecryptionError reports malformed ciphertext. Index is the offending token
// position, or -1 when the ciphertext as a whole is rejected.
type DecryptionError struct {
	Index int
	Token string
	Err   error
}

func (e *DecryptionError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("decryption failed: %v", e.Err)
	}
	return fmt.Sprintf("decryption failed at token %d (%q): %v", e.Index, e.Token, e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}
