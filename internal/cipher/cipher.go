package cipher

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

var (
	errNotInteger  = errors.New("token is not a base-10 integer")
	errOutOfRange  = errors.New("token is outside [0, n)")
	errInvalidRune = errors.New("decrypted value is not a valid code point")
)

// Cipher holds an original string and its most recent encryption.
// A Cipher is not safe for concurrent mutation; concurrent reads are fine.
type Cipher struct {
	original  string
	encrypted string
}

// New returns an unkeyed Cipher for original.
func New(original string) *Cipher {
	return &Cipher{original: original}
}

// Original returns the plaintext the cipher was built for.
func (c *Cipher) Original() string {
	return c.original
}

// Encrypted returns the space-separated ciphertext, or "" before Encrypt.
func (c *Cipher) Encrypted() string {
	return c.encrypted
}

// IsEncrypted reports whether Encrypt has produced ciphertext.
func (c *Cipher) IsEncrypted() bool {
	return c.encrypted != ""
}

// SetEncrypted replaces the stored ciphertext, e.g. with text loaded from elsewhere.
func (c *Cipher) SetEncrypted(encrypted string) {
	c.encrypted = encrypted
}

// Encrypt encrypts the original string under pub, overwriting prior
// ciphertext. The stored ciphertext is left unchanged on error.
func (c *Cipher) Encrypt(pub PublicKey) error {
	encrypted, err := Encrypt(c.original, pub)
	if err != nil {
		return err
	}
	c.encrypted = encrypted
	return nil
}

// Decrypt decrypts the stored ciphertext with priv.
func (c *Cipher) Decrypt(priv PrivateKey) (string, error) {
	return Decrypt(c.encrypted, priv)
}

// TokenCount returns the number of ciphertext tokens.
func (c *Cipher) TokenCount() int {
	return len(strings.Fields(c.encrypted))
}

// Encrypt maps every code point of original to pow(code, e, n) and joins the
// results with single spaces.
func Encrypt(original string, pub PublicKey) (string, error) {
	if pub.E == nil || pub.N == nil {
		return "", ErrMissingKey
	}
	var b strings.Builder
	m := new(big.Int)
	out := new(big.Int)
	first := true
	for _, r := range original {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		m.SetInt64(int64(r))
		out.Exp(m, pub.E, pub.N)
		b.WriteString(out.Text(10))
	}
	return b.String(), nil
}

// Decrypt reverses Encrypt. It fails with a *DecryptionError when the key is
// incomplete, the ciphertext is empty, a token does not parse, or a decrypted
// value is not a valid code point.
func Decrypt(encrypted string, priv PrivateKey) (string, error) {
	if priv.D == nil || priv.N == nil {
		return "", &DecryptionError{Index: -1, Err: ErrMissingKey}
	}
	tokens := strings.Fields(encrypted)
	if len(tokens) == 0 {
		return "", &DecryptionError{Index: -1, Err: ErrEmptyCiphertext}
	}
	var b strings.Builder
	b.Grow(len(tokens))
	c := new(big.Int)
	m := new(big.Int)
	for i, tok := range tokens {
		if _, ok := c.SetString(tok, 10); !ok {
			return "", &DecryptionError{Index: i, Token: tok, Err: errNotInteger}
		}
		if c.Sign() < 0 || c.Cmp(priv.N) >= 0 {
			return "", &DecryptionError{Index: i, Token: tok, Err: errOutOfRange}
		}
		m.Exp(c, priv.D, priv.N)
		if !m.IsInt64() || m.Int64() > utf8.MaxRune || !utf8.ValidRune(rune(m.Int64())) {
			return "", &DecryptionError{Index: i, Token: tok, Err: fmt.Errorf("%w: %s", errInvalidRune, m.Text(10))}
		}
		b.WriteRune(rune(m.Int64()))
	}
	return b.String(), nil
}
