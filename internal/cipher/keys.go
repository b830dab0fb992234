// Package cipher implements a per-character modular exponentiation cipher
// with toy-sized keys.
package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const primalityRounds = 20

var (
	one = big.NewInt(1)

	primeLow  = new(big.Int).Lsh(one, 64)
	primeHigh = new(big.Int).Lsh(one, 128)

	// Exclusive lower bound for the public exponent is 3.
	exponentLow = big.NewInt(4)
)

// errNoInverse is recovered inside key generation by sampling a new exponent.
var errNoInverse = errors.New("public exponent has no inverse modulo phi")

// PublicKey is the encryption half of a keypair.
type PublicKey struct {
	E *big.Int
	N *big.Int
}

// PrivateKey is the decryption half of a keypair.
type PrivateKey struct {
	D *big.Int
	N *big.Int
}

// GenerateKeys returns a fresh keypair sampled from crypto/rand.
func GenerateKeys() (PublicKey, PrivateKey, error) {
	return GenerateKeysFrom(rand.Reader)
}

// GenerateKeysFrom returns a fresh keypair using random as the entropy source.
// The primes p and q are drawn uniformly from the primes in [2^64, 2^128) and
// the public exponent is a prime drawn from (3, phi-1).
func GenerateKeysFrom(random io.Reader) (PublicKey, PrivateKey, error) {
	p, err := randomPrime(random, primeLow, primeHigh)
	if err != nil {
		return PublicKey{}, PrivateKey{}, err
	}
	var q *big.Int
	for {
		q, err = randomPrime(random, primeLow, primeHigh)
		if err != nil {
			return PublicKey{}, PrivateKey{}, err
		}
		if q.Cmp(p) != 0 {
			break
		}
	}

	n := new(big.Int).Mul(p, q)
	phi := new(big.Int).Mul(
		new(big.Int).Sub(p, one),
		new(big.Int).Sub(q, one),
	)
	exponentHigh := new(big.Int).Sub(phi, one)

	for {
		e, err := randomPrime(random, exponentLow, exponentHigh)
		if err != nil {
			return PublicKey{}, PrivateKey{}, err
		}
		d, err := modInverse(e, phi)
		if errors.Is(err, errNoInverse) {
			continue
		}
		if err != nil {
			return PublicKey{}, PrivateKey{}, err
		}
		return PublicKey{E: e, N: n}, PrivateKey{D: d, N: new(big.Int).Set(n)}, nil
	}
}

// randomPrime samples uniformly from [low, high) until a probable prime is found.
func randomPrime(random io.Reader, low, high *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(high, low)
	if span.Sign() <= 0 {
		return nil, fmt.Errorf("empty prime range [%s, %s)", low, high)
	}
	for {
		candidate, err := rand.Int(random, span)
		if err != nil {
			return nil, fmt.Errorf("failed to sample prime candidate: %w", err)
		}
		candidate.Add(candidate, low)
		if candidate.ProbablyPrime(primalityRounds) {
			return candidate, nil
		}
	}
}

func modInverse(e, phi *big.Int) (*big.Int, error) {
	d := new(big.Int).ModInverse(e, phi)
	if d == nil {
		return nil, errNoInverse
	}
	return d, nil
}
