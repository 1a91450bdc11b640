package votecrypt

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blindvote/blindvote/internal/common"
)

// NewTokenID derives a fresh, unpredictable token identifier from 32 bytes of
// CSPRNG randomness combined with the voter id, election id and a timestamp,
// passed through SHA-256. Every call produces a new value.
func NewTokenID(voterID, electionID int64, now time.Time) (string, error) {
	random, err := common.MakeRandHexString(32)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
	}
	material := fmt.Sprintf("%s|%d|%d|%d", random, voterID, electionID, now.UnixNano())
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:]), nil
}

// BlindingSecret is the per-token secret the voter must retain between
// blinding and unblinding: the original token and the blinding factor r.
type BlindingSecret struct {
	Token string
	R     *big.Int
}

// RHex returns the blinding factor in hex, for persistence in the local vault.
func (s *BlindingSecret) RHex() string {
	return s.R.Text(16)
}

// ParseBlindingSecret reconstructs a BlindingSecret from its stored form.
func ParseBlindingSecret(token, rHex string) (*BlindingSecret, error) {
	r, ok := new(big.Int).SetString(rHex, 16)
	if !ok {
		return nil, fmt.Errorf("%w: malformed blinding factor", common.ErrorValidation)
	}
	return &BlindingSecret{Token: token, R: r}, nil
}

// tokenDigest maps a token identifier into Z_n via SHA-256. The digest is
// 256 bits, always smaller than the 2048-bit modulus.
func tokenDigest(token string) *big.Int {
	sum := sha256.Sum256([]byte(token))
	return new(big.Int).SetBytes(sum[:])
}

// Blind blinds a token for institutional signing: b = H(token)·r^e mod n,
// where r is a fresh random unit mod n. The institution signs b without
// learning H(token); the returned secret is required to unblind.
func Blind(pub *rsa.PublicKey, token string) (blinded string, secret *BlindingSecret, err error) {
	r, err := randomUnit(pub.N)
	if err != nil {
		return "", nil, err
	}

	e := big.NewInt(int64(pub.E))
	re := new(big.Int).Exp(r, e, pub.N)

	b := new(big.Int).Mul(tokenDigest(token), re)
	b.Mod(b, pub.N)

	return b.Text(16), &BlindingSecret{Token: token, R: r}, nil
}

// Reblind recomputes the blinded value from a stored secret, so a resumed
// flow submits the same blinded token its signature will cover.
func Reblind(pub *rsa.PublicKey, secret *BlindingSecret) (string, error) {
	if secret.R.Sign() <= 0 {
		return "", fmt.Errorf("%w: malformed blinding factor", common.ErrorValidation)
	}
	e := big.NewInt(int64(pub.E))
	re := new(big.Int).Exp(secret.R, e, pub.N)

	b := new(big.Int).Mul(tokenDigest(secret.Token), re)
	b.Mod(b, pub.N)
	return b.Text(16), nil
}

// BlindSign applies the institution private key to a blinded value:
// s_b = b^d mod n. Plain RSA exponentiation, no padding: the padding-free
// form is what makes the unblinding identity hold.
func BlindSign(priv *rsa.PrivateKey, blinded string) (string, error) {
	b, ok := new(big.Int).SetString(blinded, 16)
	if !ok {
		return "", fmt.Errorf("%w: malformed blinded token", common.ErrorValidation)
	}
	if b.Sign() <= 0 || b.Cmp(priv.N) >= 0 {
		return "", fmt.Errorf("%w: blinded token out of range", common.ErrorValidation)
	}
	s := new(big.Int).Exp(b, priv.D, priv.N)
	return s.Text(16), nil
}

// Unblind recovers the signature over the original token from the signature
// over its blinded form: s = s_b·r⁻¹ mod n.
func Unblind(pub *rsa.PublicKey, signedBlinded string, secret *BlindingSecret) (string, error) {
	sb, ok := new(big.Int).SetString(signedBlinded, 16)
	if !ok {
		return "", fmt.Errorf("%w: malformed signed token", common.ErrorValidation)
	}
	rInv := new(big.Int).ModInverse(secret.R, pub.N)
	if rInv == nil {
		return "", fmt.Errorf("%w: blinding factor not invertible", common.ErrorValidation)
	}
	s := new(big.Int).Mul(sb, rInv)
	s.Mod(s, pub.N)
	return s.Text(16), nil
}

// VerifyUnblinded checks s^e ≡ H(token) mod n against the institution
// public key.
func VerifyUnblinded(pub *rsa.PublicKey, token, signature string) error {
	s, ok := new(big.Int).SetString(signature, 16)
	if !ok {
		return fmt.Errorf("%w: malformed signature", common.ErrorValidation)
	}
	e := big.NewInt(int64(pub.E))
	recovered := new(big.Int).Exp(s, e, pub.N)
	if recovered.Cmp(tokenDigest(token)) != 0 {
		return fmt.Errorf("%w: blind signature does not verify", common.ErrorValidation)
	}
	return nil
}

// UnblindedProof is the eligibility proof submitted with a vote: the original
// token plus the unblinded institution signature over it.
//
// The wire form is "token:signature". A proof that does not parse as a pair
// is treated as a legacy raw signed token; the server then falls back to
// comparing it against the stored signed token for the voter.
type UnblindedProof struct {
	Token     string
	Signature string
}

// Encode renders the proof in its wire form.
func (p UnblindedProof) Encode() string {
	return p.Token + ":" + p.Signature
}

// DecodeUnblindedProof parses the wire form. The boolean reports whether the
// value was a well-formed pair.
func DecodeUnblindedProof(s string) (UnblindedProof, bool) {
	token, sig, found := strings.Cut(s, ":")
	if !found || token == "" || sig == "" {
		return UnblindedProof{}, false
	}
	return UnblindedProof{Token: token, Signature: sig}, true
}

// randomUnit returns a uniformly random r in [2, n) with gcd(r, n) = 1.
func randomUnit(n *big.Int) (*big.Int, error) {
	one := big.NewInt(1)
	for {
		r, err := randInt(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCryptoUnavailable, err)
		}
		if r.Cmp(one) <= 0 {
			continue
		}
		gcd := new(big.Int).GCD(nil, nil, r, n)
		if gcd.Cmp(one) == 0 {
			return r, nil
		}
	}
}
