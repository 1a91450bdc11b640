package votecrypt

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/blindvote/blindvote/internal/common"
	"golang.org/x/crypto/argon2"
)

// randInt is a seam over crypto/rand.Int for tests.
var randInt = func(max *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, max)
}

// HashVote computes the vote integrity hash:
// SHA-256("electionID|optionID|timestamp|nonce") in hex. The nonce is fresh
// randomness, so two votes for the same option never collide.
func HashVote(electionID, optionID int64, timestamp int64, nonce string) string {
	material := fmt.Sprintf("%d|%d|%d|%s", electionID, optionID, timestamp, nonce)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// HashReceipt computes the receipt hash over the voter, election, vote hash
// and timestamp. The receipt proves participation without containing the
// chosen option.
func HashReceipt(voterID, electionID int64, voteHash string, timestamp int64) string {
	material := fmt.Sprintf("%d|%d|%s|%d", voterID, electionID, voteHash, timestamp)
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// SignReceipt signs the receipt hash with RSA-PSS. The voter signs with
// their own key during cast, so a receipt can only have been produced by
// the holder of the registered private key.
func SignReceipt(priv *rsa.PrivateKey, receiptHash string) (string, error) {
	digest := sha256.Sum256([]byte(receiptHash))
	sig, err := rsa.SignPSS(rand.Reader, priv, crypto.SHA256, digest[:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: pss sign: %v", common.ErrCryptoUnavailable, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifyReceiptSignature verifies an RSA-PSS receipt signature.
func VerifyReceiptSignature(pub *rsa.PublicKey, receiptHash, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature encoding", common.ErrorValidation)
	}
	digest := sha256.Sum256([]byte(receiptHash))
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, nil); err != nil {
		return fmt.Errorf("%w: receipt signature does not verify", common.ErrorValidation)
	}
	return nil
}

// DerivePasswordVerifier derives a password verifier with argon2id. Only the
// verifier is stored server-side; the password itself never is.
func DerivePasswordVerifier(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}
