package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration without
// colliding with previously issued identifiers.
const (
	DomainPayload = "abx/payload/v1"
	DomainIR      = "abx/ir/v1"
	DomainRune    = "abx/rune/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashPayload computes the canonical digest of an arbitrary structured
// payload. Identical logical content always yields an identical digest,
// regardless of key insertion order or producing process.
//
// Used for revision identifiers, deduplication keys, and entity id masking.
// Returns SerializationError if the payload has no canonical form.
func HashPayload(payload any) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainPayload, canonical), nil
}

// MustHashPayload is like HashPayload but panics on error.
// Use only in tests or when inputs are known to be canonicalizable.
func MustHashPayload(payload any) string {
	digest, err := HashPayload(payload)
	if err != nil {
		panic(err)
	}
	return digest
}

// RuneID computes the deterministic identifier for an instrumented handler.
// The id is always recomputable from (handlerPath, name); a manifest entry
// whose stored id disagrees with this function is invalid.
//
// Format: "rn." + first 16 hex chars of the domain-separated digest.
func RuneID(handlerPath, name string) string {
	digest := hashWithDomain(DomainRune, []byte(handlerPath+"\n"+name))
	return "rn." + digest[:16]
}
