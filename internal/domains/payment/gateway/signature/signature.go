package signature

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"sort"
	"strings"
)

// =====================================================
// PROCESSOR SIGNATURE SCHEMES
// =====================================================
//
// Two canonicalization families cover every processor we integrate:
//
// Sorted-pipe (Fondy, Portmone):
//  1. Sort field names lexicographically
//  2. Drop fields whose value is empty
//  3. Join secret|v1|v2|... (secret prepended once)
//  4. SHA-1, hex encode
//
// Wrapped-hash (LiqPay, PrivatParts):
//  1. Concatenate secret || payload || secret
//     (payload is a base64-encoded JSON blob or explicit positional args)
//  2. SHA-1, base64 encode
//
// Both are pure functions of (secret, field set). Field selection and
// ordering is always explicit - never rely on map iteration order.

// SortedPipe computes the sorted-pipe digest over a field map.
func SortedPipe(secret string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for key, value := range fields {
		if value == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, secret)
	for _, key := range keys {
		parts = append(parts, fields[key])
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// VerifySortedPipe recomputes the digest from the received fields and
// compares it against the digest asserted by the counterparty. The
// signature field itself must already be excluded from fields.
func VerifySortedPipe(secret string, fields map[string]string, candidate string) bool {
	expected := SortedPipe(secret, fields)
	return constantTimeEqual(expected, candidate)
}

// WrappedBase64 computes base64(SHA1(secret || parts... || secret)).
func WrappedBase64(secret string, parts ...string) string {
	var b strings.Builder
	b.WriteString(secret)
	for _, part := range parts {
		b.WriteString(part)
	}
	b.WriteString(secret)

	sum := sha1.Sum([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifyWrappedBase64 recomputes the wrapped digest and compares it
// against the asserted one.
func VerifyWrappedBase64(secret, candidate string, parts ...string) bool {
	expected := WrappedBase64(secret, parts...)
	return constantTimeEqual(expected, candidate)
}

// constantTimeEqual avoids leaking how many leading digest bytes matched.
func constantTimeEqual(expected, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}
