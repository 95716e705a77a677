package order

import (
	"crypto/rand"
	"time"
)

// numberAlphabet is a 32-character uppercase set, so each random byte
// maps to a character without modulo bias (byte & 31). Ambiguous
// letters I, L, O, U are left out; the number ends up in emails and
// support tickets, read aloud over the phone.
const numberAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const numberSuffixLen = 6

// NewNumber generates a human-readable order number of the form
// ORD-YYYYMMDD-XXXXXX. The 6-character random suffix gives 32^6 ≈ 1e9
// combinations per day; uniqueness is still enforced by the database
// constraint, and creation retries on a duplicate.
func NewNumber(t time.Time) string {
	var suffix [numberSuffixLen]byte
	_, _ = rand.Read(suffix[:]) // crypto/rand.Read does not fail on supported platforms
	for i := range suffix {
		suffix[i] = numberAlphabet[suffix[i]&31]
	}
	return "ORD-" + t.Format("20060102") + "-" + string(suffix[:])
}
