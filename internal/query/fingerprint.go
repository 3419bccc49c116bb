package query

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fieldSeparator delimits tuple fields before hashing so that
// ("ab","c") and ("a","bc") never collide.
const fieldSeparator = "\x1f"

// Fingerprint returns the hex SHA-256 digest of the given tuple. Each part
// is trimmed and lowercased before hashing; the tuple order is significant.
// Missing optional fields must be passed as empty strings so that the tuple
// arity is stable.
func Fingerprint(parts ...string) string {
	norm := make([]string, len(parts))
	for i, p := range parts {
		norm[i] = strings.ToLower(strings.TrimSpace(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(norm, fieldSeparator)))
	return hex.EncodeToString(sum[:])
}

// SearchFingerprint keys the result and job stores for a canonical query.
func SearchFingerprint(canonical string) string {
	return Fingerprint(canonical)
}

// AnalysisFingerprint keys the analysis cache and stream registry. The tuple
// order matches the cache key layout and must not change: sentence, target
// word, target language, native language, before context, after context.
func AnalysisFingerprint(sentence, targetWord, targetLang, nativeLang, before, after string) string {
	return Fingerprint(sentence, targetWord, targetLang, nativeLang, before, after)
}
