// Package fingerprint derives deterministic cache keys from text content.
// Equal text always yields an equal fingerprint, so repeated processing of
// the same article or word list resolves to the same cache entries.
package fingerprint
