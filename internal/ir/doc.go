// Package ir provides the canonical value model, canonical hashing, and the
// Generation IR for the Abraxas provenance subsystem.
//
// This package contains value types and pure functions only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// canonical layer foundational with no circular dependencies.
//
// Key design constraints:
//   - Canonical serialization is byte-stable across processes and platforms:
//     keys sorted by UTF-16 code units, NFC-normalized strings, no HTML
//     escaping, deterministic number formatting.
//   - Explicit null and absent field are distinct canonical forms and must
//     survive a serialize/deserialize round trip.
//   - Non-finite floats (NaN, ±Inf) are rejected with SerializationError.
//   - All JSON tags use snake_case.
package ir
