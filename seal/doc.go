// Package seal encrypts second-factor material at rest.
//
// Sealed values are base64 strings of nonce||ciphertext produced with
// AES-256-GCM. Every call to [Sealer.Seal] draws a fresh nonce, so sealing the
// same plaintext twice yields different strings. Stores rely on that property
// when they compare-and-swap a sealed column.
//
// # What this package must NOT do
//
//   - Persist keys or sealed values.
//   - Log plaintext.
package seal
