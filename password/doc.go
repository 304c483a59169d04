// Package password hashes and verifies account secrets.
//
// # Formats
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Existing bcrypt hashes ($2a$, $2b$, $2y$) are accepted for verification so
// accounts provisioned by older tooling keep working. [Verifier] routes on the
// hash prefix.
//
// # What this package must NOT do
//
//   - Store or retrieve hashes. Callers supply plaintext and receive hashes.
//   - Import any other authgate package.
//   - Log plaintext secrets.
package password
