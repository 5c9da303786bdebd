// Package securestore keeps small secrets (the API access token, the login
// cookie) in an encrypted file.
//
// The file holds a JSON envelope with the install id in clear and the values
// sealed with XChaCha20-Poly1305. The key is derived with HKDF-SHA256 from
// the configured secret and the install id. Without a configured secret a
// random key is generated into a 0600 file next to the store; reading the
// store then needs that file too. Every write uses a fresh nonce and replaces
// the file atomically.
package securestore
