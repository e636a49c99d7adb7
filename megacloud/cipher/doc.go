// Package cipher derives key material for megacloud payloads and decrypts them.
//
// Payloads use the OpenSSL/CryptoJS passphrase format: base64 of the magic
// "Salted__", an 8-byte salt and an AES-256-CBC ciphertext. Keys come from
// EVP_BytesToKey with MD5 and a single iteration. When the key and IV are
// already known, DirectKey skips derivation.
package cipher
