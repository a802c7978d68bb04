// Package crypto is the cryptographic session engine used by boxchat.
//
// Contents
//
//   - Standard base64 codec for carrying binary fields in JSON (EncodeB64,
//     DecodeB64)
//   - X25519 identity generation (GenerateIdentity) and key agreement
//     (DeriveSessionKey)
//   - XSalsa20-Poly1305 sealing and opening of message bodies (Seal, Open)
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// Secret material lives in unexported fixed-size arrays and is never
// returned to callers. Identity.Destroy and SymmetricKey.Wipe overwrite it;
// owners should defer them as soon as the value is created.
//
// The session key is the raw X25519 output. No KDF is applied, which keeps
// keys interoperable with existing clients of the same relay.
package crypto
