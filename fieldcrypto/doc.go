// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package fieldcrypto implements the optional end-to-end field encryption.

Sensitive fields (challenge texts, display names) are sealed with
AES-256-GCM under a room key the server never sees; the key is shared
through the invite URL fragment. The wire format is
base64(iv || ciphertext || tag) with a 12-byte IV, byte-compatible with
what the web client produces using WebCrypto.

Decrypt fails closed: a wrong key or tampered ciphertext yields
ErrDecrypt, never silent garbage.
*/
package fieldcrypto
