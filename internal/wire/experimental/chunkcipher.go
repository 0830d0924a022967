// Package experimental holds Open Question #1's opt-in, non-default codec
// for FILE_UPLOAD_CHUNK_REQUEST payloads. It wraps each chunk with
// golang.org/x/crypto/nacl/secretbox without changing the wire framing
// itself (the frame length simply grows by the nonce+overhead). The server
// only opens sealed upload chunks and stores the plaintext; download
// responses are never sealed. Off by default; gated by
// Config.ExperimentalChunkEncryption.
package experimental

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the secretbox key size (256 bits).
const KeySize = 32

// ErrCiphertextTooShort is returned when a chunk is shorter than the
// nonce prepended by Seal.
var ErrCiphertextTooShort = errors.New("experimental: ciphertext shorter than nonce")

// ErrDecryptionFailed is returned when the authenticated decryption fails,
// meaning the chunk was tampered with or the key is wrong.
var ErrDecryptionFailed = errors.New("experimental: chunk authentication failed")

// ChunkCipher encrypts/decrypts chunk payloads with the key it was built
// from; internal/session builds one per upload chunk from the key carried
// in that packet's ChunkKey metadata field.
type ChunkCipher struct {
	key [KeySize]byte
}

// NewChunkCipher builds a ChunkCipher from a 32-byte key.
func NewChunkCipher(key []byte) (*ChunkCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("experimental: key must be %d bytes, got %d", KeySize, len(key))
	}
	c := &ChunkCipher{}
	copy(c.key[:], key)
	return c, nil
}

// Seal encrypts plaintext, prepending a freshly generated random nonce.
func (c *ChunkCipher) Seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("experimental: generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &c.key), nil
}

// Open decrypts a chunk produced by Seal.
func (c *ChunkCipher) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, ErrCiphertextTooShort
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &c.key)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
