// Package cryptox holds the cryptographic primitives of the file vault:
// per-file key generation, key wrapping under the master key (AES-256-GCM)
// and file payload encryption (AES-256-CBC with an HMAC-SHA-256 tag).
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/smartids/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// FileKeySize is the size of a per-file AES-256 key.
	FileKeySize = 32
	// IVSize is the AES block size used as the CBC IV.
	IVSize = aes.BlockSize
	// MasterKeySize is the size of the wrapping key.
	MasterKeySize = 32

	wrapNonceSize = 12
	wrapTagSize   = 16
)

// GenerateFileKey returns a fresh random 256-bit file key.
func GenerateFileKey() []byte {
	return common.GenerateRandByteArray(FileKeySize)
}

// GenerateIV returns a fresh random 128-bit IV.
func GenerateIV() []byte {
	return common.GenerateRandByteArray(IVSize)
}

// ParseMasterKey decodes a master key given as exactly 64 hex characters.
// Any other input yields common.ErrConfig; the input is never echoed back.
func ParseMasterKey(keyHex string) ([]byte, error) {
	if len(keyHex) != MasterKeySize*2 {
		return nil, common.ErrConfig
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, common.ErrConfig
	}
	return key, nil
}

// WrapKey encrypts fileKey under masterKey with AES-256-GCM.
//
// The result is laid out as nonce(12) || tag(16) || ciphertext and is safe
// to persist next to the file record.
func WrapKey(masterKey, fileKey []byte) ([]byte, error) {
	aead, err := newWrapAEAD(masterKey)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(wrapNonceSize)

	// Seal appends the tag after the ciphertext.
	sealed := aead.Seal(nil, nonce, fileKey, nil)
	ct, tag := sealed[:len(sealed)-wrapTagSize], sealed[len(sealed)-wrapTagSize:]

	blob := make([]byte, 0, wrapNonceSize+wrapTagSize+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return blob, nil
}

// UnwrapKey reverses WrapKey. A blob that fails authentication, because it
// was tampered with or wrapped under another master key, yields
// common.ErrIntegrity.
func UnwrapKey(masterKey, blob []byte) ([]byte, error) {
	aead, err := newWrapAEAD(masterKey)
	if err != nil {
		return nil, err
	}

	if len(blob) < wrapNonceSize+wrapTagSize {
		return nil, fmt.Errorf("wrapped key too short: %w", common.ErrIntegrity)
	}

	nonce := blob[:wrapNonceSize]
	tag := blob[wrapNonceSize : wrapNonceSize+wrapTagSize]
	ct := blob[wrapNonceSize+wrapTagSize:]

	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	fileKey, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", common.ErrIntegrity)
	}
	return fileKey, nil
}

func newWrapAEAD(masterKey []byte) (cipher.AEAD, error) {
	if len(masterKey) != MasterKeySize {
		return nil, common.ErrConfig
	}
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// KeyWrapper binds the wrap/unwrap operations to a master key supplied at
// construction time. The key is validated on every call so a missing or
// malformed key fails the individual request with common.ErrConfig.
type KeyWrapper struct {
	masterKeyHex string
}

// NewKeyWrapper returns a KeyWrapper for the given hex encoded master key.
func NewKeyWrapper(masterKeyHex string) *KeyWrapper {
	return &KeyWrapper{masterKeyHex: masterKeyHex}
}

// Ready reports whether the configured master key is usable.
func (w *KeyWrapper) Ready() error {
	key, err := ParseMasterKey(w.masterKeyHex)
	if err != nil {
		return err
	}
	common.WipeByteArray(key)
	return nil
}

// Wrap encrypts fileKey under the configured master key.
func (w *KeyWrapper) Wrap(fileKey []byte) ([]byte, error) {
	key, err := ParseMasterKey(w.masterKeyHex)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)
	return WrapKey(key, fileKey)
}

// Unwrap decrypts a blob produced by Wrap.
func (w *KeyWrapper) Unwrap(blob []byte) ([]byte, error) {
	key, err := ParseMasterKey(w.masterKeyHex)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)
	return UnwrapKey(key, blob)
}

// DeriveMasterKey stretches a passphrase into a 256-bit master key with
// argon2id. Used by the keygen tool only.
func DeriveMasterKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, MasterKeySize)
}
