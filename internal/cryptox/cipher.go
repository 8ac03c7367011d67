package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/dmitrijs2005/smartids/internal/common"
)

// TagSize is the length of the HMAC-SHA-256 integrity tag.
const TagSize = sha256.Size

// EncryptFile encrypts plaintext with AES-256-CBC (PKCS#7 padding) under
// fileKey/iv and returns the ciphertext together with an HMAC-SHA-256 tag
// over iv || ciphertext keyed with fileKey (encrypt-then-MAC).
func EncryptFile(plaintext, fileKey, iv []byte) (ciphertext, tag []byte, err error) {
	block, err := newFileBlock(fileKey, iv)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = pkcs7Pad(plaintext, aes.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, ciphertext)

	return ciphertext, computeTag(fileKey, iv, ciphertext), nil
}

// DecryptFile verifies expectedTag in constant time and only then decrypts.
//
// A tag mismatch yields common.ErrIntegrity and nothing is decrypted. Bad
// block alignment or padding after a matching tag yields common.ErrFormat.
func DecryptFile(ciphertext, fileKey, iv, expectedTag []byte) ([]byte, error) {
	block, err := newFileBlock(fileKey, iv)
	if err != nil {
		return nil, err
	}

	if !hmac.Equal(computeTag(fileKey, iv, ciphertext), expectedTag) {
		return nil, common.ErrIntegrity
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d: %w", len(ciphertext), common.ErrFormat)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

func newFileBlock(fileKey, iv []byte) (cipher.Block, error) {
	if len(fileKey) != FileKeySize {
		return nil, fmt.Errorf("file key must be %d bytes: %w", FileKeySize, common.ErrFormat)
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("iv must be %d bytes: %w", IVSize, common.ErrFormat)
	}
	return aes.NewCipher(fileKey)
}

func computeTag(key, iv, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

// pkcs7Pad always adds padding, so block-aligned input grows by one block.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, common.ErrFormat
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, common.ErrFormat
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, common.ErrFormat
		}
	}
	return data[:len(data)-n], nil
}
