// Package models defines server-side data models persisted in the row store.
package models

import "time"

// File is an encrypted upload. The ciphertext lives in the blob store under
// StorageKey; the per-file key is only persisted wrapped under the master key.
type File struct {
	ID string
	// OwnerID is the caller identity that uploaded the file.
	OwnerID string
	// OriginalName is user supplied and only used for display and the
	// download filename.
	OriginalName string
	// StorageKey is the opaque blob-store identifier of the ciphertext.
	StorageKey string
	// WrappedKey is nonce || tag || ciphertext of the file key (hex in the DB).
	WrappedKey []byte
	// IV is the AES-CBC initialization vector (hex in the DB).
	IV []byte
	// HMAC is the integrity tag over IV || ciphertext (hex in the DB).
	HMAC      []byte
	CreatedAt time.Time
	// ExpiresAt is carried for schema compatibility; uploads leave it nil.
	ExpiresAt *time.Time
}

// FileInfo is the caller-facing projection of File. It never carries key
// material.
type FileInfo struct {
	ID           string     `json:"id"`
	OriginalName string     `json:"filename_original"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// Info returns the listing projection of f.
func (f *File) Info() FileInfo {
	return FileInfo{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		CreatedAt:    f.CreatedAt,
		ExpiresAt:    f.ExpiresAt,
	}
}
