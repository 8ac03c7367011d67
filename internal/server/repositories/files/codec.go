package files

import (
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/smartids/internal/server/models"
)

// keyColumns hex-encodes the key material columns.
func keyColumns(f *models.File) (keyEnc, iv, mac string) {
	return hex.EncodeToString(f.WrappedKey), hex.EncodeToString(f.IV), hex.EncodeToString(f.HMAC)
}

// decodeKeyColumns is the inverse of keyColumns.
func decodeKeyColumns(f *models.File, keyEnc, iv, mac string) error {
	var err error
	if f.WrappedKey, err = hex.DecodeString(keyEnc); err != nil {
		return fmt.Errorf("decode key_enc: %w", err)
	}
	if f.IV, err = hex.DecodeString(iv); err != nil {
		return fmt.Errorf("decode iv: %w", err)
	}
	if f.HMAC, err = hex.DecodeString(mac); err != nil {
		return fmt.Errorf("decode hmac: %w", err)
	}
	return nil
}
