package models

import "time"

// ShareState is derived from the stored counters and the clock; it is never
// persisted.
type ShareState string

const (
	ShareActive   ShareState = "active"
	ShareExpired  ShareState = "expired"
	ShareConsumed ShareState = "consumed"
)

// Share is a bearer link to one file, limited by time and download count.
type Share struct {
	ID           string
	FileID       string
	Token        string
	ExpiresAt    time.Time
	MaxDownloads int
	Downloads    int
	CreatedAt    time.Time
}

// State evaluates the share at now. Expiry is inclusive: a share is expired
// from the instant now reaches ExpiresAt.
func (s *Share) State(now time.Time) ShareState {
	if !now.Before(s.ExpiresAt) {
		return ShareExpired
	}
	if s.Downloads >= s.MaxDownloads {
		return ShareConsumed
	}
	return ShareActive
}

// ShareInfo is a share link as listed to the owner of the file.
type ShareInfo struct {
	ID           string     `json:"id"`
	Token        string     `json:"token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	MaxDownloads int        `json:"max_downloads"`
	Downloads    int        `json:"downloads"`
	OriginalName string     `json:"filename_original"`
	State        ShareState `json:"state"`
}
