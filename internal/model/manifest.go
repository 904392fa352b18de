package model

import "time"

// Sheet is one spreadsheet found in a remote folder listing.
type Sheet struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Tabs       []string  `json:"tabs,omitempty"`
}

// ManifestEntry is the cached listing of one remote folder.
type ManifestEntry struct {
	FolderID  string    `json:"folder_id"`
	ScannedAt time.Time `json:"scanned_at"`
	Sheets    []Sheet   `json:"sheets"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e ManifestEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.ScannedAt) < ttl
}
