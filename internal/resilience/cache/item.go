package cache

import "time"

type item struct {
	key          string
	data         []byte
	size         int64
	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
	accessCount  int64
	owner        string
	compressed   bool
	checksum     uint64
}

func (it *item) expired(now time.Time) bool {
	return !now.Before(it.expiresAt)
}

// ItemInfo describes a stored item without its value.
type ItemInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	Owner        string    `json:"owner,omitempty"`
	Compressed   bool      `json:"compressed"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int64     `json:"access_count"`
}

func (it *item) info() ItemInfo {
	return ItemInfo{
		Key:          it.key,
		Size:         it.size,
		Owner:        it.owner,
		Compressed:   it.compressed,
		CreatedAt:    it.createdAt,
		ExpiresAt:    it.expiresAt,
		LastAccessed: it.lastAccessed,
		AccessCount:  it.accessCount,
	}
}
