package database

import (
	"time"

	"github.com/lysyi3m/veni-vici/app/discover"
)

// Session is the caller-side discovery state: the user's bans and the
// recently seen item ids, oldest first.
type Session struct {
	ID        string
	Bans      []discover.BanEntry
	SeenIDs   []int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SessionRepository interface {
	CreateSession(sessionID string, bans []discover.BanEntry) error
	GetSession(sessionID string) (*Session, error)
	DeleteSession(sessionID string) (bool, error)
	SessionCount() (int, error)

	GetBans(sessionID string) ([]discover.BanEntry, error)
	UpdateBans(sessionID string, fn func([]discover.BanEntry) ([]discover.BanEntry, bool)) ([]discover.BanEntry, bool, error)

	GetSeen(sessionID string) ([]int64, error)
	ReplaceSeen(sessionID string, ids []int64) error
	UpdateSeen(sessionID string, fn func([]int64) []int64) error
}
