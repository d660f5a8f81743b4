package api

import (
	"context"

	"github.com/lysyi3m/veni-vici/app/database"
	"github.com/lysyi3m/veni-vici/app/discover"
	"github.com/lysyi3m/veni-vici/app/tasks"
)

type DiscovererInterface interface {
	GetRandomArtworkAvoiding(ctx context.Context, bans []discover.BanEntry, seenIDs []int64, maxTries int) (discover.Item, error)
}

var _ DiscovererInterface = (*discover.Retriever)(nil)

type Handler struct {
	sessions   database.SessionRepository
	discoverer DiscovererInterface
	pages      tasks.PageCounter
	scheduler  tasks.TaskSchedulerInterface
	presets    discover.BanList
	seenLimit  int
	maxTries   int
}

type createSessionRequest struct {
	Bans        []discover.BanEntry `json:"bans"`
	SkipPresets bool                `json:"skipPresets"`
}

type sessionResponse struct {
	ID        string              `json:"id"`
	Bans      []discover.BanEntry `json:"bans"`
	Seen      []int64             `json:"seen"`
	CreatedAt string              `json:"created_at,omitempty"`
	UpdatedAt string              `json:"updated_at,omitempty"`
}
