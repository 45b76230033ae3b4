package providers

import (
	"context"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
)

// Channel names for the broadcast layer.
const (
	// ChannelSearch carries per-request events; owner key is the request ID
	ChannelSearch = "search"

	// ChannelSession carries session-scoped events; owner key is the session ID
	ChannelSession = "session"

	// ChannelDefault is where legacy envelopes without a channel land
	ChannelDefault = ChannelSearch
)

// Publisher is the single publish primitive used by every producer
// (pipeline, enrichment worker). Messages with no live subscriber are
// backlogged, not dropped.
type Publisher interface {
	Publish(ctx context.Context, channel, ownerKey string, event *entities.OutboundEvent) error
}
