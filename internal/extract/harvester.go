package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/ad-tracker/youtube-channel-etl/internal/models"
	"github.com/ad-tracker/youtube-channel-etl/internal/service/youtube"
)

// ChannelLister is the channels.list call.
type ChannelLister interface {
	ListChannels(ctx context.Context, channelIDs []string) ([]*ytapi.Channel, error)
}

// Harvester fetches channel statistics for a batch of channel ids.
type Harvester struct {
	client ChannelLister
	logger *zap.Logger
}

// NewHarvester creates a new Harvester.
func NewHarvester(client ChannelLister, logger *zap.Logger) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{client: client, logger: logger}
}

// Harvest returns one RawChannel per channel the API knows about, in API order.
// It issues exactly one API call.
func (h *Harvester) Harvest(ctx context.Context, channelIDs []string) ([]models.RawChannel, error) {
	if len(channelIDs) == 0 {
		return nil, ErrNoChannelIDs
	}
	if len(channelIDs) > youtube.MaxResults {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyChannelIDs, len(channelIDs), youtube.MaxResults)
	}

	items, err := h.client.ListChannels(ctx, channelIDs)
	if err != nil {
		return nil, &TransportError{
			Stage:  StageChannels,
			Target: strings.Join(channelIDs, ","),
			Err:    err,
		}
	}

	channels := make([]models.RawChannel, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		channels = append(channels, rawChannel(item))
	}

	if len(channels) < len(channelIDs) {
		h.logger.Warn("Some channels were not returned by the API",
			zap.Int("requested", len(channelIDs)),
			zap.Int("returned", len(channels)),
		)
	}

	h.logger.Info("Harvested channels", zap.Int("count", len(channels)))
	return channels, nil
}

func rawChannel(item *ytapi.Channel) models.RawChannel {
	var ch models.RawChannel
	if item.Snippet != nil {
		ch.ChannelName = item.Snippet.Title
	}
	if s := item.Statistics; s != nil {
		ch.Subscribers = strconv.FormatUint(s.SubscriberCount, 10)
		ch.Views = strconv.FormatUint(s.ViewCount, 10)
		ch.TotalVideos = strconv.FormatUint(s.VideoCount, 10)
	}
	if cd := item.ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		ch.PlaylistID = cd.RelatedPlaylists.Uploads
	}
	return ch
}
