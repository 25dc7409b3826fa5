// Package pipeline sequences the extract, transform, validate and load stages
// of one ETL run.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-channel-etl/internal/extract"
	"github.com/ad-tracker/youtube-channel-etl/internal/models"
)

// API is the subset of the YouTube client the orchestrator drives.
type API interface {
	extract.ChannelLister
	extract.PlaylistItemLister
	extract.VideoLister
}

// ExtractResult holds the raw datasets of one run.
type ExtractResult struct {
	Channels []models.RawChannel
	Videos   []models.RawVideo
	// FailedChannels names channels skipped under ContinueOnChannelError.
	FailedChannels []string
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	PageSize               int64
	ContinueOnChannelError bool
}

// Orchestrator runs harvester, pager and fetcher across the configured
// channels, one channel at a time.
type Orchestrator struct {
	harvester       *extract.Harvester
	pager           *extract.Pager
	fetcher         *extract.Fetcher
	continueOnError bool
	logger          *zap.Logger
}

// NewOrchestrator creates a new Orchestrator over api.
func NewOrchestrator(api API, opts OrchestratorOptions, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		harvester:       extract.NewHarvester(api, logger.Named("harvester")),
		pager:           extract.NewPager(api, opts.PageSize, logger.Named("pager")),
		fetcher:         extract.NewFetcher(api, logger.Named("fetcher")),
		continueOnError: opts.ContinueOnChannelError,
		logger:          logger,
	}
}

// Extract harvests the channels once, then drains and fetches each channel's
// uploads. A channel's videos join the result only once all of them were
// fetched.
func (o *Orchestrator) Extract(ctx context.Context, channelIDs []string) (*ExtractResult, error) {
	channels, err := o.harvester.Harvest(ctx, channelIDs)
	if err != nil {
		return nil, err
	}

	result := &ExtractResult{Channels: channels}
	for _, ch := range channels {
		log := o.logger.With(zap.String("channel", ch.ChannelName), zap.String("playlist_id", ch.PlaylistID))

		if ch.PlaylistID == "" {
			log.Warn("Channel has no uploads playlist, skipping")
			continue
		}

		videos, err := o.channelVideos(ctx, ch.PlaylistID)
		if err != nil {
			if !o.continueOnError || ctx.Err() != nil {
				return nil, err
			}
			log.Warn("Skipping channel after extraction failure", zap.Error(err))
			result.FailedChannels = append(result.FailedChannels, ch.ChannelName)
			continue
		}

		result.Videos = append(result.Videos, videos...)
		log.Info("Extracted channel videos", zap.Int("count", len(videos)))
	}

	return result, nil
}

func (o *Orchestrator) channelVideos(ctx context.Context, playlistID string) ([]models.RawVideo, error) {
	ids, err := o.pager.VideoIDs(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return o.fetcher.Fetch(ctx, ids)
}
