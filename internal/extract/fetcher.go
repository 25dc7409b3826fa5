package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-channel-etl/internal/models"
	"github.com/ad-tracker/youtube-channel-etl/internal/service/youtube"
)

// VideoLister is the videos.list call.
type VideoLister interface {
	ListVideos(ctx context.Context, videoIDs []string) ([]*youtube.Video, error)
}

// Fetcher retrieves video details in batches.
type Fetcher struct {
	client VideoLister
	logger *zap.Logger
}

// NewFetcher creates a new Fetcher.
func NewFetcher(client VideoLister, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, logger: logger}
}

// Fetch returns the details of every id the API knows about, batch by batch in
// input order. Any failed batch aborts the fetch.
func (f *Fetcher) Fetch(ctx context.Context, videoIDs []string) ([]models.RawVideo, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}

	videos := make([]models.RawVideo, 0, len(videoIDs))
	for start := 0; start < len(videoIDs); start += youtube.MaxResults {
		end := min(start+youtube.MaxResults, len(videoIDs))
		batch := videoIDs[start:end]

		items, err := f.client.ListVideos(ctx, batch)
		if err != nil {
			return nil, &TransportError{
				Stage:  StageVideos,
				Target: fmt.Sprintf("batch %d-%d", start, end-1),
				Err:    err,
			}
		}

		for _, item := range items {
			if item == nil {
				continue
			}
			videos = append(videos, rawVideo(item))
		}

		f.logger.Debug("Fetched video batch",
			zap.Int("batch", start/youtube.MaxResults),
			zap.Int("requested", len(batch)),
			zap.Int("count", len(items)),
		)
	}

	return videos, nil
}

func rawVideo(item *youtube.Video) models.RawVideo {
	v := models.RawVideo{VideoID: item.ID}

	if s := item.Snippet; s != nil {
		v.ChannelTitle = s.ChannelTitle
		v.Title = s.Title
		v.Description = s.Description
		v.Tags = s.Tags
		v.PublishedAt = s.PublishedAt
	}

	if s := item.Statistics; s != nil {
		v.ViewCount = s.ViewCount.StringPtr()
		v.LikeCount = s.LikeCount.StringPtr()
		v.FavoriteCount = s.FavoriteCount.StringPtr()
		v.CommentCount = s.CommentCount.StringPtr()
	}

	if cd := item.ContentDetails; cd != nil {
		v.Duration = cd.Duration
		v.Definition = cd.Definition
		v.Caption = cd.Caption
	}

	return v
}
