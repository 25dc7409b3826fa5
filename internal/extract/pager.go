package extract

import (
	"context"
	"iter"

	"go.uber.org/zap"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/ad-tracker/youtube-channel-etl/internal/service/youtube"
)

// PlaylistItemLister is the playlistItems.list call.
type PlaylistItemLister interface {
	ListPlaylistItems(ctx context.Context, playlistID, pageToken string, maxResults int64) (*ytapi.PlaylistItemListResponse, error)
}

// Pager walks every page of a playlist.
type Pager struct {
	client   PlaylistItemLister
	pageSize int64
	logger   *zap.Logger
}

// NewPager creates a new Pager. A pageSize outside 1..50 uses 50.
func NewPager(client PlaylistItemLister, pageSize int64, logger *zap.Logger) *Pager {
	if pageSize <= 0 || pageSize > youtube.MaxResults {
		pageSize = youtube.MaxResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pager{client: client, pageSize: pageSize, logger: logger}
}

// Pages yields the video ids of each page in order. Every range starts from the
// first page. A failed page yields a *TransportError and ends the sequence.
func (p *Pager) Pages(ctx context.Context, playlistID string) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		seen := make(map[string]struct{})
		token := ""

		for page := 1; ; page++ {
			resp, err := p.client.ListPlaylistItems(ctx, playlistID, token, p.pageSize)
			if err != nil {
				yield(nil, &TransportError{Stage: StagePlaylistItems, Target: playlistID, Err: err})
				return
			}

			ids := make([]string, 0, len(resp.Items))
			for _, item := range resp.Items {
				if item == nil || item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
					p.logger.Debug("Skipping playlist item without video id",
						zap.String("playlist_id", playlistID),
						zap.Int("page", page),
					)
					continue
				}
				ids = append(ids, item.ContentDetails.VideoId)
			}

			if !yield(ids, nil) {
				return
			}

			token = resp.NextPageToken
			if token == "" {
				return
			}
			if _, dup := seen[token]; dup {
				yield(nil, &TransportError{Stage: StagePlaylistItems, Target: playlistID, Err: ErrPageTokenLoop})
				return
			}
			seen[token] = struct{}{}
		}
	}
}

// VideoIDs drains the playlist. On error no ids are returned.
func (p *Pager) VideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	var all []string
	pages := 0
	for ids, err := range p.Pages(ctx, playlistID) {
		if err != nil {
			return nil, err
		}
		pages++
		all = append(all, ids...)
	}

	p.logger.Debug("Drained playlist",
		zap.String("playlist_id", playlistID),
		zap.Int("pages", pages),
		zap.Int("count", len(all)),
	)
	return all, nil
}
