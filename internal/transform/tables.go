package transform

import (
	"github.com/ad-tracker/youtube-channel-etl/internal/dataset"
	"github.com/ad-tracker/youtube-channel-etl/internal/models"
)

// Destination table names.
const (
	VideosTable   = "videos"
	ChannelsTable = "channels"
)

// Canonical column names.
const (
	ColVideoID          = "video_id"
	ColChannelTitle     = "channel_title"
	ColTitle            = "title"
	ColDescription      = "description"
	ColPublishedAt      = "published_at"
	ColViewCount        = "view_count"
	ColLikeCount        = "like_count"
	ColCommentCount     = "comment_count"
	ColDuration         = "duration"
	ColDefinition       = "definition"
	ColCaption          = "caption"
	ColDurationSecs     = "duration_secs"
	ColDurationStandard = "duration_standard"
	ColPublishDayName   = "publish_day_name"
	ColPublishDate      = "publish_date"
	ColPublishTime      = "publish_time"

	ColChannelName = "channel_name"
	ColSubscribers = "subscribers"
	ColViews       = "views"
	ColTotalVideos = "total_videos"
	ColPlaylistID  = "playlist_id"
)

// Primary key widths. Keys are never truncated; longer values fail validation.
const (
	MaxVideoIDLength     = 40
	MaxChannelNameLength = 40
)

// VideoColumns is the canonical videos schema, in table order.
var VideoColumns = []dataset.Column{
	{Name: ColVideoID, Kind: dataset.KindString},
	{Name: ColChannelTitle, Kind: dataset.KindString},
	{Name: ColTitle, Kind: dataset.KindString, MaxLength: 200},
	{Name: ColDescription, Kind: dataset.KindText},
	{Name: ColPublishedAt, Kind: dataset.KindTimestamp},
	{Name: ColViewCount, Kind: dataset.KindInt64},
	{Name: ColLikeCount, Kind: dataset.KindInt64},
	{Name: ColCommentCount, Kind: dataset.KindInt64},
	{Name: ColDuration, Kind: dataset.KindString},
	{Name: ColDefinition, Kind: dataset.KindString},
	{Name: ColCaption, Kind: dataset.KindString},
	{Name: ColDurationSecs, Kind: dataset.KindInt64},
	{Name: ColDurationStandard, Kind: dataset.KindTime},
	{Name: ColPublishDayName, Kind: dataset.KindString},
	{Name: ColPublishDate, Kind: dataset.KindDate},
	{Name: ColPublishTime, Kind: dataset.KindTime},
}

// ChannelColumns is the canonical channels schema, in table order.
var ChannelColumns = []dataset.Column{
	{Name: ColChannelName, Kind: dataset.KindString},
	{Name: ColSubscribers, Kind: dataset.KindString},
	{Name: ColViews, Kind: dataset.KindString, MaxLength: 200},
	{Name: ColTotalVideos, Kind: dataset.KindText},
	{Name: ColPlaylistID, Kind: dataset.KindString},
}

// VideoTable renders video records as the canonical videos table.
func VideoTable(records []models.VideoRecord) *dataset.Table {
	tbl := dataset.New(VideosTable, VideoColumns...)
	tbl.Rows = make([][]any, 0, len(records))
	for _, r := range records {
		tbl.Rows = append(tbl.Rows, []any{
			r.VideoID,
			optional(r.ChannelTitle),
			optional(r.Title),
			optional(r.Description),
			optional(r.PublishedAt),
			optional(r.ViewCount),
			optional(r.LikeCount),
			optional(r.CommentCount),
			r.Duration,
			optional(r.Definition),
			optional(r.Caption),
			r.DurationSecs,
			r.DurationStandard,
			optional(r.PublishDayName),
			optional(r.PublishDate),
			optional(r.PublishTime),
		})
	}
	return tbl
}

// ChannelTable renders channel records as the canonical channels table. Empty
// strings become nulls.
func ChannelTable(records []models.ChannelRecord) *dataset.Table {
	tbl := dataset.New(ChannelsTable, ChannelColumns...)
	tbl.Rows = make([][]any, 0, len(records))
	for _, r := range records {
		tbl.Rows = append(tbl.Rows, []any{
			nonEmpty(r.ChannelName),
			nonEmpty(r.Subscribers),
			nonEmpty(r.Views),
			nonEmpty(r.TotalVideos),
			nonEmpty(r.PlaylistID),
		})
	}
	return tbl
}

// optional dereferences p, giving an untyped nil for a nil pointer.
func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
