// Package models contains the raw and canonical records produced by the ETL pipeline.
package models

import "time"

// RawChannel is one channel as harvested from channels.list, keyed by the API field names.
//
// Counts stay in the string form the API returns them in.
type RawChannel struct {
	ChannelName string `json:"channelName"`
	Subscribers string `json:"subscribers"`
	Views       string `json:"views"`
	TotalVideos string `json:"totalVideos"`
	PlaylistID  string `json:"playlistId"`
}

// RawVideo is the fixed projection of one videos.list item. A nil field means the
// API did not return it.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RawVideo struct {
	VideoID string `json:"video_id"`

	// snippet
	ChannelTitle *string  `json:"channelTitle"`
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Tags         []string `json:"tags"`
	PublishedAt  *string  `json:"publishedAt"`

	// statistics
	ViewCount     *string `json:"viewCount"`
	LikeCount     *string `json:"likeCount"`
	FavoriteCount *string `json:"favoriteCount"`
	CommentCount  *string `json:"commentCount"`

	// contentDetails
	Duration   *string `json:"duration"`
	Definition *string `json:"definition"`
	Caption    *string `json:"caption"`
}

// ChannelRecord is the canonical row of the channels table.
type ChannelRecord struct {
	ChannelName string `json:"channel_name"`
	Subscribers string `json:"subscribers"`
	Views       string `json:"views"`
	TotalVideos string `json:"total_videos"`
	PlaylistID  string `json:"playlist_id"`
}

// VideoRecord is the canonical row of the videos table.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoRecord struct {
	VideoID          string     `json:"video_id"`
	ChannelTitle     *string    `json:"channel_title"`
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	PublishedAt      *time.Time `json:"published_at"`
	PublishDayName   *string    `json:"publish_day_name"`
	PublishDate      *string    `json:"publish_date"` // YYYY-MM-DD
	PublishTime      *string    `json:"publish_time"` // HH:MM:SS
	ViewCount        *int64     `json:"view_count"`
	LikeCount        *int64     `json:"like_count"`
	CommentCount     *int64     `json:"comment_count"`
	Duration         string     `json:"duration"`
	DurationSecs     int64      `json:"duration_secs"`
	DurationStandard string     `json:"duration_standard"`
	Definition       *string    `json:"definition"`
	Caption          *string    `json:"caption"`
}

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

// RunStatus constants.
const (
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// RunSummary describes one pipeline run. It is logged at the end of every run and
// published to the message broker when one is configured.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RunSummary struct {
	RunID            string    `json:"run_id"`
	Status           RunStatus `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	Channels         int       `json:"channels"`
	RawVideos        int       `json:"raw_videos"`
	Videos           int       `json:"videos"`
	DroppedOverLimit int       `json:"dropped_over_limit"`
	DroppedMalformed int       `json:"dropped_malformed"`
	FailedChannels   []string  `json:"failed_channels,omitempty"`
	FailedStage      string    `json:"failed_stage,omitempty"`
	Error            string    `json:"error,omitempty"`
}
