// Package transform turns raw API records into canonical channel and video rows.
package transform

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-channel-etl/internal/duration"
	"github.com/ad-tracker/youtube-channel-etl/internal/models"
)

// MaxDurationSecs is the longest video kept, in seconds.
const MaxDurationSecs = 24 * 60 * 60

// Drop reasons, used as metric labels.
const (
	ReasonOverLimit = "over_limit"
	ReasonMalformed = "malformed"
)

// Report counts what happened to the videos of one transform.
type Report struct {
	Input            int
	Kept             int
	DroppedOverLimit int
	DroppedMalformed int
}

// Dropped is the total number of removed videos.
func (r Report) Dropped() int {
	return r.DroppedOverLimit + r.DroppedMalformed
}

// Transformer cleans, types and derives canonical records. It holds no state
// between calls.
type Transformer struct {
	logger *zap.Logger
}

// New creates a new Transformer.
func New(logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{logger: logger}
}

// Transform converts both raw datasets.
func (t *Transformer) Transform(channels []models.RawChannel, videos []models.RawVideo) ([]models.ChannelRecord, []models.VideoRecord, Report) {
	records, report := t.Videos(videos)
	return t.Channels(channels), records, report
}

// Channels renames raw channels to canonical records.
func (t *Transformer) Channels(raw []models.RawChannel) []models.ChannelRecord {
	out := make([]models.ChannelRecord, 0, len(raw))
	for _, ch := range raw {
		out = append(out, models.ChannelRecord{
			ChannelName: ch.ChannelName,
			Subscribers: ch.Subscribers,
			Views:       ch.Views,
			TotalVideos: ch.TotalVideos,
			PlaylistID:  ch.PlaylistID,
		})
	}
	return out
}

// Videos converts raw videos, dropping those whose duration is malformed or
// longer than MaxDurationSecs. Input order is preserved.
func (t *Transformer) Videos(raw []models.RawVideo) ([]models.VideoRecord, Report) {
	report := Report{Input: len(raw)}
	out := make([]models.VideoRecord, 0, len(raw))

	for _, v := range raw {
		rec, reason := t.video(v)
		switch reason {
		case "":
			out = append(out, rec)
		case ReasonOverLimit:
			report.DroppedOverLimit++
		case ReasonMalformed:
			report.DroppedMalformed++
		}
	}

	report.Kept = len(out)
	if report.Dropped() > 0 {
		t.logger.Info("Dropped videos during transform",
			zap.Int("over_limit", report.DroppedOverLimit),
			zap.Int("malformed", report.DroppedMalformed),
		)
	}
	return out, report
}

func (t *Transformer) video(v models.RawVideo) (models.VideoRecord, string) {
	if v.Duration == nil {
		t.logger.Debug("Video has no duration", zap.String("video_id", v.VideoID))
		return models.VideoRecord{}, ReasonMalformed
	}

	d, err := duration.Parse(*v.Duration)
	if err != nil {
		var mde *duration.MalformedDurationError
		if errors.As(err, &mde) {
			t.logger.Debug("Malformed video duration",
				zap.String("video_id", v.VideoID),
				zap.String("duration", mde.Input),
				zap.String("reason", mde.Reason),
			)
		}
		return models.VideoRecord{}, ReasonMalformed
	}

	secs := d.TotalSeconds()
	if secs > MaxDurationSecs {
		return models.VideoRecord{}, ReasonOverLimit
	}

	rec := models.VideoRecord{
		VideoID:          v.VideoID,
		ChannelTitle:     cloneString(v.ChannelTitle),
		Title:            cloneString(v.Title),
		Description:      cloneString(v.Description),
		ViewCount:        ParseCount(v.ViewCount),
		LikeCount:        ParseCount(v.LikeCount),
		CommentCount:     ParseCount(v.CommentCount),
		Duration:         *v.Duration,
		DurationSecs:     secs,
		DurationStandard: d.Standard(),
		Definition:       cloneString(v.Definition),
		Caption:          cloneString(v.Caption),
	}

	if ts, ok := ParsePublishedAt(v.PublishedAt); ok {
		rec.PublishedAt = &ts
		rec.PublishDayName = stringPtr(ts.Weekday().String())
		rec.PublishDate = stringPtr(ts.Format(time.DateOnly))
		rec.PublishTime = stringPtr(ts.Format(time.TimeOnly))
	}

	return rec, ""
}

// ParseCount coerces an API count to an int64. Empty, non-numeric and non-integral
// values give nil. Integral floats such as "12.0" or "1e3" are accepted.
func ParseCount(s *string) *int64 {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}

	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return &n
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil
	}
	n := int64(f)
	return &n
}

// ParsePublishedAt parses an RFC 3339 timestamp, keeping its offset.
func ParsePublishedAt(s *string) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*s))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func stringPtr(s string) *string {
	return &s
}
