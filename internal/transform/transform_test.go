package transform

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/youtube-channel-etl/internal/duration"
	"github.com/ad-tracker/youtube-channel-etl/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func rawVideo(id, dur string) models.RawVideo {
	return models.RawVideo{
		VideoID:       id,
		ChannelTitle:  ptr("Luke Barousse"),
		Title:         ptr("SQL in 10 minutes"),
		Description:   ptr("desc"),
		Tags:          []string{"sql", "data"},
		PublishedAt:   ptr("2023-05-01T14:30:05Z"),
		ViewCount:     ptr("1200"),
		LikeCount:     ptr("34"),
		FavoriteCount: ptr("0"),
		CommentCount:  ptr("5"),
		Duration:      ptr(dur),
		Definition:    ptr("hd"),
		Caption:       ptr("false"),
	}
}

func TestTransformer_Videos(t *testing.T) {
	t.Parallel()

	records, report := New(nil).Videos([]models.RawVideo{rawVideo("a", "PT1H2M10S")})
	require.Len(t, records, 1)

	ts := time.Date(2023, 5, 1, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, models.VideoRecord{
		VideoID:          "a",
		ChannelTitle:     ptr("Luke Barousse"),
		Title:            ptr("SQL in 10 minutes"),
		Description:      ptr("desc"),
		PublishedAt:      &ts,
		PublishDayName:   ptr("Monday"),
		PublishDate:      ptr("2023-05-01"),
		PublishTime:      ptr("14:30:05"),
		ViewCount:        ptr(int64(1200)),
		LikeCount:        ptr(int64(34)),
		CommentCount:     ptr(int64(5)),
		Duration:         "PT1H2M10S",
		DurationSecs:     3722,
		DurationStandard: "01:02:10",
		Definition:       ptr("hd"),
		Caption:          ptr("false"),
	}, records[0])
	assert.Equal(t, Report{Input: 1, Kept: 1}, report)
}

func TestTransformer_DropsLongAndMalformed(t *testing.T) {
	t.Parallel()

	missing := rawVideo("missing", "")
	missing.Duration = nil

	raw := []models.RawVideo{
		rawVideo("zero", "PT0S"),
		rawVideo("day", "PT24H0M0S"),
		rawVideo("twodays", "P2D"),
		rawVideo("over", "PT24H0M1S"),
		rawVideo("bad", "1:00"),
		rawVideo("years", "P1Y"),
		missing,
	}

	records, report := New(nil).Videos(raw)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.VideoID
	}
	assert.Equal(t, []string{"zero", "day"}, ids)
	assert.Equal(t, "00:00:00", records[0].DurationStandard)
	assert.Equal(t, int64(86400), records[1].DurationSecs)
	assert.Equal(t, "24:00:00", records[1].DurationStandard)

	assert.Equal(t, Report{Input: 7, Kept: 2, DroppedOverLimit: 2, DroppedMalformed: 3}, report)
	assert.Equal(t, 5, report.Dropped())
}

func TestTransformer_StandardRoundTrip(t *testing.T) {
	t.Parallel()

	raw := []models.RawVideo{
		rawVideo("a", "PT15S"),
		rawVideo("b", "PT4M13S"),
		rawVideo("c", "PT1H"),
		rawVideo("d", "P1DT0S"),
		rawVideo("e", "PT23H59M59.9S"),
	}

	records, _ := New(nil).Videos(raw)
	require.Len(t, records, len(raw))

	for _, r := range records {
		secs, err := duration.ParseStandard(r.DurationStandard)
		require.NoError(t, err, r.VideoID)
		assert.Equal(t, r.DurationSecs, secs, r.VideoID)
		assert.GreaterOrEqual(t, r.DurationSecs, int64(0))
		assert.LessOrEqual(t, r.DurationSecs, int64(MaxDurationSecs))
	}
}

func TestTransformer_Idempotent(t *testing.T) {
	t.Parallel()

	raw := []models.RawVideo{
		rawVideo("a", "PT1M"),
		rawVideo("b", "P2D"),
		rawVideo("c", "PT3M3S"),
	}
	channels := []models.RawChannel{{ChannelName: "Ken Jee", Subscribers: "1", Views: "2", TotalVideos: "3", PlaylistID: "UU1"}}

	tr := New(nil)
	c1, v1, r1 := tr.Transform(channels, raw)
	c2, v2, r2 := tr.Transform(channels, raw)

	assert.Equal(t, c1, c2)
	assert.Equal(t, v1, v2)
	assert.Equal(t, r1, r2)
	assert.Equal(t, VideoTable(v1), VideoTable(v2))
}

func TestTransformer_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	raw := []models.RawVideo{rawVideo("a", "PT1M")}
	records, _ := New(nil).Videos(raw)

	*raw[0].Title = "changed"
	assert.Equal(t, "SQL in 10 minutes", *records[0].Title)
}

func TestTransformer_MissingFieldsStayNull(t *testing.T) {
	t.Parallel()

	raw := models.RawVideo{VideoID: "a", Duration: ptr("PT30S")}
	records, _ := New(nil).Videos([]models.RawVideo{raw})
	require.Len(t, records, 1)

	r := records[0]
	assert.Nil(t, r.ChannelTitle)
	assert.Nil(t, r.ViewCount)
	assert.Nil(t, r.PublishedAt)
	assert.Nil(t, r.PublishDayName)
	assert.Nil(t, r.PublishDate)
	assert.Nil(t, r.PublishTime)
}

func TestTransformer_PublishedAtKeepsOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		day     string
		date    string
		clock   string
		wantNil bool
	}{
		{name: "utc", in: "2021-12-31T23:59:59Z", day: "Friday", date: "2021-12-31", clock: "23:59:59"},
		{name: "positive offset", in: "2022-01-01T01:15:00+05:30", day: "Saturday", date: "2022-01-01", clock: "01:15:00"},
		{name: "fractional seconds", in: "2020-02-29T08:00:00.123Z", day: "Saturday", date: "2020-02-29", clock: "08:00:00"},
		{name: "garbage", in: "yesterday", wantNil: true},
		{name: "date only", in: "2022-01-01", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := rawVideo("a", "PT1M")
			v.PublishedAt = ptr(tt.in)
			records, _ := New(nil).Videos([]models.RawVideo{v})
			require.Len(t, records, 1)
			r := records[0]

			if tt.wantNil {
				assert.Nil(t, r.PublishedAt)
				assert.Nil(t, r.PublishDayName)
				assert.Nil(t, r.PublishDate)
				assert.Nil(t, r.PublishTime)
				return
			}
			require.NotNil(t, r.PublishedAt)
			assert.Equal(t, tt.day, *r.PublishDayName)
			assert.Equal(t, tt.date, *r.PublishDate)
			assert.Equal(t, tt.clock, *r.PublishTime)
		})
	}
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   *string
		want *int64
	}{
		{name: "nil", in: nil, want: nil},
		{name: "integer", in: ptr("12345"), want: ptr(int64(12345))},
		{name: "zero", in: ptr("0"), want: ptr(int64(0))},
		{name: "padded", in: ptr(" 7 "), want: ptr(int64(7))},
		{name: "integral float", in: ptr("12.0"), want: ptr(int64(12))},
		{name: "exponent", in: ptr("1e3"), want: ptr(int64(1000))},
		{name: "fraction", in: ptr("12.5"), want: nil},
		{name: "empty", in: ptr(""), want: nil},
		{name: "text", in: ptr("n/a"), want: nil},
		{name: "nan", in: ptr("NaN"), want: nil},
		{name: "inf", in: ptr("Inf"), want: nil},
		{name: "too large", in: ptr("1e30"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseCount(tt.in))
		})
	}
}

func TestVideoTable(t *testing.T) {
	t.Parallel()

	v := rawVideo("a", "PT2M")
	v.LikeCount = nil
	records, _ := New(nil).Videos([]models.RawVideo{v})

	tbl := VideoTable(records)
	assert.Equal(t, VideosTable, tbl.Name)
	assert.Equal(t, []string{
		"video_id", "channel_title", "title", "description", "published_at",
		"view_count", "like_count", "comment_count", "duration", "definition",
		"caption", "duration_secs", "duration_standard", "publish_day_name",
		"publish_date", "publish_time",
	}, tbl.ColumnNames())
	require.Equal(t, 1, tbl.Len())

	row := tbl.Rows[0]
	assert.Equal(t, "a", row[tbl.ColumnIndex(ColVideoID)])
	assert.Equal(t, int64(1200), row[tbl.ColumnIndex(ColViewCount)])
	assert.Nil(t, row[tbl.ColumnIndex(ColLikeCount)])
	assert.Equal(t, int64(120), row[tbl.ColumnIndex(ColDurationSecs)])
	assert.Equal(t, "00:02:00", row[tbl.ColumnIndex(ColDurationStandard)])
	assert.IsType(t, time.Time{}, row[tbl.ColumnIndex(ColPublishedAt)])

	title := tbl.Columns[tbl.ColumnIndex(ColTitle)]
	assert.Equal(t, 200, title.MaxLength)
	assert.Zero(t, tbl.Columns[tbl.ColumnIndex(ColVideoID)].MaxLength)
}

func TestChannelTable(t *testing.T) {
	t.Parallel()

	records := New(nil).Channels([]models.RawChannel{
		{ChannelName: "Alex The Analyst", Subscribers: "500000", Views: "20000000", TotalVideos: "300", PlaylistID: "UU7"},
		{ChannelName: strings.Repeat("x", 3)},
	})

	tbl := ChannelTable(records)
	assert.Equal(t, ChannelsTable, tbl.Name)
	assert.Equal(t, []string{"channel_name", "subscribers", "views", "total_videos", "playlist_id"}, tbl.ColumnNames())
	assert.Equal(t, []any{"Alex The Analyst", "500000", "20000000", "300", "UU7"}, tbl.Rows[0])
	assert.Equal(t, []any{"xxx", nil, nil, nil, nil}, tbl.Rows[1])
}
