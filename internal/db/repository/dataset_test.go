package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/youtube-channel-etl/internal/dataset"
	"github.com/ad-tracker/youtube-channel-etl/internal/db"
	"github.com/ad-tracker/youtube-channel-etl/internal/db/testutil"
	"github.com/ad-tracker/youtube-channel-etl/internal/models"
	"github.com/ad-tracker/youtube-channel-etl/internal/transform"
)

func ptr[T any](v T) *T {
	return &v
}

func sampleTables() (*dataset.Table, *dataset.Table) {
	raw := []models.RawVideo{
		{
			VideoID:      "vid00000001",
			ChannelTitle: ptr("Ken Jee"),
			Title:        ptr(strings.Repeat("é", 250)),
			PublishedAt:  ptr("2023-05-01T14:30:05+02:00"),
			ViewCount:    ptr("1000"),
			Duration:     ptr("PT24H"),
		},
		{
			VideoID:      "vid00000002",
			ChannelTitle: ptr("Ken Jee"),
			Title:        ptr("Short"),
			Duration:     ptr("PT5M"),
			LikeCount:    ptr("n/a"),
		},
	}
	channels := []models.RawChannel{
		{ChannelName: "Ken Jee", Subscribers: "250000", Views: "9000000", TotalVideos: "270", PlaylistID: "UU2"},
	}

	tr := transform.New(nil)
	chRecords, videoRecords, _ := tr.Transform(channels, raw)
	return transform.ChannelTable(chRecords), transform.VideoTable(videoRecords)
}

func TestDatasetRepository_ReplaceTables(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewDatasetRepository(td.Pool)
	ctx := context.Background()

	t.Run("loads both tables", func(t *testing.T) {
		td.TruncateTables(t)

		channels, videos := sampleTables()
		results, err := repo.ReplaceTables(ctx, channels, videos)
		require.NoError(t, err)
		assert.Equal(t, []LoadResult{{Table: "channels", Rows: 1}, {Table: "videos", Rows: 2}}, results)

		var (
			title       string
			publishedAt time.Time
			day         string
			date        pgtype.Date
			clock       pgtype.Time
			standard    pgtype.Time
			secs        int64
			likes       *int64
		)
		err = td.Pool.QueryRow(ctx, `
			SELECT title, published_at, publish_day_name, publish_date, publish_time,
			       duration_standard, duration_secs, like_count
			FROM videos WHERE video_id = 'vid00000001'
		`).Scan(&title, &publishedAt, &day, &date, &clock, &standard, &secs, &likes)
		require.NoError(t, err)

		assert.Equal(t, 200, len([]rune(title)))
		assert.True(t, publishedAt.Equal(time.Date(2023, 5, 1, 12, 30, 5, 0, time.UTC)))
		assert.Equal(t, "Monday", day)
		assert.Equal(t, "2023-05-01", date.Time.Format(time.DateOnly))
		assert.Equal(t, int64(14*3600+30*60+5)*1_000_000, clock.Microseconds)
		assert.Equal(t, int64(86400)*1_000_000, standard.Microseconds)
		assert.Equal(t, int64(86400), secs)
		assert.Nil(t, likes)
	})

	t.Run("replaces previous contents", func(t *testing.T) {
		td.TruncateTables(t)

		channels, videos := sampleTables()
		_, err := repo.ReplaceTables(ctx, channels, videos)
		require.NoError(t, err)

		smaller := transform.VideoTable([]models.VideoRecord{{
			VideoID:          "vid00000003",
			Duration:         "PT1S",
			DurationSecs:     1,
			DurationStandard: "00:00:01",
		}})
		emptyChannels := transform.ChannelTable(nil)

		results, err := repo.ReplaceTables(ctx, emptyChannels, smaller)
		require.NoError(t, err)
		assert.Equal(t, int64(0), results[0].Rows)
		assert.Equal(t, int64(1), results[1].Rows)

		n, err := repo.Count(ctx, "videos")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.Count(ctx, "channels")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("failure leaves previous contents", func(t *testing.T) {
		td.TruncateTables(t)

		channels, videos := sampleTables()
		_, err := repo.ReplaceTables(ctx, channels, videos)
		require.NoError(t, err)

		dupChannels := transform.ChannelTable([]models.ChannelRecord{{ChannelName: "a"}, {ChannelName: "a"}})
		_, err = repo.ReplaceTables(ctx, transform.VideoTable(nil), dupChannels)
		require.Error(t, err)

		var pe *db.PersistenceError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "channels", pe.Table)
		assert.Equal(t, "copy", pe.Op)
		assert.True(t, db.IsDuplicateKey(err))

		n, err := repo.Count(ctx, "videos")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("overlong key is rejected", func(t *testing.T) {
		td.TruncateTables(t)

		prefix := strings.Repeat("x", transform.MaxChannelNameLength)
		channels := transform.ChannelTable([]models.ChannelRecord{{ChannelName: prefix + "A"}, {ChannelName: prefix + "B"}})
		_, err := repo.ReplaceTables(ctx, channels)
		require.Error(t, err)
		assert.ErrorIs(t, err, db.ErrValueTooLong)
		assert.False(t, db.IsDuplicateKey(err))
	})

	t.Run("unknown table", func(t *testing.T) {
		tbl := dataset.New("nope", dataset.Column{Name: "x", Kind: dataset.KindString})
		_, err := repo.ReplaceTables(ctx, tbl)
		require.Error(t, err)
		assert.True(t, db.IsUndefinedTable(err))
	})
}

func TestCopyValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		col     dataset.Column
		in      any
		want    any
		wantErr bool
	}{
		{name: "nil", col: dataset.Column{Kind: dataset.KindInt64}, in: nil, want: nil},
		{name: "string", col: dataset.Column{Kind: dataset.KindString}, in: "abc", want: "abc"},
		{name: "truncated", col: dataset.Column{Kind: dataset.KindString, MaxLength: 2}, in: "héllo", want: "hé"},
		{name: "key column kept whole", col: transform.VideoColumns[0], in: strings.Repeat("x", 41), want: strings.Repeat("x", 41)},
		{name: "int", col: dataset.Column{Kind: dataset.KindInt64}, in: int64(7), want: int64(7)},
		{name: "int wrong type", col: dataset.Column{Kind: dataset.KindInt64}, in: "7", wantErr: true},
		{name: "date", col: dataset.Column{Kind: dataset.KindDate}, in: "2023-05-01", want: pgtype.Date{Time: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), Valid: true}},
		{name: "bad date", col: dataset.Column{Kind: dataset.KindDate}, in: "May 1", wantErr: true},
		{name: "time", col: dataset.Column{Kind: dataset.KindTime}, in: "01:02:03", want: pgtype.Time{Microseconds: 3723_000_000, Valid: true}},
		{name: "end of day", col: dataset.Column{Kind: dataset.KindTime}, in: "24:00:00", want: pgtype.Time{Microseconds: 86400_000_000, Valid: true}},
		{name: "time out of range", col: dataset.Column{Kind: dataset.KindTime}, in: "48:00:00", wantErr: true},
		{name: "unknown kind", col: dataset.Column{Kind: dataset.Kind(99)}, in: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := copyValue(tt.col, tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplaceTables_ConversionErrorSkipsDatabase(t *testing.T) {
	t.Parallel()

	tbl := dataset.New("videos", dataset.Column{Name: "duration_secs", Kind: dataset.KindInt64})
	tbl.Rows = append(tbl.Rows, []any{"not a number"})

	// A nil pool would panic if the repository tried to open a transaction.
	repo := NewDatasetRepository(nil)
	_, err := repo.ReplaceTables(context.Background(), tbl)
	require.Error(t, err)

	var pe *db.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "convert", pe.Op)
}
