package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/youtube-channel-etl/internal/dataset"
	"github.com/ad-tracker/youtube-channel-etl/internal/db"
	"github.com/ad-tracker/youtube-channel-etl/internal/db/repository"
	"github.com/ad-tracker/youtube-channel-etl/internal/extract"
	"github.com/ad-tracker/youtube-channel-etl/internal/metrics"
	"github.com/ad-tracker/youtube-channel-etl/internal/models"
	"github.com/ad-tracker/youtube-channel-etl/internal/transform"
	"github.com/ad-tracker/youtube-channel-etl/internal/validation"
)

type stubExtractor struct {
	result *ExtractResult
	err    error
}

func (s *stubExtractor) Extract(_ context.Context, _ []string) (*ExtractResult, error) {
	return s.result, s.err
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) ReplaceTables(ctx context.Context, tables ...*dataset.Table) ([]repository.LoadResult, error) {
	args := m.Called(ctx, tables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.LoadResult), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func rawVideo(id, duration string) models.RawVideo {
	return models.RawVideo{
		VideoID:      id,
		ChannelTitle: ptr("Ken Jee"),
		Title:        ptr("Video " + id),
		ViewCount:    ptr("10"),
		Duration:     ptr(duration),
	}
}

func extractResult(videos ...models.RawVideo) *ExtractResult {
	return &ExtractResult{
		Channels: []models.RawChannel{
			{ChannelName: "Ken Jee", Subscribers: "250000", Views: "9000000", TotalVideos: "270", PlaylistID: "UU2"},
			{ChannelName: "Alex The Analyst", Subscribers: "900000", Views: "40000000", TotalVideos: "300", PlaylistID: "UU7"},
		},
		Videos: videos,
	}
}

func withStatus(status models.RunStatus) any {
	return mock.MatchedBy(func(s *models.RunSummary) bool { return s.Status == status })
}

func TestRunner_Run_Success(t *testing.T) {
	t.Parallel()

	sink := new(mockSink)
	sink.On("ReplaceTables", mock.Anything, mock.MatchedBy(func(tables []*dataset.Table) bool {
		return len(tables) == 2 &&
			tables[0].Name == "channels" && tables[0].Len() == 2 &&
			tables[1].Name == "videos" && tables[1].Len() == 2
	})).Return([]repository.LoadResult{{Table: "channels", Rows: 2}, {Table: "videos", Rows: 2}}, nil).Once()

	publisher := new(mockPublisher)
	publisher.On("PublishRunCompleted", mock.Anything, withStatus(models.RunStatusSucceeded)).Return(nil).Once()

	m := metrics.New()
	runner := NewRunner(RunnerConfig{
		ChannelIDs: []string{"UC1", "UC2"},
		Extractor: &stubExtractor{result: extractResult(
			rawVideo("a", "PT5M"),
			rawVideo("b", "PT1H2M10S"),
			rawVideo("c", "PT25H"),
			rawVideo("d", "P2D"),
		)},
		Sink:      sink,
		Publisher: publisher,
		Metrics:   m,
	})

	assert.Nil(t, runner.LastRun())

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, models.RunStatusSucceeded, summary.Status)
	assert.Equal(t, 2, summary.Channels)
	assert.Equal(t, 4, summary.RawVideos)
	assert.Equal(t, 2, summary.Videos)
	assert.Equal(t, 2, summary.DroppedOverLimit)
	assert.Equal(t, 0, summary.DroppedMalformed)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))

	last := runner.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, summary.RunID, last.RunID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("SUCCEEDED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsLoaded.WithLabelValues("videos")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VideosDropped.WithLabelValues("over_limit")))

	sink.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRunner_Run_DuplicateVideoIDNeverLoads(t *testing.T) {
	t.Parallel()

	sink := new(mockSink)
	publisher := new(mockPublisher)
	publisher.On("PublishRunCompleted", mock.Anything, withStatus(models.RunStatusFailed)).Return(nil).Once()

	runner := NewRunner(RunnerConfig{
		Extractor: &stubExtractor{result: extractResult(rawVideo("dup", "PT1M"), rawVideo("dup", "PT2M"))},
		Sink:      sink,
		Publisher: publisher,
	})

	summary, err := runner.Run(context.Background())
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageValidate, se.Stage)
	assert.Equal(t, "videos", se.Dataset)
	assert.ErrorIs(t, err, validation.ErrValidationFailed)

	var ve *validation.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Failures, 1)
	assert.Equal(t, validation.ExpectationValuesToBeUnique, ve.Failures[0].Expectation)
	assert.Equal(t, "video_id", ve.Failures[0].Column)

	assert.Equal(t, models.RunStatusFailed, summary.Status)
	assert.Equal(t, StageValidate, summary.FailedStage)
	assert.NotEmpty(t, summary.Error)

	sink.AssertNotCalled(t, "ReplaceTables", mock.Anything, mock.Anything)
	publisher.AssertExpectations(t)
}

func TestRunner_Run_OverlongChannelNamesNeverLoad(t *testing.T) {
	t.Parallel()

	prefix := strings.Repeat("x", transform.MaxChannelNameLength)
	result := extractResult(rawVideo("a", "PT1M"))
	result.Channels[0].ChannelName = prefix + "A"
	result.Channels[1].ChannelName = prefix + "B"

	sink := new(mockSink)
	runner := NewRunner(RunnerConfig{Extractor: &stubExtractor{result: result}, Sink: sink})

	_, err := runner.Run(context.Background())
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageValidate, se.Stage)
	assert.Equal(t, "channels", se.Dataset)

	var ve *validation.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Failures, 1)
	assert.Equal(t, validation.ExpectationValueLengthsToBeBetween, ve.Failures[0].Expectation)

	sink.AssertNotCalled(t, "ReplaceTables", mock.Anything, mock.Anything)
}

func TestRunner_Run_StageErrors(t *testing.T) {
	t.Parallel()

	loadErr := &db.PersistenceError{Table: "videos", Op: "copy", Err: errors.New("disk full")}

	tests := []struct {
		name        string
		extractor   *stubExtractor
		sinkErr     error
		wantStage   string
		wantDataset string
		wantLoad    bool
	}{
		{
			name: "channels request",
			extractor: &stubExtractor{err: &extract.TransportError{
				Stage: extract.StageChannels, Target: "UC1", Err: errors.New("quotaExceeded"),
			}},
			wantStage:   StageExtract,
			wantDataset: "channels",
		},
		{
			name: "videos request",
			extractor: &stubExtractor{err: &extract.TransportError{
				Stage: extract.StageVideos, Target: "batch 0-49", Err: errors.New("backendError"),
			}},
			wantStage:   StageExtract,
			wantDataset: "videos",
		},
		{
			name:        "load",
			extractor:   &stubExtractor{result: extractResult(rawVideo("a", "PT1M"))},
			sinkErr:     loadErr,
			wantStage:   StageLoad,
			wantDataset: "videos",
			wantLoad:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sink := new(mockSink)
			if tt.wantLoad {
				sink.On("ReplaceTables", mock.Anything, mock.Anything).Return(nil, tt.sinkErr).Once()
			}

			m := metrics.New()
			runner := NewRunner(RunnerConfig{Extractor: tt.extractor, Sink: sink, Metrics: m})

			summary, err := runner.Run(context.Background())
			require.Error(t, err)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantStage, se.Stage)
			assert.Equal(t, tt.wantDataset, se.Dataset)
			assert.Equal(t, models.RunStatusFailed, summary.Status)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("FAILED")))

			if tt.wantLoad {
				sink.AssertExpectations(t)
			} else {
				sink.AssertNotCalled(t, "ReplaceTables", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRunner_Run_PublishFailureKeepsLoad(t *testing.T) {
	t.Parallel()

	sink := new(mockSink)
	sink.On("ReplaceTables", mock.Anything, mock.Anything).
		Return([]repository.LoadResult{{Table: "channels", Rows: 2}, {Table: "videos", Rows: 1}}, nil).Once()

	publisher := new(mockPublisher)
	publisher.On("PublishRunCompleted", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

	runner := NewRunner(RunnerConfig{
		Extractor: &stubExtractor{result: extractResult(rawVideo("a", "PT1M"))},
		Sink:      sink,
		Publisher: publisher,
	})

	summary, err := runner.Run(context.Background())
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePublish, se.Stage)
	assert.Equal(t, models.RunStatusSucceeded, summary.Status)

	sink.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestStageError(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &StageError{Stage: StageLoad, Dataset: "channels", Err: cause}
	assert.Equal(t, "load stage failed for channels: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	err = &StageError{Stage: StagePublish, Err: cause}
	assert.Equal(t, "publish stage failed: boom", err.Error())
}
