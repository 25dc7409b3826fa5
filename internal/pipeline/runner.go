package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ad-tracker/youtube-channel-etl/internal/dataset"
	"github.com/ad-tracker/youtube-channel-etl/internal/db"
	"github.com/ad-tracker/youtube-channel-etl/internal/db/repository"
	"github.com/ad-tracker/youtube-channel-etl/internal/extract"
	"github.com/ad-tracker/youtube-channel-etl/internal/metrics"
	"github.com/ad-tracker/youtube-channel-etl/internal/models"
	"github.com/ad-tracker/youtube-channel-etl/internal/transform"
	"github.com/ad-tracker/youtube-channel-etl/internal/validation"
)

// Run stages.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageValidate  = "validate"
	StageLoad      = "load"
	StagePublish   = "publish"
)

// StageError tags a run failure with the stage and dataset it happened in.
type StageError struct {
	Stage   string
	Dataset string
	Err     error
}

func (e *StageError) Error() string {
	if e.Dataset == "" {
		return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s stage failed for %s: %v", e.Stage, e.Dataset, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Extractor produces the raw datasets of a run.
type Extractor interface {
	Extract(ctx context.Context, channelIDs []string) (*ExtractResult, error)
}

// Sink persists canonical tables, replacing their previous contents.
type Sink interface {
	ReplaceTables(ctx context.Context, tables ...*dataset.Table) ([]repository.LoadResult, error)
}

// Publisher announces finished runs.
type Publisher interface {
	PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error
}

// RunnerConfig wires a Runner. Publisher and Metrics are optional.
type RunnerConfig struct {
	ChannelIDs  []string
	Extractor   Extractor
	Transformer *transform.Transformer
	Sink        Sink
	Publisher   Publisher
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// Runner executes full ETL runs. Runs must not overlap.
type Runner struct {
	channelIDs  []string
	extractor   Extractor
	transformer *transform.Transformer
	sink        Sink
	publisher   Publisher
	metrics     *metrics.Metrics
	logger      *zap.Logger

	mu      sync.RWMutex
	lastRun *models.RunSummary
}

// NewRunner creates a new Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tr := cfg.Transformer
	if tr == nil {
		tr = transform.New(logger.Named("transform"))
	}
	return &Runner{
		channelIDs:  cfg.ChannelIDs,
		extractor:   cfg.Extractor,
		transformer: tr,
		sink:        cfg.Sink,
		publisher:   cfg.Publisher,
		metrics:     cfg.Metrics,
		logger:      logger,
	}
}

// LastRun returns a copy of the most recent run summary, or nil before the
// first run.
func (r *Runner) LastRun() *models.RunSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lastRun == nil {
		return nil
	}
	s := *r.lastRun
	return &s
}

// Run executes one extract, transform, validate, load and publish cycle. The
// returned summary is never nil. A non-nil error is a *StageError.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log := r.logger.With(zap.String("run_id", summary.RunID))
	log.Info("Starting run", zap.Int("channels", len(r.channelIDs)))

	err := r.execute(ctx, log, summary)
	r.finish(ctx, log, summary, err)

	if err == nil && r.publisher != nil {
		if perr := r.publisher.PublishRunCompleted(ctx, summary); perr != nil {
			err = &StageError{Stage: StagePublish, Err: perr}
			log.Error("Failed to publish run summary", zap.Error(perr))
		}
	}

	return summary, err
}

func (r *Runner) execute(ctx context.Context, log *zap.Logger, summary *models.RunSummary) error {
	raw, err := r.extractor.Extract(ctx, r.channelIDs)
	if err != nil {
		return &StageError{Stage: StageExtract, Dataset: extractDataset(err), Err: err}
	}
	summary.Channels = len(raw.Channels)
	summary.RawVideos = len(raw.Videos)
	summary.FailedChannels = raw.FailedChannels

	if err := ctx.Err(); err != nil {
		return &StageError{Stage: StageTransform, Err: err}
	}
	channels, videos, report := r.transformer.Transform(raw.Channels, raw.Videos)
	summary.Videos = report.Kept
	summary.DroppedOverLimit = report.DroppedOverLimit
	summary.DroppedMalformed = report.DroppedMalformed
	r.metrics.ObserveDropped(transform.ReasonOverLimit, report.DroppedOverLimit)
	r.metrics.ObserveDropped(transform.ReasonMalformed, report.DroppedMalformed)

	channelTable := transform.ChannelTable(channels)
	videoTable := transform.VideoTable(videos)

	if err := validation.ValidateChannels(channelTable); err != nil {
		return &StageError{Stage: StageValidate, Dataset: transform.ChannelsTable, Err: err}
	}
	if err := validation.ValidateVideos(videoTable); err != nil {
		return &StageError{Stage: StageValidate, Dataset: transform.VideosTable, Err: err}
	}

	results, err := r.sink.ReplaceTables(ctx, channelTable, videoTable)
	if err != nil {
		return &StageError{Stage: StageLoad, Dataset: loadDataset(err), Err: err}
	}

	fields := make([]zap.Field, 0, len(results))
	for _, res := range results {
		r.metrics.ObserveLoaded(res.Table, int(res.Rows))
		fields = append(fields, zap.Int64(res.Table, res.Rows))
	}
	log.Info("Loaded tables", fields...)

	return nil
}

func (r *Runner) finish(ctx context.Context, log *zap.Logger, summary *models.RunSummary, err error) {
	summary.FinishedAt = time.Now().UTC()
	elapsed := summary.FinishedAt.Sub(summary.StartedAt)

	if err == nil {
		summary.Status = models.RunStatusSucceeded
		log.Info("Run succeeded",
			zap.Int("channels", summary.Channels),
			zap.Int("videos", summary.Videos),
			zap.Int("dropped_over_limit", summary.DroppedOverLimit),
			zap.Int("dropped_malformed", summary.DroppedMalformed),
			zap.Strings("failed_channels", summary.FailedChannels),
			zap.Duration("elapsed", elapsed),
		)
	} else {
		summary.Status = models.RunStatusFailed
		summary.Error = err.Error()
		var se *StageError
		if errors.As(err, &se) {
			summary.FailedStage = se.Stage
		}

		// A failed run is still announced; the run error stays the one returned.
		if r.publisher != nil && ctx.Err() == nil {
			if perr := r.publisher.PublishRunCompleted(ctx, summary); perr != nil {
				log.Warn("Failed to publish failed run summary", zap.Error(perr))
			}
		}
	}

	r.metrics.ObserveRun(string(summary.Status), elapsed, summary.FinishedAt, err == nil)

	r.mu.Lock()
	s := *summary
	r.lastRun = &s
	r.mu.Unlock()
}

// extractDataset names the dataset an extraction error belongs to.
func extractDataset(err error) string {
	var te *extract.TransportError
	if errors.As(err, &te) && te.Stage == extract.StageChannels {
		return transform.ChannelsTable
	}
	if errors.Is(err, extract.ErrNoChannelIDs) || errors.Is(err, extract.ErrTooManyChannelIDs) {
		return transform.ChannelsTable
	}
	return transform.VideosTable
}

// loadDataset names the table a persistence error belongs to.
func loadDataset(err error) string {
	var pe *db.PersistenceError
	if errors.As(err, &pe) {
		return pe.Table
	}
	return ""
}
