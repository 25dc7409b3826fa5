package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"
	"google.golang.org/api/youtube/v3"

	"github.com/ad-tracker/youtube-channel-etl/internal/metrics"
)

const (
	// DefaultEndpoint is the YouTube Data API root. Service paths such as
	// youtube/v3/channels are resolved against it.
	DefaultEndpoint = "https://youtube.googleapis.com/"

	videosPath = "youtube/v3/videos"

	// MaxResults is the API limit both for maxResults on paged lists and for the
	// number of ids accepted by a single channels.list or videos.list call.
	MaxResults = 50

	// DefaultRequestTimeout bounds a single API call attempt.
	DefaultRequestTimeout = 30 * time.Second
)

// Endpoint names, used as metric labels and in error messages.
const (
	EndpointChannels      = "channels"
	EndpointPlaylistItems = "playlistItems"
	EndpointVideos        = "videos"
)

// Parts requested from each endpoint.
var (
	channelParts      = []string{"snippet", "contentDetails", "statistics"}
	playlistItemParts = []string{"contentDetails"}
	videoParts        = []string{"snippet", "contentDetails", "statistics"}
)

// Config configures the client.
type Config struct {
	APIKey         string
	Endpoint       string
	RequestTimeout time.Duration
	Retry          RetryConfig
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

// Client wraps the YouTube Data API v3 list endpoints used by the pipeline.
// Channels and playlist items go through the generated service; videos are
// decoded into the local Video type.
type Client struct {
	service    *youtube.Service
	httpClient *http.Client
	timeout    time.Duration
	retry      RetryConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewClient creates a new YouTube API client authenticated with an API key.
// Extra options are passed to the Google transport.
func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	httpClient, _, err := htransport.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube transport: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		service:    service,
		httpClient: httpClient,
		timeout:    timeout,
		retry:      cfg.Retry.withDefaults(),
		metrics:    cfg.Metrics,
		logger:     logger,
	}, nil
}

// ListChannels retrieves up to 50 channels by id in a single call.
func (c *Client) ListChannels(ctx context.Context, channelIDs []string) ([]*youtube.Channel, error) {
	if err := checkIDs(channelIDs); err != nil {
		return nil, err
	}

	var resp *youtube.ChannelListResponse
	err := c.call(ctx, EndpointChannels, func(attemptCtx context.Context) error {
		var err error
		resp, err = c.service.Channels.List(channelParts).
			Id(channelIDs...).
			Context(attemptCtx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	return resp.Items, nil
}

// ListPlaylistItems retrieves one page of a playlist. An empty pageToken requests
// the first page.
func (c *Client) ListPlaylistItems(ctx context.Context, playlistID, pageToken string, maxResults int64) (*youtube.PlaylistItemListResponse, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("playlist ID is required")
	}
	if maxResults <= 0 || maxResults > MaxResults {
		maxResults = MaxResults
	}

	var resp *youtube.PlaylistItemListResponse
	err := c.call(ctx, EndpointPlaylistItems, func(attemptCtx context.Context) error {
		call := c.service.PlaylistItems.List(playlistItemParts).
			PlaylistId(playlistID).
			MaxResults(maxResults)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var err error
		resp, err = call.Context(attemptCtx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// ListVideos retrieves snippet, statistics and content details for up to 50 videos.
func (c *Client) ListVideos(ctx context.Context, videoIDs []string) ([]*Video, error) {
	if err := checkIDs(videoIDs); err != nil {
		return nil, err
	}

	params := url.Values{
		"part": {strings.Join(videoParts, ",")},
		"id":   {strings.Join(videoIDs, ",")},
	}

	var resp VideoListResponse
	err := c.call(ctx, EndpointVideos, func(attemptCtx context.Context) error {
		return c.get(attemptCtx, videosPath, params, &resp)
	})
	if err != nil {
		return nil, err
	}

	return resp.Items, nil
}

func checkIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("no IDs provided")
	}
	if len(ids) > MaxResults {
		return fmt.Errorf("too many IDs (max %d, got %d)", MaxResults, len(ids))
	}
	return nil
}

// call runs do against endpoint, retrying transient failures. Each attempt
// runs under its own timeout.
func (c *Client) call(ctx context.Context, endpoint string, do func(attemptCtx context.Context) error) error {
	err := c.withRetry(ctx, endpoint, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		c.metrics.ObserveAPICall(endpoint)
		return do(attemptCtx)
	})
	if err != nil {
		return fmt.Errorf("%s.list: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := googleapi.ResolveRelative(c.service.BasePath, path) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return err
		}
		return &decodeError{err: err}
	}

	return nil
}

// decodeError marks a response body that could not be decoded. It is never retried.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "decode response: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}
