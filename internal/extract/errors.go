// Package extract pulls raw channel and video data from the YouTube Data API.
package extract

import (
	"errors"
	"fmt"
)

// Stages reported by TransportError.
const (
	StageChannels      = "channels"
	StagePlaylistItems = "playlist_items"
	StageVideos        = "videos"
)

var (
	// ErrNoChannelIDs is returned when a harvest is requested for no channels.
	ErrNoChannelIDs = errors.New("no channel ids provided")

	// ErrTooManyChannelIDs is returned when more channels are requested than a
	// single channels.list call accepts.
	ErrTooManyChannelIDs = errors.New("too many channel ids")

	// ErrPageTokenLoop is returned when the API hands back a page token it already
	// returned for the same playlist.
	ErrPageTokenLoop = errors.New("page token repeated")
)

// TransportError reports a failed API exchange. Target names the batch, playlist or
// channel list being requested.
type TransportError struct {
	Stage  string
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request for %s failed: %v", e.Stage, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
