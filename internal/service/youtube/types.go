package youtube

import (
	"encoding/json"
	"fmt"
)

// VideoListResponse is the videos.list response body.
//
// The generated youtube/v3 types decode statistics into uint64 fields with
// omitempty, which makes a missing count indistinguishable from zero. These
// types keep every field optional instead.
type VideoListResponse struct {
	NextPageToken string   `json:"nextPageToken"`
	Items         []*Video `json:"items"`
}

// Video is one videos.list item. Nil groups and fields were absent in the response.
type Video struct {
	ID             string               `json:"id"`
	Snippet        *VideoSnippet        `json:"snippet"`
	Statistics     *VideoStatistics     `json:"statistics"`
	ContentDetails *VideoContentDetails `json:"contentDetails"`
}

// VideoSnippet holds the basic metadata group.
type VideoSnippet struct {
	ChannelTitle *string  `json:"channelTitle"`
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Tags         []string `json:"tags"`
	PublishedAt  *string  `json:"publishedAt"`
}

// VideoStatistics holds the engagement group. The API sends counts as strings.
type VideoStatistics struct {
	ViewCount     *Scalar `json:"viewCount"`
	LikeCount     *Scalar `json:"likeCount"`
	FavoriteCount *Scalar `json:"favoriteCount"`
	CommentCount  *Scalar `json:"commentCount"`
}

// VideoContentDetails holds the content properties group.
type VideoContentDetails struct {
	Duration   *string `json:"duration"`
	Definition *string `json:"definition"`
	Caption    *string `json:"caption"`
}

// Scalar is a JSON string, number or boolean kept in its textual form.
type Scalar string

// UnmarshalJSON accepts any JSON scalar.
func (s *Scalar) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("empty scalar")
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Scalar(v)
	case '{', '[':
		return fmt.Errorf("expected scalar, got %s", string(b[:1]))
	default:
		*s = Scalar(b)
	}
	return nil
}

// StringPtr returns the scalar as a *string, nil for a nil receiver.
func (s *Scalar) StringPtr() *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
