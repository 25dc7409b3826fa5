package validation

import (
	"github.com/ad-tracker/youtube-channel-etl/internal/dataset"
	"github.com/ad-tracker/youtube-channel-etl/internal/transform"
)

// ValidateVideos runs the videos suite. Every expectation is evaluated; the
// returned *ValidationError lists all that failed.
func ValidateVideos(tbl *dataset.Table) error {
	v := New(tbl)

	v.ExpectColumnToExist(transform.ColVideoID)
	v.ExpectColumnValuesToNotBeNull(transform.ColVideoID)
	v.ExpectColumnValuesToBeUnique(transform.ColVideoID)
	v.ExpectColumnValueLengthsToBeBetween(transform.ColVideoID, 1, transform.MaxVideoIDLength)
	v.ExpectColumnValuesToMatchRegex(transform.ColVideoID, videoIDRegex)
	v.ExpectColumnValuesToBeBetween(transform.ColDurationSecs, 0, transform.MaxDurationSecs)

	for _, col := range []string{transform.ColViewCount, transform.ColLikeCount, transform.ColCommentCount} {
		v.ExpectColumnValuesToBeOfType(col, dataset.KindInt64)
	}

	return v.Err()
}

// ValidateChannels runs the channels suite.
func ValidateChannels(tbl *dataset.Table) error {
	v := New(tbl)

	v.ExpectColumnToExist(transform.ColChannelName)
	v.ExpectColumnValuesToNotBeNull(transform.ColChannelName)
	v.ExpectColumnValuesToBeUnique(transform.ColChannelName)
	v.ExpectColumnValueLengthsToBeBetween(transform.ColChannelName, 1, transform.MaxChannelNameLength)

	return v.Err()
}
