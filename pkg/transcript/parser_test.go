package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimedFormat(t *testing.T) {
	input := `0:11 : Alice Smith : Welcome everyone to the meeting.
0:45 : Bob Jones : Thanks, glad to be here.

1:02 : Alice Smith : Let's start with the roadmap.`

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, result.Segments, 3)
	assert.Equal(t, "Alice Smith", result.Segments[0].Speaker)
	assert.Equal(t, "Welcome everyone to the meeting.", result.Segments[0].Text)
	assert.Equal(t, 11000, result.Segments[0].StartMs)
	assert.Equal(t, 62000, result.Segments[2].StartMs)

	assert.Equal(t, []string{"Alice Smith", "Bob Jones"}, result.Speakers)
	assert.Equal(t, 62, result.DurationSeconds)
	assert.Contains(t, result.FullText, "Welcome everyone")
}

func TestParseSpeakerFormat(t *testing.T) {
	input := `Alice: the launch moved to October
Bob: sounds good to me`

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)
	assert.Equal(t, "Alice", result.Segments[0].Speaker)
	assert.Equal(t, "the launch moved to October", result.Segments[0].Text)
	assert.Zero(t, result.Segments[0].StartMs)
	assert.Zero(t, result.DurationSeconds)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := `--- transcript start ---
Alice: real content
just some stray text without any speaker marker that runs on far too long to look like a speaker name because it exceeds the limit
0:30 : Bob : more content`

	result, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, "Alice", result.Segments[0].Speaker)
	assert.Equal(t, "Bob", result.Segments[1].Speaker)
}

func TestParseEmpty(t *testing.T) {
	result, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, result.Segments)
	assert.Empty(t, result.FullText)
}

func TestSegmentLine(t *testing.T) {
	assert.Equal(t, "Alice: hi", Segment{Speaker: "Alice", Text: "hi"}.Line())
	assert.Equal(t, "bare text", Segment{Text: "bare text"}.Line())
}
