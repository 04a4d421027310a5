// Package transcript parses plain text meeting transcripts, used by the
// simulator to replay recorded meetings through the webhook.
package transcript

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Transcript line formats:
//   0:11 : Speaker Name : Text content
//   Speaker Name: Text content
var (
	timedLineRegex   = regexp.MustCompile(`^(\d+):(\d{2})\s*:\s*([^:]+?)\s*:\s*(.+)$`)
	speakerLineRegex = regexp.MustCompile(`^([^:]{1,60}?):\s+(.+)$`)
)

// Segment is one utterance in a transcript.
type Segment struct {
	Speaker string
	Text    string
	StartMs int
}

// Result is a parsed transcript.
type Result struct {
	Segments        []Segment
	Speakers        []string
	FullText        string
	DurationSeconds int
}

// Parse reads a plain text transcript. Lines with a leading M:SS timestamp
// carry timing; bare "Speaker: text" lines do not. Lines matching neither
// format are skipped.
func Parse(r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	result := &Result{
		Segments: make([]Segment, 0),
		Speakers: make([]string, 0),
	}

	speakerSet := make(map[string]bool)
	var textBuilder strings.Builder
	var lastTimestampMs int

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var seg Segment
		if m := timedLineRegex.FindStringSubmatch(line); m != nil {
			minutes, _ := strconv.Atoi(m[1])
			seconds, _ := strconv.Atoi(m[2])
			seg = Segment{
				Speaker: strings.TrimSpace(m[3]),
				Text:    strings.TrimSpace(m[4]),
				StartMs: (minutes*60 + seconds) * 1000,
			}
		} else if m := speakerLineRegex.FindStringSubmatch(line); m != nil {
			seg = Segment{
				Speaker: strings.TrimSpace(m[1]),
				Text:    strings.TrimSpace(m[2]),
			}
		} else {
			continue
		}

		result.Segments = append(result.Segments, seg)

		if !speakerSet[seg.Speaker] {
			speakerSet[seg.Speaker] = true
			result.Speakers = append(result.Speakers, seg.Speaker)
		}
		if seg.StartMs > lastTimestampMs {
			lastTimestampMs = seg.StartMs
		}

		if textBuilder.Len() > 0 {
			textBuilder.WriteString(" ")
		}
		textBuilder.WriteString(seg.Text)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result.DurationSeconds = lastTimestampMs / 1000
	result.FullText = textBuilder.String()
	return result, nil
}

// Line renders a segment back as "Speaker: text", the shape the webhook
// pipeline receives from meeting bots.
func (s Segment) Line() string {
	if s.Speaker == "" {
		return s.Text
	}
	return s.Speaker + ": " + s.Text
}
