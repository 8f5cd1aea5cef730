package platform

import (
	"fmt"
	"strings"
)

type SegmentType string

const (
	SegmentText    SegmentType = "text"
	SegmentImage   SegmentType = "image"
	SegmentAudio   SegmentType = "audio"
	SegmentFile    SegmentType = "file"
	SegmentMention SegmentType = "mention"
	SegmentReply   SegmentType = "reply"
)

// Segment is one typed piece of message content. Inbound messages carry the
// original segments next to the parsed plain text; replies are built from
// segments as well.
type Segment struct {
	Type     SegmentType `json:"type"`
	Text     string      `json:"text,omitempty"`
	URL      string      `json:"url,omitempty"`
	TargetID string      `json:"target_id,omitempty"`
	ReplyTo  string      `json:"reply_to,omitempty"`
}

func Text(text string) Segment {
	return Segment{Type: SegmentText, Text: text}
}

func Image(url string) Segment {
	return Segment{Type: SegmentImage, URL: url}
}

func Audio(url string) Segment {
	return Segment{Type: SegmentAudio, URL: url}
}

func Mention(targetID string) Segment {
	return Segment{Type: SegmentMention, TargetID: targetID}
}

func Reply(replyTo string) Segment {
	return Segment{Type: SegmentReply, ReplyTo: replyTo}
}

func (s Segment) Validate() error {
	switch s.Type {
	case SegmentText:
		if s.Text == "" {
			return fmt.Errorf("text segment requires text")
		}
	case SegmentImage, SegmentAudio, SegmentFile:
		if strings.TrimSpace(s.URL) == "" {
			return fmt.Errorf("%s segment requires url", s.Type)
		}
	case SegmentMention:
		if strings.TrimSpace(s.TargetID) == "" {
			return fmt.Errorf("mention segment requires target_id")
		}
	case SegmentReply:
		if strings.TrimSpace(s.ReplyTo) == "" {
			return fmt.Errorf("reply segment requires reply_to")
		}
	default:
		return fmt.Errorf("segment type is invalid: %q", s.Type)
	}
	return nil
}

// PlainText joins the text content of all text segments.
func PlainText(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Type == SegmentText {
			b.WriteString(seg.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

const outlineMaxChars = 72

// Outline renders a short single-line summary of segments for log lines.
// Non-text segments collapse to a bracketed marker.
func Outline(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg.Type {
		case SegmentText:
			parts = append(parts, seg.Text)
		case SegmentMention:
			parts = append(parts, "@"+seg.TargetID)
		default:
			parts = append(parts, "["+string(seg.Type)+"]")
		}
	}
	line := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if len(line) > outlineMaxChars {
		line = line[:outlineMaxChars] + "..."
	}
	return line
}
