// Package detection defines the immutable result types emitted by the
// pipeline and their renderings for downstream consumers.
package detection

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ModelVote is one classifier's contribution to a detection decision.
type ModelVote struct {
	Model       string  `json:"model"`
	Probability float64 `json:"probability"`
	Weight      float64 `json:"weight"`
	Valid       bool    `json:"valid"`
	Err         string  `json:"error,omitempty"`
}

// Result is one detection decision for a processed frame window. Results are
// immutable once created and are emitted in strictly increasing frame order.
type Result struct {
	Timestamp     time.Time   `json:"timestamp"`
	FrameIndex    uint64      `json:"frame_index"`
	Source        string      `json:"source,omitempty"`
	IsAIVoice     bool        `json:"is_ai_voice"`
	Confidence    float64     `json:"confidence"`
	Indeterminate bool        `json:"indeterminate"`
	Votes         []ModelVote `json:"votes"`
	DroppedFrames int         `json:"dropped_frames"`
	DecodeErrors  int         `json:"decode_errors,omitempty"`
}

// Partial is the detector's output before the stream controller fills in
// frame bookkeeping.
type Partial struct {
	IsAIVoice     bool
	Confidence    float64
	Indeterminate bool
	Votes         []ModelVote
}

// Finalize attaches frame bookkeeping to a partial, producing the immutable
// Result.
func (p *Partial) Finalize(timestamp time.Time, frameIndex uint64, source string, dropped int) *Result {
	return &Result{
		Timestamp:     timestamp,
		FrameIndex:    frameIndex,
		Source:        source,
		IsAIVoice:     p.IsAIVoice,
		Confidence:    p.Confidence,
		Indeterminate: p.Indeterminate,
		Votes:         p.Votes,
		DroppedFrames: dropped,
	}
}

// JSON returns the result as a single-line JSON object for stream
// subscribers.
func (r *Result) JSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal detection result: %w", err)
	}
	return string(data), nil
}

// String renders the result as one human-readable line.
func (r *Result) String() string {
	var b strings.Builder

	verdict := "human"
	switch {
	case r.Indeterminate:
		verdict = "indeterminate"
	case r.IsAIVoice:
		verdict = "AI"
	}

	fmt.Fprintf(&b, "%s frame=%d verdict=%s confidence=%.3f",
		r.Timestamp.Format("15:04:05.000"), r.FrameIndex, verdict, r.Confidence)

	if len(r.Votes) > 0 {
		b.WriteString(" votes=[")
		for i, v := range r.Votes {
			if i > 0 {
				b.WriteString(" ")
			}
			if v.Valid {
				fmt.Fprintf(&b, "%s:%.2f", v.Model, v.Probability)
			} else {
				fmt.Fprintf(&b, "%s:invalid", v.Model)
			}
		}
		b.WriteString("]")
	}

	if r.DroppedFrames > 0 {
		fmt.Fprintf(&b, " dropped=%d", r.DroppedFrames)
	}
	if r.DecodeErrors > 0 {
		fmt.Fprintf(&b, " decode_errors=%d", r.DecodeErrors)
	}

	return b.String()
}
