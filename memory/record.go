package memory

import (
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the payload datetime format: ISO 8601 with
// microseconds and no zone suffix. Fixed width keeps lexicographic
// ordering equal to chronological ordering, which range filters rely on.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Payload keys shared by every stored point.
const (
	payloadKeyText      = "comment"
	payloadKeyTimestamp = "datetime"
	payloadKeyTitle     = "title"
	payloadKeySourceRef = "rag_original_ref"
)

// Record is one fact destined for long-term memory.
type Record struct {
	// Text is the fact itself. Required.
	Text string

	// Timestamp is when the fact was learned. The zero value means "now".
	Timestamp time.Time

	// Title and SourceRef annotate ingested documents: a short label and
	// a pointer back to the originating file or URL. Both optional.
	Title     string
	SourceRef string

	// Tags are extra payload entries stored verbatim alongside the
	// fixed keys. Optional.
	Tags map[string]string
}

// embeddingText is what actually gets embedded: the fact text plus any
// tag values in stable order, so tagged records cluster with queries
// mentioning the tag content.
func (r Record) embeddingText() string {
	if len(r.Tags) == 0 {
		return r.Text
	}
	keys := make([]string, 0, len(r.Tags))
	for k := range r.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, r.Text)
	for _, k := range keys {
		parts = append(parts, r.Tags[k])
	}
	return strings.Join(parts, " ")
}

// payload builds the point payload. ts is the resolved timestamp; the
// caller substitutes now for the zero value.
func (r Record) payload(ts time.Time) map[string]string {
	p := make(map[string]string, len(r.Tags)+4)
	for k, v := range r.Tags {
		p[k] = v
	}
	p[payloadKeyText] = r.Text
	p[payloadKeyTimestamp] = ts.Format(TimestampLayout)
	if r.Title != "" {
		p[payloadKeyTitle] = r.Title
	}
	if r.SourceRef != "" {
		p[payloadKeySourceRef] = r.SourceRef
	}
	return p
}
