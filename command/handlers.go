package command

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/memoirplus/memoir-go/memory"
)

// Directive names understood by the built-in handler set. Kept exactly
// as the wire protocol spells them.
const (
	NameFetchURL     = "GET_URL"
	NameLoadContent  = "FILE_LOAD"
	NameReviewMemory = "REVIEW_RAG"
	NameInsertMemory = "INSERT_RAG"
)

// MemoryStore is the slice of the memory API the built-in handlers use.
type MemoryStore interface {
	Store(ctx context.Context, rec memory.Record) error
	Recall(ctx context.Context, query string) ([]string, error)
}

// Fetcher retrieves remote content by URL with an extraction mode.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, mode string) (string, error)
}

// Ingestor feeds file or URL content into long-term memory.
type Ingestor interface {
	IngestFile(ctx context.Context, path string) (string, error)
	IngestURL(ctx context.Context, rawURL string) (string, error)
	IngestDir(ctx context.Context, dir string) (int, error)
}

// RegisterBuiltins wires the stock directive set onto d.
func RegisterBuiltins(d *Dispatcher, mem MemoryStore, fetcher Fetcher, ing Ingestor) {
	d.Register(NameFetchURL, &FetchURLHandler{Fetcher: fetcher})
	d.Register(NameLoadContent, &LoadContentHandler{Ingestor: ing})
	d.Register(NameReviewMemory, &ReviewMemoryHandler{Memory: mem})
	d.Register(NameInsertMemory, &InsertMemoryHandler{Memory: mem})
}

// FetchURLHandler implements GET_URL: arg1 is the URL, optional arg2
// selects the extraction mode (default "output"). An invalid URL becomes
// a report line, not an error, so the rest of the dispatch proceeds.
type FetchURLHandler struct {
	Fetcher Fetcher
}

// Handle fetches the URL and returns the extracted content.
func (h *FetchURLHandler) Handle(ctx context.Context, inv Invocation) (string, error) {
	rawURL := inv.Arg(1)
	mode := strings.ToLower(strings.TrimSpace(inv.Arg(2)))
	if mode == "" {
		mode = "output"
	}
	if !validURL(rawURL) {
		return "URL is invalid", nil
	}
	content, err := h.Fetcher.Fetch(ctx, rawURL, mode)
	if err != nil {
		return fmt.Sprintf("failed to fetch %s: %v", rawURL, err), nil
	}
	return content, nil
}

// LoadContentHandler implements FILE_LOAD: arg1 is a URL, a file path or
// a directory. URLs and single files are ingested and their content
// reported. Directories ingest each regular-file entry but report only
// the count; embedding a whole directory's content in the report would
// make it unbounded.
type LoadContentHandler struct {
	Ingestor Ingestor
}

// Handle ingests the target and reports what happened.
func (h *LoadContentHandler) Handle(ctx context.Context, inv Invocation) (string, error) {
	target := inv.Arg(1)

	if validURL(target) {
		content, err := h.Ingestor.IngestURL(ctx, target)
		if err != nil {
			return fmt.Sprintf("failed to load %s: %v", target, err), nil
		}
		return content, nil
	}

	info, err := os.Stat(target)
	if err != nil {
		return "File doesn't exist", nil
	}
	if info.IsDir() {
		count, err := h.Ingestor.IngestDir(ctx, target)
		if err != nil {
			return fmt.Sprintf("failed to load directory %s: %v", target, err), nil
		}
		return fmt.Sprintf("Successfully ingested %d total documents.", count), nil
	}

	content, err := h.Ingestor.IngestFile(ctx, target)
	if err != nil {
		return fmt.Sprintf("failed to load %s: %v", target, err), nil
	}
	return content, nil
}

// ReviewMemoryHandler implements REVIEW_RAG: arg1 is the query. Matching
// memories are joined into the report, and the handler flags the turn so
// the normal per-turn recall doesn't surface the same content twice.
type ReviewMemoryHandler struct {
	Memory MemoryStore
}

// Handle retrieves memories matching the query.
func (h *ReviewMemoryHandler) Handle(ctx context.Context, inv Invocation) (string, error) {
	results, err := h.Memory.Recall(ctx, inv.Arg(1))
	if err != nil {
		return "", fmt.Errorf("recall %q: %w", inv.Arg(1), err)
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// SurfacesMemory marks this handler's output as already containing
// stored memories.
func (h *ReviewMemoryHandler) SurfacesMemory() bool { return true }

// InsertMemoryHandler implements INSERT_RAG: arg1 is a title, arg2 the
// text to remember.
type InsertMemoryHandler struct {
	Memory MemoryStore
}

// Handle stores the fact and echoes both values back.
func (h *InsertMemoryHandler) Handle(ctx context.Context, inv Invocation) (string, error) {
	title, text := inv.Arg(1), inv.Arg(2)
	rec := memory.Record{
		Text:      text,
		Timestamp: time.Now().UTC(),
		Title:     title,
		SourceRef: title,
	}
	if err := h.Memory.Store(ctx, rec); err != nil {
		return "", fmt.Errorf("store %q: %w", title, err)
	}
	return fmt.Sprintf("Successfully inserted title '%s' with text '%s'", title, text), nil
}

// validURL accepts absolute http(s) URLs with a host.
func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
