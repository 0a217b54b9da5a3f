// Package ingest feeds file, directory and URL content into long-term
// memory for the FILE_LOAD directive. Documents are chunked, each chunk
// is stored with a reference back to its source, and the raw content is
// returned for the command report.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/memoirplus/memoir-go/fetch"
	"github.com/memoirplus/memoir-go/memory"
)

// Document is one loaded source before chunking.
type Document struct {
	PageContent string
	Source      string
}

// LoadFile reads path into a Document.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Document{PageContent: string(data), Source: path}, nil
}

// Storer is the slice of the memory API the ingestor needs.
type Storer interface {
	Store(ctx context.Context, rec memory.Record) error
}

// Fetcher retrieves remote content for URL ingestion.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, mode string) (string, error)
}

// Ingestor chunks documents and stores each chunk as a memory record.
type Ingestor struct {
	store    Storer
	fetcher  Fetcher
	splitter Splitter
	log      zerolog.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithSplitter overrides the default chunking geometry.
func WithSplitter(s Splitter) Option {
	return func(i *Ingestor) {
		i.splitter = s
	}
}

// WithLogger sets the ingestor's logger. The default discards logs.
func WithLogger(log zerolog.Logger) Option {
	return func(i *Ingestor) {
		i.log = log
	}
}

// New creates an Ingestor storing into store and fetching URLs through
// fetcher. fetcher may be nil when URL ingestion is not used.
func New(store Storer, fetcher Fetcher, opts ...Option) *Ingestor {
	i := &Ingestor{
		store:    store,
		fetcher:  fetcher,
		splitter: NewSplitter(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IngestFile stores path's content and returns it wrapped in an in-band
// content marker for the command report.
func (i *Ingestor) IngestFile(ctx context.Context, path string) (string, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return "", err
	}
	if _, err := i.ingest(ctx, doc); err != nil {
		return "", err
	}
	return fmt.Sprintf("[FILE_CONTENT=%s]\n%s", path, doc.PageContent), nil
}

// IngestURL fetches rawURL as readable text, stores it and returns the
// extracted content.
func (i *Ingestor) IngestURL(ctx context.Context, rawURL string) (string, error) {
	if i.fetcher == nil {
		return "", fmt.Errorf("no fetcher configured for %s", rawURL)
	}
	content, err := i.fetcher.Fetch(ctx, rawURL, fetch.ModeOutput)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if _, err := i.ingest(ctx, Document{PageContent: content, Source: rawURL}); err != nil {
		return "", err
	}
	return content, nil
}

// IngestDir ingests every regular file directly under dir and returns
// the total number of stored chunks. Subdirectories are skipped, and an
// unreadable file is logged and skipped rather than aborting the rest.
func (i *Ingestor) IngestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}
	total := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		doc, err := LoadFile(path)
		if err != nil {
			i.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
			continue
		}
		n, err := i.ingest(ctx, doc)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// ingest chunks doc and stores each chunk, tagging it with the source so
// recalled chunks can point back to where they came from.
func (i *Ingestor) ingest(ctx context.Context, doc Document) (int, error) {
	chunks := i.splitter.Split(doc.PageContent)
	title := filepath.Base(doc.Source)
	for n, chunk := range chunks {
		rec := memory.Record{
			Text:      chunk + " reference:" + doc.Source,
			Title:     title,
			SourceRef: doc.Source,
		}
		if err := i.store.Store(ctx, rec); err != nil {
			return n, fmt.Errorf("store chunk %d of %s: %w", n, doc.Source, err)
		}
	}
	i.log.Debug().Str("source", doc.Source).Int("chunks", len(chunks)).Msg("ingested document")
	return len(chunks), nil
}
