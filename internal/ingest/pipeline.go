// Package ingest builds the official-document search index: it extracts
// text from discovered files, chunks it, and stores the chunks in the
// vector store together with an incremental content-hash state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/extract"
	"github.com/amtly/amtly/internal/forms"
	"github.com/amtly/amtly/internal/language"
	"github.com/amtly/amtly/internal/progress"
	"github.com/amtly/amtly/internal/vectordb"
	"github.com/amtly/amtly/internal/walker"
)

// ErrNoText is recorded for documents that yield no readable text.
var ErrNoText = errors.New("ingest: no readable text")

// Options tunes a pipeline run.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
	// Force re-ingests documents whose content hash is unchanged.
	Force bool
}

// Result summarizes a pipeline run.
type Result struct {
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	Chunks         int
	Errors         []error
	Duration       time.Duration
}

// Pipeline orchestrates extract -> chunk -> embed -> store.
type Pipeline struct {
	extractor *extract.Extractor
	store     vectordb.VectorStore
	detector  *language.Resolver
	dir       string
	opts      Options
	reporter  progress.Reporter
	logger    *zap.Logger
}

// NewPipeline creates a Pipeline persisting the store and its state to dir.
func NewPipeline(
	extractor *extract.Extractor,
	store vectordb.VectorStore,
	detector *language.Resolver,
	dir string,
	opts Options,
	logger *zap.Logger,
) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractor: extractor,
		store:     store,
		detector:  detector,
		dir:       dir,
		opts:      opts,
		reporter:  progress.Nop{},
		logger:    logger,
	}
}

// SetReporter sets the progress reporter.
func (p *Pipeline) SetReporter(r progress.Reporter) {
	if r != nil {
		p.reporter = r
	}
}

type extracted struct {
	file walker.FileInfo
	text string
}

// Run ingests files. Per-file failures are collected in the result; only
// state and persistence failures abort the run.
func (p *Pipeline) Run(ctx context.Context, files []walker.FileInfo) (*Result, error) {
	start := time.Now()
	result := &Result{}

	state, err := LoadState(p.dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: load state: %w", err)
	}

	var changed []walker.FileInfo
	for _, f := range files {
		if p.opts.Force || state.Changed(f.RelPath, f.ContentHash) {
			changed = append(changed, f)
		} else {
			result.FilesSkipped++
		}
	}
	if len(changed) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	docs, errs := p.extractAll(ctx, changed)
	result.Errors = append(result.Errors, errs...)
	result.FilesFailed = len(errs)

	for _, d := range docs {
		chunks := p.documents(d)
		if err := p.store.DeleteBySource(ctx, d.file.RelPath); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete old chunks for %s: %w", d.file.RelPath, err))
			result.FilesFailed++
			continue
		}
		if err := p.store.AddDocuments(ctx, chunks); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("store chunks for %s: %w", d.file.RelPath, err))
			result.FilesFailed++
			continue
		}
		state.FileHashes[d.file.RelPath] = d.file.ContentHash
		state.Chunks[d.file.RelPath] = len(chunks)
		result.Chunks += len(chunks)
		result.FilesProcessed++
		p.logger.Debug("ingested", zap.String("source", d.file.RelPath), zap.Int("chunks", len(chunks)))
	}

	if err := p.store.Persist(ctx, p.dir); err != nil {
		return result, fmt.Errorf("ingest: persist store: %w", err)
	}
	if err := state.Save(p.dir); err != nil {
		return result, fmt.Errorf("ingest: save state: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// extractAll runs extraction with bounded concurrency.
func (p *Pipeline) extractAll(ctx context.Context, files []walker.FileInfo) ([]extracted, []error) {
	total := len(files)
	p.reporter.Start(total)
	defer p.reporter.Finish()

	sem := make(chan struct{}, p.opts.Concurrency)
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		processed int64
		docs      []extracted
		errs      []error
	)

	done := func(f walker.FileInfo) {
		n := atomic.AddInt64(&processed, 1)
		mu.Lock()
		p.reporter.Update(int(n), f.RelPath)
		mu.Unlock()
	}

	for _, file := range files {
		select {
		case <-ctx.Done():
			mu.Lock()
			errs = append(errs, fmt.Errorf("extract %s: %w", file.RelPath, ctx.Err()))
			mu.Unlock()
			done(file)
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(f walker.FileInfo) {
			defer wg.Done()
			defer func() { <-sem }()

			text, err := p.extractor.Extract(ctx, f.Path)
			if err == nil && strings.TrimSpace(text) == "" {
				err = ErrNoText
			}
			mu.Lock()
			if err != nil {
				errs = append(errs, fmt.Errorf("extract %s: %w", f.RelPath, err))
				p.logger.Warn("extraction failed", zap.String("source", f.RelPath), zap.Error(err))
			} else {
				docs = append(docs, extracted{file: f, text: text})
			}
			mu.Unlock()
			done(f)
		}(file)
	}
	wg.Wait()
	return docs, errs
}

// documents chunks one extracted file into vector store documents.
func (p *Pipeline) documents(d extracted) []vectordb.Document {
	chunks := Chunk(d.text, p.opts.ChunkSize, p.opts.ChunkOverlap)
	kind := vectordb.KindOfficial
	if d.file.Kind == extract.KindMarkdown {
		kind = vectordb.KindGuide
	}
	code := FormCodeFromName(d.file.RelPath)
	now := time.Now()

	docs := make([]vectordb.Document, len(chunks))
	for i, c := range chunks {
		lang := language.German
		if p.detector != nil {
			lang = p.detector.Detect(c).Language
		}
		docs[i] = vectordb.Document{
			ID:      fmt.Sprintf("%s#%03d", d.file.RelPath, i),
			Content: c,
			Metadata: vectordb.DocumentMetadata{
				Source:      d.file.RelPath,
				Chunk:       i,
				ContentHash: d.file.ContentHash,
				Kind:        kind,
				FormCode:    code,
				Language:    string(lang),
				LastUpdated: now,
			},
		}
	}
	return docs
}

// FormCodeFromName finds a form code among the words of a file name, e.g.
// "guides/HA_Ausfuellhinweise.pdf" yields "HA".
func FormCodeFromName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return forms.MentionedCode(strings.ToUpper(strings.Join(words, " ")))
}
