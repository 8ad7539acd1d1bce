// Package ingest loads a school knowledge document into the graph: one
// conceptual node per section, linked from the school node, each carrying
// freshly rebuilt chunk chains.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medikacom/kgrag/internal/chunker"
	"medikacom/kgrag/internal/graph"
	"medikacom/kgrag/internal/logger"
	"medikacom/kgrag/internal/sequence"
)

// ChainReport is the outcome of one chain rebuild.
type ChainReport struct {
	Section  string        `json:"section"`
	Category string        `json:"category"`
	Anchor   graph.RelType `json:"anchor"`
	Chunks   int           `json:"chunks"`
	sequence.Result
}

// Report summarises one Ingest call.
type Report struct {
	School      string        `json:"school"`
	SchoolID    string        `json:"school_id"`
	Sections    []string      `json:"sections"`
	Chains      []ChainReport `json:"chains"`
	SkippedKeys []string      `json:"skipped_keys,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Totals sums the chain results.
func (r Report) Totals() sequence.Result {
	var t sequence.Result
	for _, c := range r.Chains {
		t.Deleted += c.Deleted
		t.Written += c.Written
		t.Skipped += c.Skipped
	}
	return t
}

// Ingester writes documents through a sequence.Writer.
type Ingester struct {
	writer  *sequence.Writer
	chunker *chunker.Chunker
	logger  *slog.Logger
}

// New creates an Ingester.
func New(writer *sequence.Writer, ch *chunker.Chunker, log *slog.Logger) *Ingester {
	if log == nil {
		log = slog.Default()
	}
	return &Ingester{writer: writer, chunker: ch, logger: log.With(logger.Scope("ingest"))}
}

// Ingest upserts the school, then each present section in document order.
// Re-ingesting the same document leaves the graph unchanged apart from
// timestamps. The first store or embedding failure aborts the run; chains
// already rebuilt stay committed.
func (in *Ingester) Ingest(ctx context.Context, doc *Document) (Report, error) {
	start := time.Now()
	var rep Report
	if doc == nil || doc.Profil.Nama == "" {
		return rep, ErrMissingSchoolName
	}

	school := profileSection(doc.Profil)
	rep.School = school.Key
	schoolID, err := in.writer.EnsureNode(ctx, school.Label, school.KeyProperty, school.Key, school.Props)
	if err != nil {
		return rep, err
	}
	rep.SchoolID = schoolID
	in.logger.Info("school ensured", "school", school.Key, "id", schoolID)

	if err := in.chains(ctx, &rep, school, schoolID); err != nil {
		return rep, err
	}

	sections, skipped := plan(doc)
	for _, key := range skipped {
		in.logger.Warn("informasi_tambahan key skipped: no usable name or anchor already used", "key", key)
	}
	rep.SkippedKeys = skipped

	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		id, err := in.writer.EnsureNode(ctx, sec.Label, sec.KeyProperty, sec.Key, sec.Props)
		if err != nil {
			return rep, fmt.Errorf("section %s: %w", sec.Name, err)
		}
		if err := in.writer.Link(ctx, schoolID, id, sec.Link); err != nil {
			return rep, fmt.Errorf("section %s: linking %s: %w", sec.Name, sec.Link, err)
		}
		if err := in.chains(ctx, &rep, sec, id); err != nil {
			return rep, err
		}
	}

	rep.Duration = time.Since(start)
	t := rep.Totals()
	in.logger.Info("ingestion finished",
		"school", rep.School, "sections", len(rep.Sections), "chains", len(rep.Chains),
		"written", t.Written, "deleted", t.Deleted, "skipped", t.Skipped, "duration", rep.Duration)
	return rep, nil
}

func (in *Ingester) chains(ctx context.Context, rep *Report, sec section, parentID string) error {
	rep.Sections = append(rep.Sections, sec.Name)
	for _, c := range sec.Chains {
		texts := in.chunker.Chunk(c.Text, c.Prefix)
		res, err := in.writer.Replace(ctx, parentID, texts, c.Category, c.Anchor)
		if err != nil {
			return fmt.Errorf("section %s: %w", sec.Name, err)
		}
		rep.Chains = append(rep.Chains, ChainReport{
			Section: sec.Name, Category: c.Category, Anchor: c.Anchor, Chunks: len(texts), Result: res,
		})
	}
	return nil
}

// IngestFile loads path and ingests it.
func (in *Ingester) IngestFile(ctx context.Context, path string) (Report, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return Report{}, err
	}
	return in.Ingest(ctx, doc)
}
