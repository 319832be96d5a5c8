// Package ingest wires the pipeline's ingestion half together: the
// citation parser (C1), the division ingestor (C3), the sentence
// reconstructor (C2), the NLP Adapter boundary, and the Storage Adapter,
// run sequentially over one source file's lines (§4, §5).
package ingest

import (
	"bufio"
	"context"
	"io"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Atlogit/atlomy/internal/citation"
	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/division"
	"github.com/Atlogit/atlomy/internal/errkind"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/nlp"
	"github.com/Atlogit/atlomy/internal/observability"
	"github.com/Atlogit/atlomy/internal/persistence"
	"github.com/Atlogit/atlomy/internal/sentence"
)

// FileInput names one source file to ingest, plus the author/work metadata
// a header-less corpus line stream doesn't carry on its own.
type FileInput struct {
	AuthorReferenceCode string
	AuthorName          string
	LanguageCode        string
	WorkReferenceCode   string
	WorkTitle           string
	WorkMetadata        map[string]string
	Reader              io.Reader
}

// Driver runs IngestFile/IngestFiles against a Storage Adapter.
type Driver struct {
	store     persistence.IngestStore
	structure citation.StructureProvider
	nlp       *nlpPool
	cfg       config.IngestionConfig
}

// New builds a Driver. structure supplies per-work hierarchy level names to
// the citation parser (§4.1); a fresh citation.Parser is constructed per
// file since its inheritance state is file-scoped.
func New(store persistence.IngestStore, structure citation.StructureProvider, adapter nlp.Adapter, cfg config.IngestionConfig) *Driver {
	return &Driver{
		store:     store,
		structure: structure,
		nlp:       newNLPPool(adapter, cfg.MaxNLPWorkers),
		cfg:       cfg,
	}
}

// IngestFile reads in.Reader line by line and threads each line through
// C1 -> C3 -> C2, persisting Divisions/Lines as they close and Sentences as
// C2 emits them, in source order (§5: "Ingestion for a single file is
// strictly sequential"). Cancellation aborts the current in-flight step and
// returns whatever was committed up to the last completed Division or
// Sentence boundary (§5).
func (d *Driver) IngestFile(ctx context.Context, in FileInput) (Report, error) {
	log := observability.LoggerWithTrace(ctx)

	author, err := d.store.GetOrCreateAuthor(ctx, in.AuthorReferenceCode, in.AuthorName, in.LanguageCode)
	if err != nil {
		return Report{}, errkind.Wrap(errkind.Storage, err, "get or create author")
	}
	text, err := d.store.GetOrCreateText(ctx, author.ID, in.WorkReferenceCode, in.WorkTitle, in.WorkMetadata)
	if err != nil {
		return Report{}, errkind.Wrap(errkind.Storage, err, "get or create text")
	}

	parser := citation.New(d.structure)
	divIngestor := division.New()
	recon := sentence.New(sentence.Options{Abbreviations: d.cfg.AbbreviationList})

	var report Report

	closeDivision := func(out *division.DivisionOut) error {
		if out == nil {
			return nil
		}
		div, err := d.store.UpsertDivision(ctx, text.ID, out.Division.Key(), out.Division)
		if err != nil {
			return errkind.Wrap(errkind.Storage, err, "upsert division")
		}
		report.DivisionsWritten++
		for _, line := range out.Lines {
			persisted, err := d.store.UpsertLine(ctx, div.ID, line)
			if err != nil {
				return errkind.Wrap(errkind.Storage, err, "upsert line")
			}
			report.LinesWritten++
			sentences, linkGroups, err := recon.Feed(sentence.LineIn{LineID: persisted.ID, Content: persisted.Content})
			if err != nil {
				report.Errors = append(report.Errors, err)
				log.Warn().Err(err).Int64("line_id", persisted.ID).Msg("ingest_line_skipped")
				continue
			}
			if err := d.commitSentences(ctx, sentences, linkGroups, &report); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(in.Reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return report, errkind.Wrap(errkind.Cancelled, err, "ingestion cancelled")
		}
		report.LinesRead++
		raw := scanner.Text()

		cit, content, ok, err := parser.ParseLine(raw)
		if err != nil {
			report.Errors = append(report.Errors, err)
			log.Warn().Err(err).Msg("ingest_citation_parse_error")
			continue
		}
		if !ok {
			continue
		}

		closed, err := divIngestor.Feed(division.LineIn{Content: content, Citation: cit})
		if err != nil {
			report.Errors = append(report.Errors, err)
		}
		if err := closeDivision(closed); err != nil {
			return report, err
		}
	}
	if err := scanner.Err(); err != nil {
		return report, errkind.Wrap(errkind.Storage, err, "read source file")
	}

	tail, err := divIngestor.Close()
	if err != nil {
		report.Errors = append(report.Errors, err)
	}
	for i := range tail {
		if err := closeDivision(&tail[i]); err != nil {
			return report, err
		}
	}
	for _, dErr := range divIngestor.Errors() {
		report.Errors = append(report.Errors, dErr)
	}

	if final, links, ok := recon.Flush(); ok {
		if err := d.commitSentences(ctx, []model.Sentence{final}, [][]model.SentenceLineLink{links}, &report); err != nil {
			return report, err
		}
	}

	report.ReportID = uuid.NewString()
	if err := d.store.PutIngestionReport(context.WithoutCancel(ctx), toPersistedReport(report, in)); err != nil {
		log.Error().Err(err).Str("report_id", report.ReportID).Msg("ingest_report_persist_error")
	}

	if err := report.checkThreshold(d.cfg.ErrorRateThreshold); err != nil {
		return report, err
	}
	return report, nil
}

func toPersistedReport(report Report, in FileInput) model.IngestionReport {
	errs := make([]string, len(report.Errors))
	for i, e := range report.Errors {
		errs[i] = e.Error()
	}
	return model.IngestionReport{
		ID:               report.ReportID,
		SourceRef:        in.AuthorReferenceCode + "/" + in.WorkReferenceCode,
		LinesRead:        report.LinesRead,
		DivisionsWritten: report.DivisionsWritten,
		LinesWritten:     report.LinesWritten,
		SentencesWritten: report.SentencesWritten,
		Errors:           errs,
	}
}

// commitSentences annotates and persists each Sentence in order, assigning
// it an id and wiring only its own linkGroups[i] to that id before the
// Storage Adapter call.
func (d *Driver) commitSentences(ctx context.Context, sentences []model.Sentence, linkGroups [][]model.SentenceLineLink, report *Report) error {
	for i := range sentences {
		tokens, categories, err := d.nlp.annotate(ctx, sentences[i].Content)
		if err != nil {
			return errkind.Wrap(errkind.Storage, err, "nlp annotate")
		}
		sentences[i].ID = uuid.NewString()
		sentences[i].NLPData = tokens
		sentences[i].Categories = categories

		sentenceLinks := make([]model.SentenceLineLink, 0, len(linkGroups[i]))
		for _, l := range linkGroups[i] {
			l.SentenceID = sentences[i].ID
			sentenceLinks = append(sentenceLinks, l)
		}
		if err := d.store.PutSentence(ctx, sentences[i], sentenceLinks); err != nil {
			return errkind.Wrap(errkind.Storage, err, "put sentence")
		}
		report.SentencesWritten++
	}
	return nil
}

// IngestFiles runs IngestFile over every input concurrently, bounded by
// cfg.MaxNLPWorkers, and returns one Report per input in the same order.
// Cross-file ordering is unconstrained (§5); only the per-file sequence
// IngestFile itself enforces is guaranteed.
func (d *Driver) IngestFiles(ctx context.Context, inputs []FileInput) ([]Report, error) {
	reports := make([]Report, len(inputs))
	limit := d.cfg.MaxNLPWorkers
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range inputs {
		i := i
		g.Go(func() error {
			report, err := d.IngestFile(gctx, inputs[i])
			reports[i] = report
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}
