/*
ingest drives a single source file through the citation parser, division
ingestor, sentence reconstructor and NLP Adapter boundary, and persists the
result (§2, §4, §5).

Usage:

	go run cmd/ingest/main.go [flags] <source-file>

Flags:

	-config string
	    Path to a YAML config file (optional; env vars and defaults apply)
	-structure string
	    Path to a JSON work structure descriptor: {"<author_id>/<work_id>": ["chapter","section"]}
	-author-ref string
	    Author reference code (required)
	-author-name string
	    Author display name
	-language string
	    ISO language code (default "grc")
	-work-ref string
	    Work reference code (required)
	-work-title string
	    Work display title

Example:

	go run cmd/ingest/main.go -structure structure.json -author-ref 0627 \
	    -work-ref 010 -work-title "De Articulis" corpus/0627_010.txt
*/
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pterm/pterm"

	"github.com/Atlogit/atlomy/internal/citation"
	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/ingest"
	"github.com/Atlogit/atlomy/internal/nlp"
	"github.com/Atlogit/atlomy/internal/observability"
	"github.com/Atlogit/atlomy/internal/persistence/databases"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to YAML config file")
		structPath   = flag.String("structure", "", "path to work structure descriptor JSON (required)")
		authorRef    = flag.String("author-ref", "", "author reference code (required)")
		authorName   = flag.String("author-name", "", "author display name")
		languageCode = flag.String("language", "grc", "ISO language code")
		workRef      = flag.String("work-ref", "", "work reference code (required)")
		workTitle    = flag.String("work-title", "", "work display title")
	)
	flag.Parse()

	if *structPath == "" || *authorRef == "" || *workRef == "" || flag.NArg() != 1 {
		pterm.Error.Println("usage: ingest -structure <file> -author-ref <code> -work-ref <code> <source-file>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		pterm.Error.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("", cfg.LogLevel)

	structure, err := loadStructure(*structPath)
	if err != nil {
		pterm.Error.Printf("load structure descriptor: %v\n", err)
		os.Exit(1)
	}

	srcPath := flag.Arg(0)
	src, err := os.Open(srcPath)
	if err != nil {
		pterm.Error.Printf("open source file: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	ctx := context.Background()

	var pool *pgxpool.Pool
	if cfg.Database.DSN != "" {
		pool, err = pgxpool.New(ctx, cfg.Database.DSN)
		if err != nil {
			pterm.Error.Printf("connect to postgres: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()
	}
	store := databases.NewPostgresStore(pool)
	if err := store.Init(ctx); err != nil {
		pterm.Error.Printf("init store: %v\n", err)
		os.Exit(1)
	}

	driver := ingest.New(store, structure, nlp.Stub{}, cfg.Ingestion)

	pterm.Info.Printfln("ingesting %s as %s/%s", srcPath, *authorRef, *workRef)
	report, err := driver.IngestFile(ctx, ingest.FileInput{
		AuthorReferenceCode: *authorRef,
		AuthorName:          *authorName,
		LanguageCode:        *languageCode,
		WorkReferenceCode:   *workRef,
		WorkTitle:           *workTitle,
		Reader:              src,
	})
	if err != nil {
		pterm.Error.Printf("ingestion failed: %v\n", err)
		os.Exit(1)
	}

	pterm.Success.Printfln(
		"report %s: %d lines read, %d divisions, %d lines, %d sentences, %d collected errors",
		report.ReportID, report.LinesRead, report.DivisionsWritten, report.LinesWritten,
		report.SentencesWritten, len(report.Errors),
	)
	for _, e := range report.Errors {
		pterm.Warning.Printfln("  %v", e)
	}
}

func loadStructure(path string) (citation.StaticStructure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return citation.StaticStructure(raw), nil
}
