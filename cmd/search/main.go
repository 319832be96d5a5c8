/*
search drives C4's search/get_page boundary (§4.4, §6) against a configured
Storage Adapter and cache, without the HTTP layer (an explicit Non-goal).

Usage:

	go run cmd/search/main.go [flags] <query>

Flags:

	-config string
	    Path to a YAML config file
	-lemma
	    Treat <query> as a lemma match rather than free text (SearchLemma)
	-categories string
	    Comma-separated NLP category filter
	-page-size int
	    Page size for the first page (0 uses the configured default)
	-page int
	    Page to fetch from an existing results-id instead of running a new search
	-results-id string
	    Existing results_id to page through (requires -page)

Example:

	go run cmd/search/main.go -lemma -categories noun,verb ἄρθρον
*/
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pterm/pterm"

	"github.com/Atlogit/atlomy/internal/cache"
	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/observability"
	"github.com/Atlogit/atlomy/internal/persistence/databases"
	"github.com/Atlogit/atlomy/internal/search"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		lemma      = flag.Bool("lemma", false, "treat the query as a lemma match")
		categories = flag.String("categories", "", "comma-separated NLP category filter")
		pageSize   = flag.Int("page-size", 0, "page size for the first page")
		page       = flag.Int("page", 0, "page to fetch from an existing results-id")
		resultsID  = flag.String("results-id", "", "existing results_id to page through")
	)
	flag.Parse()

	if *resultsID == "" && flag.NArg() != 1 {
		pterm.Error.Println("usage: search [-lemma] [-categories a,b] <query>  |  search -results-id <id> -page <n>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		pterm.Error.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("", cfg.LogLevel)

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

	var cacheStore cache.Store
	if cfg.Redis.Enabled {
		cacheStore, err = cache.NewRedisStore(cfg.Redis)
		if err != nil {
			pterm.Error.Printf("connect to redis: %v\n", err)
			os.Exit(1)
		}
	} else {
		cacheStore = cache.NewMemoryStore()
	}

	svc := search.New(store, cacheStore, cfg.Search)

	if *resultsID != "" {
		res, err := svc.GetPage(ctx, *resultsID, *page, *pageSize)
		if err != nil {
			pterm.Error.Printf("get page: %v\n", err)
			os.Exit(1)
		}
		printResults(res.Results, res.Total, res.Page, res.PageSize)
		return
	}

	q := model.SearchQuery{
		Query:       flag.Arg(0),
		SearchLemma: *lemma,
		Categories:  toCategorySet(*categories),
		PageSize:    *pageSize,
	}
	res, err := svc.Search(ctx, q)
	if err != nil {
		pterm.Error.Printf("search: %v\n", err)
		os.Exit(1)
	}
	pterm.Info.Printfln("results_id: %s", res.ResultsID)
	printResults(res.FirstPage, res.Total, 1, len(res.FirstPage))
}

func toCategorySet(raw string) map[string]struct{} {
	if raw == "" {
		return nil
	}
	out := make(map[string]struct{})
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			out[c] = struct{}{}
		}
	}
	return out
}

func printResults(results []model.Result, total, page, pageSize int) {
	pterm.Success.Printfln("page %d (page size %d) of %d total", page, pageSize, total)
	for _, r := range results {
		pterm.Println(pterm.Bold.Sprintf("%s %s", r.Source.Author, r.CitationString))
		pterm.Println("  " + r.SentenceText)
	}
}
