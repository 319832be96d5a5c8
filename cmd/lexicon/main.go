/*
lexicon drives C5's create_or_update/task_status/trigger_delete/delete/
list_versions/get_lexical boundary (§4.5, §6) against a configured Storage
Adapter, search service and the Anthropic LLM boundary.

Usage:

	go run cmd/lexicon/main.go [flags] <command> <lemma> [version|task-id|trigger-id]

Commands:

	create-or-update <lemma>       run §4.5's generation pipeline for lemma
	task-status <task-id>          report a previously started task's status
	trigger-delete <lemma>          start the two-phase delete for lemma
	delete <lemma> <trigger-id>     confirm a delete started by trigger-delete
	list-versions <lemma>          list all versions for lemma, newest first
	get-lexical <lemma> [version]  fetch lemma's given version, or latest

Flags:

	-config string
	    Path to a YAML config file
	-lemma-form
	    For create-or-update, treat <lemma> as a lemma match (SearchLemma)
	-language string
	    Language code for create-or-update (default "grc")
	-categories string
	    Comma-separated NLP category filter for create-or-update

Example:

	go run cmd/lexicon/main.go -lemma-form create-or-update ἄρθρον
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pterm/pterm"

	"github.com/Atlogit/atlomy/internal/cache"
	"github.com/Atlogit/atlomy/internal/config"
	"github.com/Atlogit/atlomy/internal/lexicon"
	"github.com/Atlogit/atlomy/internal/llm/anthropic"
	"github.com/Atlogit/atlomy/internal/model"
	"github.com/Atlogit/atlomy/internal/observability"
	"github.com/Atlogit/atlomy/internal/persistence/databases"
	"github.com/Atlogit/atlomy/internal/search"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		lemmaForm  = flag.Bool("lemma-form", false, "treat <lemma> as a lemma match")
		language   = flag.String("language", "grc", "language code")
		categories = flag.String("categories", "", "comma-separated NLP category filter")
	)
	flag.Parse()

	if flag.NArg() < 2 {
		pterm.Error.Println("usage: lexicon <command> <lemma> [version|task-id|trigger-id]")
		os.Exit(2)
	}
	command := flag.Arg(0)
	lemma := flag.Arg(1)

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

	searchSvc := search.New(store, cacheStore, cfg.Search)
	llmClient := anthropic.New(cfg.Anthropic)
	svc := lexicon.New(store, searchSvc, llmClient, cfg.Lexicon)

	if err := run(ctx, svc, command, lemma, flag.Args()[2:], lexicon.Options{
		SearchLemma:  *lemmaForm,
		LanguageCode: *language,
		Categories:   toCategorySet(*categories),
	}); err != nil {
		pterm.Error.Printf("%v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *lexicon.Service, command, lemma string, rest []string, opts lexicon.Options) error {
	switch command {
	case "create-or-update":
		taskID, err := svc.CreateOrUpdate(ctx, lemma, opts)
		if err != nil {
			return fmt.Errorf("create or update: %w", err)
		}
		pterm.Success.Printfln("task %s started for %q", taskID, lemma)
		return nil

	case "task-status":
		task, err := svc.TaskStatus(ctx, lemma)
		if err != nil {
			return fmt.Errorf("task status: %w", err)
		}
		pterm.Info.Printfln("task %s: status=%s action=%s message=%q", task.ID, task.Status, task.Action, task.Message)
		return nil

	case "trigger-delete":
		triggerID, entry, err := svc.TriggerDelete(ctx, lemma)
		if err != nil {
			return fmt.Errorf("trigger delete: %w", err)
		}
		pterm.Warning.Printfln("trigger %s will delete %q version %s; confirm with: delete %s %s", triggerID, lemma, entry.Version, lemma, triggerID)
		return nil

	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("delete requires a trigger-id argument")
		}
		if err := svc.Delete(ctx, lemma, rest[0]); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		pterm.Success.Printfln("deleted latest version of %q", lemma)
		return nil

	case "list-versions":
		versions, err := svc.ListVersions(ctx, lemma)
		if err != nil {
			return fmt.Errorf("list versions: %w", err)
		}
		for _, v := range versions {
			pterm.Println(v)
		}
		return nil

	case "get-lexical":
		version := ""
		if len(rest) == 1 {
			version = rest[0]
		}
		lv, err := svc.GetLexical(ctx, lemma, version)
		if err != nil {
			return fmt.Errorf("get lexical: %w", err)
		}
		printLexicalValue(lv)
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printLexicalValue(lv model.LexicalValue) {
	pterm.Println(pterm.Bold.Sprintf("%s (v%s)", lv.Lemma, lv.Version))
	pterm.Println("  translation: " + lv.Translation)
	pterm.Println("  " + lv.ShortDescription)
	if lv.LongDescription != "" {
		pterm.Println("  " + lv.LongDescription)
	}
	if len(lv.RelatedTerms) > 0 {
		pterm.Println("  related: " + strings.Join(lv.RelatedTerms, ", "))
	}
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
