package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gateway-trace/internal/catalog"
	"gateway-trace/internal/clipboard"
	"gateway-trace/internal/config"
	"gateway-trace/internal/export"
	"gateway-trace/internal/logapi"
	"gateway-trace/internal/render"
	"gateway-trace/internal/store"
	"gateway-trace/internal/ui"
	"gateway-trace/internal/viewer"
	"gateway-trace/internal/web"
)

const usage = `usage: gateway-trace [command] [flags]

commands:
  tui      browse transcripts in the terminal (default)
  serve    serve the browser viewer
  sync     copy every listed transcript into the local cache
  search   full-text search over cached transcripts; lists them without a query

Run "gateway-trace <command> -h" for flags.
`

func main() {
	name, args := "tui", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}

	var err error
	switch name {
	case "tui":
		err = runTUI(args)
	case "serve":
		err = runServe(args)
	case "sync":
		err = runSync(args)
	case "search":
		err = runSearch(args)
	case "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
}

// app holds what every subcommand shares: config, backend client, optional
// cache and the controller wired to both.
type app struct {
	cfg    config.AppConfig
	client *logapi.Client
	store  *store.Store
	ctl    *viewer.Controller
}

func setup(name string, args []string, logger *log.Logger) (*app, error) {
	cfg, err := config.Parse(name, args)
	if err != nil {
		return nil, err
	}
	client, err := logapi.New(cfg.BackendURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, client: client}
	opts := []viewer.Option{
		viewer.WithLogger(logger),
		viewer.WithLabeler(catalog.Labeler{Layout: cfg.TimeLayout, Location: time.Local}),
	}
	if !cfg.NoCache {
		st, err := store.New(cfg.DBPath, cfg.Reindex)
		if err != nil {
			return nil, fmt.Errorf("open transcript cache: %w", err)
		}
		a.store = st
		opts = append(opts, viewer.WithCache(st))
	}
	a.ctl = viewer.New(client, opts...)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func runTUI(args []string) error {
	logger := log.New(io.Discard, "", 0)
	if os.Getenv("GATEWAY_TRACE_DEBUG") != "" {
		f, err := tea.LogToFile(filepath.Join(os.TempDir(), "gateway-trace.log"), "debug")
		if err != nil {
			return fmt.Errorf("open debug log: %w", err)
		}
		defer f.Close()
		logger = log.Default()
	}

	a, err := setup("tui", args, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	exp, err := export.New(a.cfg.ExportDir)
	if err != nil {
		return err
	}
	var searcher ui.Searcher
	if a.store != nil {
		searcher = a.store
	}

	p := tea.NewProgram(ui.NewModel(a.cfg, a.ctl, searcher, exp), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runServe(args []string) error {
	logger := log.Default()
	a, err := setup("serve", args, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var search web.Searcher
	if a.store != nil {
		search = a.store
	}
	s := web.New(a.ctl, render.NewHTML(), search, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	log.Printf("gateway-trace viewer on http://%s/viewer (backend=%s, cache=%t, fts=%t)", a.cfg.Listen, a.cfg.BackendURL, a.store != nil, a.store != nil && a.store.FTSEnabled())

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

func runSync(args []string) error {
	logger := log.Default()
	a, err := setup("sync", args, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		return errors.New("sync needs the transcript cache; drop -no-cache")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	stats, err := a.ctl.Sync(ctx, a.cfg.Workers, a.cfg.Reindex)
	fmt.Printf("listed %d, fetched %d, skipped %d, failed %d in %s\n",
		stats.Listed, stats.Fetched, stats.Skipped, stats.Failed, time.Since(start).Round(time.Millisecond))
	return err
}

func runSearch(args []string) error {
	a, err := setup("search", args, log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		return err
	}
	defer a.Close()
	if a.store == nil {
		return errors.New("search needs the transcript cache; drop -no-cache")
	}
	query := strings.TrimSpace(strings.Join(a.cfg.Args, " "))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if query == "" {
		return listCached(ctx, a)
	}
	hits, err := a.store.Search(ctx, query, 50)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("no cached transcripts match")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tFETCHED\tLINK\tPREVIEW")
	for _, h := range hits {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", h.Score, store.FormatUnix(h.FetchedAt), clipboard.DeepLink(a.cfg.PublicURL, h.Path), h.Preview)
	}
	return tw.Flush()
}

func listCached(ctx context.Context, a *app) error {
	entries, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("transcript cache is empty; run sync first")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MSGS\tFETCHED\tLINK\tPREVIEW")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.MessageCount, store.FormatUnix(e.FetchedAt), clipboard.DeepLink(a.cfg.PublicURL, e.Path), e.Preview)
	}
	return tw.Flush()
}
