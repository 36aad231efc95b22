package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	_ "modernc.org/sqlite"

	"github.com/lox/climafetch/internal/app"
	"github.com/lox/climafetch/internal/cache"
	"github.com/lox/climafetch/internal/climacell"
	"github.com/lox/climafetch/internal/config"
	"github.com/lox/climafetch/internal/datasource"
	"github.com/lox/climafetch/internal/httputil"
	"github.com/lox/climafetch/internal/logging"
	"github.com/lox/climafetch/internal/metrics"
	"github.com/lox/climafetch/internal/report"
	"github.com/lox/climafetch/internal/snapshot"
	"github.com/lox/climafetch/internal/store"
)

var version = "dev"

const defaultEnvFile = ".env"

type CLI struct {
	Config config.Config `embed:""`

	EnvFile string           `name:"env-file" help:"Load environment variables from this file." default:".env" env:"CLIMAFETCH_ENV_FILE"`
	Version kong.VersionFlag `short:"V" help:"Print version and exit."`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Fetch the weather, print the report and record it."`
	History HistoryCmd `cmd:"" help:"Print recently recorded snapshots."`
	Raw     RawCmd     `cmd:"" help:"Print an archived API response by ID or sha256 hash."`
}

// exitError carries a non-zero run outcome out of kong's command dispatch.
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := config.LoadEnvFiles(envFileFromArgs(args)); err != nil {
		fmt.Fprintf(stderr, "climafetch: %v\n", err)
		return app.Failure.ExitCode()
	}

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("climafetch"),
		kong.Description("Fetch current conditions and a short forecast from ClimaCell for a desktop widget."),
		kong.Vars{"version": version},
		kong.Writers(stdout, stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(stdout, (*io.Writer)(nil)),
	)
	if err != nil {
		fmt.Fprintf(stderr, "climafetch: %v\n", err)
		return app.Failure.ExitCode()
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "climafetch: %v\n", err)
		return app.Failure.ExitCode()
	}

	err = kctx.Run(&cli.Config)
	var exit exitError
	switch {
	case err == nil:
		return app.Success.ExitCode()
	case errors.As(err, &exit):
		return int(exit)
	default:
		fmt.Fprintf(stderr, "climafetch: %v\n", err)
		return app.Failure.ExitCode()
	}
}

// envFileFromArgs finds --env-file before kong parses, so the file can feed env tags.
func envFileFromArgs(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v
		}
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if v := os.Getenv("CLIMAFETCH_ENV_FILE"); v != "" {
		return v
	}
	return defaultEnvFile
}

type RunCmd struct{}

func (r *RunCmd) Run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dataDir, err := cfg.DataPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	closeLog, err := setupLogging(cfg, dataDir)
	if err != nil {
		return err
	}
	defer closeLog()

	loc, tzName, err := cfg.LoadLocation()
	if err != nil {
		return err
	}

	var blobs datasource.BlobStore
	if !cfg.SkipCache {
		c, err := cache.New(config.CacheDir(dataDir))
		if err != nil {
			slog.Warn("climafetch: cache disabled", "error", err)
		} else {
			blobs = c
		}
	}

	client := climacell.NewClient(climacell.Options{
		APIKey:            cfg.APIKey,
		Location:          cfg.Location,
		TimeZone:          cfg.TimeZone,
		BaseURL:           cfg.BaseURL,
		HTTPClient:        httputil.NewClient(cfg.Timeout),
		RetryWindow:       cfg.RetryWindow,
		RequestsPerSecond: cfg.Rate,
	})

	source := datasource.NewClimaCell(client, blobs, datasource.Options{
		Offline:   cfg.Offline,
		NoCache:   cfg.NoCache,
		SkipCache: cfg.SkipCache,
		Location:  loc,
	})

	var history app.HistoryStore
	if !cfg.NoDB {
		st, closeDB, err := openStore(config.DBPath(dataDir))
		if err != nil {
			slog.Warn("climafetch: history disabled", "error", err)
		} else {
			defer closeDB()
			history = st
		}
	}

	var buf bytes.Buffer
	out := stdout
	if cfg.Output != config.Stdout {
		out = &buf
	}

	outcome := app.Run(ctx, app.Deps{
		Source:       source,
		Builder:      snapshot.New(cfg.Units(), loc, tzName),
		Reporter:     report.Reporter{Out: out, Silent: cfg.Silent},
		Store:        history,
		ArchiveRaw:   !cfg.SkipCache,
		RawRetention: cfg.RawRetention,
	})

	if outcome == app.Success && cfg.Output != config.Stdout && !cfg.Silent {
		if err := writeFileAtomic(cfg.Output, buf.Bytes()); err != nil {
			slog.Error("climafetch: write output", "path", cfg.Output, "error", err)
			outcome = app.Failure
		}
	}

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Warn("climafetch: write metrics", "path", cfg.MetricsFile, "error", err)
		}
	}

	if outcome != app.Success {
		return exitError(outcome.ExitCode())
	}
	return nil
}

type HistoryCmd struct {
	Limit int `help:"Number of rows to print." default:"10"`
}

func (h *HistoryCmd) Run(cfg *config.Config, stdout io.Writer) error {
	loc, _, err := cfg.LoadLocation()
	if err != nil {
		return err
	}

	st, closeFn, err := openDataStore(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	count, err := st.HistoryCount()
	if err != nil {
		return err
	}
	schema, err := st.MigrationVersion()
	if err != nil {
		return err
	}
	rows, err := st.RecentHistory(h.Limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%d recorded (schema v%d)\n", count, schema)
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tSUMMARY\tTEMP\tFEELS\tHUMIDITY\tWIND\tDIR\tPRESSURE\tPRECIP")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%.1f\t%.0f%%\t%.1f\t%d\t%.1f\t%.0f%% %s\n",
			r.ID,
			time.Unix(r.Timestamp, 0).In(loc).Format("2006-01-02 15:04"),
			r.Summary, r.Temperature, r.FeelsLike, r.Humidity, r.WindSpeed, r.WindBearing,
			r.Pressure, r.PrecipProbability, r.PrecipType)
	}
	return tw.Flush()
}

type RawCmd struct {
	Ref string `arg:"" help:"Archived response ID, or the sha256 hex digest of its body."`
}

func (r *RawCmd) Run(cfg *config.Config, stdout io.Writer) error {
	st, closeFn, err := openDataStore(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	var p *store.RawPayload
	if id, perr := strconv.ParseInt(r.Ref, 10, 64); perr == nil {
		p, err = st.GetRawPayload(id)
	} else {
		p, err = st.GetRawPayloadByHash(r.Ref)
	}
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no archived response %q", r.Ref)
	}

	body, err := p.Body()
	if err != nil {
		return err
	}
	slog.Info("climafetch: raw payload", "id", p.ID, "source", p.Source, "endpoint", p.Endpoint, "fetched_at", p.FetchedAt)

	if _, err := stdout.Write(body); err != nil {
		return err
	}
	if !bytes.HasSuffix(body, []byte("\n")) {
		_, err = io.WriteString(stdout, "\n")
	}
	return err
}

// openDataStore sets up logging and opens the history database for the read-only commands.
func openDataStore(cfg *config.Config) (*store.Store, func(), error) {
	dataDir, err := cfg.DataPath()
	if err != nil {
		return nil, nil, err
	}
	closeLog, err := setupLogging(cfg, dataDir)
	if err != nil {
		return nil, nil, err
	}
	st, closeDB, err := openStore(config.DBPath(dataDir))
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return st, func() {
		closeDB()
		closeLog()
	}, nil
}

func setupLogging(cfg *config.Config, dataDir string) (func() error, error) {
	path := cfg.LogFile
	if path == "" {
		path = config.LogPath(dataDir)
	}
	logger, closeFn, err := logging.New(logging.Options{Path: path, Level: cfg.LogLevel, Debug: cfg.Debug})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.With("version", version))
	return closeFn, nil
}

func openStore(path string) (*store.Store, func() error, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, db.Close, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
