package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/soltvedt/raido/internal"
	"github.com/soltvedt/raido/internal/capsa"
	"github.com/soltvedt/raido/internal/engine"
	"github.com/soltvedt/raido/internal/index"
	"github.com/soltvedt/raido/internal/resolve"
	"github.com/soltvedt/raido/internal/storage"
	pkgconfig "github.com/soltvedt/raido/pkg/config"
)

func capsaContext(cmd *cli.Command) capsa.Context {
	home := cmd.String("home")
	if home == "" {
		home = internal.DefaultHome()
	}
	return capsa.NewContext(home, cmd.Bool("global"))
}

// openEngine resolves the selected capsa and builds an engine over it.
func openEngine(cmd *cli.Command) (*engine.Engine, *capsa.Ref, error) {
	cctx := capsaContext(cmd)
	if err := os.MkdirAll(cctx.Home, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create home dir: %w", err)
	}

	var ref *capsa.Ref
	var err error
	if name := cmd.String("capsa"); name != "" {
		ref, err = cctx.Resolve(name)
	} else {
		ref, err = cctx.EnsureDefault()
	}
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewFS(ref.Path)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(store, engine.NewClock(), cctx.Agent), ref, nil
}

func requireArg(cmd *cli.Command, n int, name string) (string, error) {
	if cmd.Args().Len() <= n {
		return "", fmt.Errorf("missing required argument <%s>", name)
	}
	return cmd.Args().Get(n), nil
}

func printOutcome(out resolve.Outcome) error {
	switch out.State() {
	case resolve.NotFound:
		return errors.New("no note matches")
	case resolve.Unique:
		p, _ := out.UniquePath()
		fmt.Println(p)
	default:
		for _, p := range out.Paths() {
			fmt.Println(p)
		}
	}
	return nil
}

func printTasks(tasks []engine.TaskInfo) {
	for _, t := range tasks {
		owner := "-"
		if t.Owner != "" {
			owner = "@" + t.Owner
		}
		title := t.Title
		if title == "" {
			title = "-"
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, owner, title, t.Target)
	}
}

func dailyAction(ctx context.Context, cmd *cli.Command) error {
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	title := strings.Join(cmd.Args().Slice(), " ")
	p, err := eng.CreateDailyNote(title, cmd.String("content"))
	if err != nil {
		return err
	}
	fmt.Println(p)
	return nil
}

func noteAction(ctx context.Context, cmd *cli.Command) error {
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	title := strings.Join(cmd.Args().Slice(), " ")
	p, err := eng.CreatePermanentNote(title, cmd.String("source"), cmd.String("content"))
	if err != nil {
		return err
	}
	fmt.Println(p)
	return nil
}

func resolveAction(ctx context.Context, cmd *cli.Command) error {
	ref, err := requireArg(cmd, 0, "ref")
	if err != nil {
		return err
	}
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	out, err := eng.Resolve(ref)
	if err != nil {
		return err
	}
	return printOutcome(out)
}

func catAction(ctx context.Context, cmd *cli.Command) error {
	ref, err := requireArg(cmd, 0, "ref")
	if err != nil {
		return err
	}
	eng, _, err := openEngine(cmd)
	if err != nil {
		return err
	}
	_, data, err := eng.ReadNote(ref)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

// openIndex opens the SQLite index (capsa-selected via the usual flags)
// and syncs it against the capsa on disk.
func openIndex(cmd *cli.Command) (*index.DB, error) {
	_, ref, err := openEngine(cmd)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewFS(ref.Path)
	if err != nil {
		return nil, err
	}

	dbPath := cmd.String("index")
	if dbPath == "" {
		cctx := capsaContext(cmd)
		dbPath = filepath.Join(cctx.Home, "raido.db")
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if err := index.Sync(db, store, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, 0, "query")
	if err != nil {
		return err
	}
	db, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Search(query, 20)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Snippet != "" {
			fmt.Printf("%s\t%s\t%s\n", r.Path, r.Title, r.Snippet)
		} else {
			fmt.Printf("%s\t%s\n", r.Path, r.Title)
		}
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Markdown note collections with short-reference resolution and a shared task ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "home",
				Usage:   "Raido home directory holding all capsas",
				Sources: cli.EnvVars(capsa.EnvHome),
			},
			&cli.StringFlag{
				Name:    "capsa",
				Aliases: []string{"C"},
				Usage:   "Capsa name (default: agent capsa or system default)",
			},
			&cli.BoolFlag{
				Name:    "global",
				Aliases: []string{"g"},
				Usage:   "Bypass agent prefixing of capsa names",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "daily",
				Aliases:   []string{"d"},
				Usage:     "Create a timestamped note in today's daily directory",
				ArgsUsage: "[title...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "content", Usage: "Markdown body"},
				},
				Action: dailyAction,
			},
			{
				Name:      "note",
				Aliases:   []string{"n"},
				Usage:     "Create a permanent note",
				ArgsUsage: "<title...>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "content", Usage: "Markdown body"},
					&cli.StringFlag{Name: "source", Usage: "Origin of the note (URL, book, ...)"},
				},
				Action: noteAction,
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a short reference to note path(s)",
				ArgsUsage: "<ref>",
				Action:    resolveAction,
			},
			{
				Name:      "cat",
				Aliases:   []string{"print"},
				Usage:     "Resolve a reference and print the note content",
				ArgsUsage: "<ref>",
				Action:    catAction,
			},
			{
				Name:  "tag",
				Usage: "Manage tag files linking notes",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Tag the note(s) matching a reference",
						ArgsUsage: "<ref> <tag>",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Tag every candidate on ambiguity"},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							ref, err := requireArg(cmd, 0, "ref")
							if err != nil {
								return err
							}
							tag, err := requireArg(cmd, 1, "tag")
							if err != nil {
								return err
							}
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							paths, err := eng.TagAdd(ref, tag, cmd.Bool("force"))
							if err != nil {
								return err
							}
							for _, p := range paths {
								fmt.Println(p)
							}
							return nil
						},
					},
					{
						Name:      "rm",
						Usage:     "Remove a note from a tag",
						ArgsUsage: "<ref> <tag>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							ref, err := requireArg(cmd, 0, "ref")
							if err != nil {
								return err
							}
							tag, err := requireArg(cmd, 1, "tag")
							if err != nil {
								return err
							}
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							return eng.TagRemove(ref, tag)
						},
					},
					{
						Name:      "list",
						Aliases:   []string{"ls"},
						Usage:     "List tags of a note, or all tags",
						ArgsUsage: "[ref]",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							var tags []string
							if cmd.Args().Len() > 0 {
								tags, err = eng.Tags(cmd.Args().Get(0))
							} else {
								tags, err = eng.AllTags()
							}
							if err != nil {
								return err
							}
							for _, t := range tags {
								fmt.Println(t)
							}
							return nil
						},
					},
				},
			},
			{
				Name:  "task",
				Usage: "Work with the capsa task ledger",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Record a note reference as a task, printing its id",
						ArgsUsage: "<ref>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							ref, err := requireArg(cmd, 0, "ref")
							if err != nil {
								return err
							}
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							id, err := eng.TaskAdd(ref)
							if err != nil {
								return err
							}
							fmt.Println(id)
							return nil
						},
					},
					{
						Name:      "take",
						Usage:     "Claim a task for the current agent",
						ArgsUsage: "<id>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "title", Usage: "Display title for the ledger entry"},
							&cli.StringFlag{Name: "header", Usage: "Ledger heading to file the task under"},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							id, err := requireArg(cmd, 0, "id")
							if err != nil {
								return err
							}
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							return eng.TaskTake(id, cmd.String("title"), cmd.String("header"))
						},
					},
					{
						Name:      "comment",
						Usage:     "Append a timestamped comment to a task",
						ArgsUsage: "<id> <text...>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "hash", Usage: "Short git hash reference"},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							id, err := requireArg(cmd, 0, "id")
							if err != nil {
								return err
							}
							if cmd.Args().Len() < 2 {
								return errors.New("missing required argument <text>")
							}
							text := strings.Join(cmd.Args().Slice()[1:], " ")
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							return eng.TaskComment(id, text, cmd.String("hash"))
						},
					},
					{
						Name:      "release",
						Usage:     "Release task ownership, optionally marking done",
						ArgsUsage: "<id>...",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "done", Aliases: []string{"d"}, Usage: "Also mark the task(s) done"},
							&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Release even when the task has no owner (single id only)"},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							if cmd.Args().Len() == 0 {
								return errors.New("missing required argument <id>")
							}
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							return eng.TaskRelease(cmd.Args().Slice(), cmd.Bool("done"), cmd.Bool("force"))
						},
					},
					{
						Name:    "list",
						Aliases: []string{"ls"},
						Usage:   "List all ledger tasks",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							tasks, err := eng.TaskList()
							if err != nil {
								return err
							}
							printTasks(tasks)
							return nil
						},
					},
					{
						Name:      "show",
						Usage:     "Show one task with its comment log",
						ArgsUsage: "<id>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							id, err := requireArg(cmd, 0, "id")
							if err != nil {
								return err
							}
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							info, comments, err := eng.TaskShow(id)
							if err != nil {
								return err
							}
							printTasks([]engine.TaskInfo{info})
							for _, c := range comments {
								if c.Timestamp != "" {
									fmt.Printf("  %s %s\n", c.Timestamp, c.Text)
								} else {
									fmt.Printf("  %s\n", c.Text)
								}
							}
							return nil
						},
					},
					{
						Name:      "find",
						Usage:     "Find tasks by title or reference substring",
						ArgsUsage: "<query>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							query, err := requireArg(cmd, 0, "query")
							if err != nil {
								return err
							}
							eng, _, err := openEngine(cmd)
							if err != nil {
								return err
							}
							tasks, err := eng.TaskFind(query)
							if err != nil {
								return err
							}
							printTasks(tasks)
							return nil
						},
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Full-text search through the capsa's notes",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "index", Usage: "Path to the SQLite index database"},
				},
				Action: searchAction,
			},
			{
				Name:  "index",
				Usage: "Manage the SQLite content index",
				Commands: []*cli.Command{
					{
						Name:  "sync",
						Usage: "Bring the content index up to date with the capsa",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "index", Usage: "Path to the SQLite index database"},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							db, err := openIndex(cmd)
							if err != nil {
								return err
							}
							return db.Close()
						},
					},
				},
			},
			{
				Name:  "capsa",
				Usage: "Manage note collections",
				Commands: []*cli.Command{
					{
						Name:    "list",
						Aliases: []string{"ls"},
						Usage:   "List capsas in the raido home",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							cctx := capsaContext(cmd)
							names, err := cctx.List()
							if err != nil {
								return err
							}
							for _, n := range names {
								fmt.Println(n)
							}
							return nil
						},
					},
					{
						Name:      "create",
						Usage:     "Create a new capsa",
						ArgsUsage: "<name>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							name, err := requireArg(cmd, 0, "name")
							if err != nil {
								return err
							}
							cctx := capsaContext(cmd)
							if err := os.MkdirAll(cctx.Home, 0o755); err != nil {
								return err
							}
							ref, err := cctx.Create(name)
							if err != nil {
								return err
							}
							fmt.Println(ref.Path)
							return nil
						},
					},
				},
			},
			{
				Name:  "serve",
				Usage: "Serve notes and tasks over MCP on stdio, keeping the index current",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "config",
						Aliases:     []string{"c"},
						Usage:       "Path to config file",
						DefaultText: "config/config.yaml",
						Value:       "config/config.yaml",
						Sources:     cli.EnvVars("RAIDO_CONFIG_FILE"),
					},
				},
				Action: serveAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "raido:", err)
		os.Exit(1)
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := os.Stat(configPath); err == nil || cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Command-line selection overrides the config file.
	if home := cmd.String("home"); home != "" {
		cfg.Home.Path = home
	}
	if name := cmd.String("capsa"); name != "" {
		cfg.Capsa.Name = name
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}
