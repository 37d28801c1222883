// Command relocbotctl runs the retrieval pipeline stages from the shell and
// prints their results as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	logpkg "github.com/sou1nonly/relocation-chatbot/internal/logger"
	"github.com/sou1nonly/relocation-chatbot/internal/version"
	"github.com/sou1nonly/relocation-chatbot/pkg/retrieval"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type ctl struct {
	logger *zap.Logger
	user   *retrieval.UserContext
}

func newApp(out io.Writer) *cli.App {
	c := &ctl{logger: zap.NewNop()}
	return &cli.App{
		Name:    "relocbotctl",
		Usage:   "Inspect the relocation assistant's retrieval pipeline",
		Version: version.Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "user-context",
				Aliases: []string{"u"},
				Usage:   "Path to a JSON user context file",
			},
		},
		Before: c.setup,
		After: func(*cli.Context) error {
			_ = c.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "classify",
				Usage:     "Classify the intent of a query",
				ArgsUsage: "QUERY",
				Action:    c.classify,
			},
			{
				Name:      "rewrite",
				Usage:     "Rewrite a query for web search",
				ArgsUsage: "QUERY",
				Action:    c.rewrite,
			},
			{
				Name:      "search",
				Usage:     "Run the full pipeline against the configured search provider",
				ArgsUsage: "QUERY",
				Action:    c.search,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-key",
						Usage:   "Search provider API key",
						EnvVars: []string{"SEARCH_API_KEY"},
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of results to request from the provider",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum final score; negative selects the default",
						Value: -1,
					},
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "Token budget of the assembled context",
						Value: retrieval.DefaultAssemblyOptions().MaxTokens,
					},
					&cli.StringFlag{
						Name:  "compression",
						Usage: "Compression level (none, light, moderate, aggressive)",
						Value: string(retrieval.CompressionLight),
					},
					&cli.BoolFlag{
						Name:  "context-only",
						Usage: "Print only the assembled context",
					},
				},
			},
		},
	}
}

func (c *ctl) setup(cc *cli.Context) error {
	l, err := logpkg.NewLogger("local", cc.String("log-level"))
	if err != nil {
		return err
	}
	c.logger = l

	path := cc.String("user-context")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read user context: %w", err)
	}
	var uc retrieval.UserContext
	if err := json.Unmarshal(data, &uc); err != nil {
		return fmt.Errorf("parse user context %s: %w", path, err)
	}
	c.user = &uc
	return nil
}

func (c *ctl) classify(cc *cli.Context) error {
	q, err := queryArg(cc)
	if err != nil {
		return err
	}
	eng, err := retrieval.New(retrieval.WithLogger(c.logger))
	if err != nil {
		return err
	}
	defer eng.Close()
	return printJSON(cc.App.Writer, eng.ClassifyIntent(q, c.user))
}

func (c *ctl) rewrite(cc *cli.Context) error {
	q, err := queryArg(cc)
	if err != nil {
		return err
	}
	eng, err := retrieval.New(retrieval.WithLogger(c.logger))
	if err != nil {
		return err
	}
	defer eng.Close()
	in := eng.ClassifyIntent(q, c.user)
	return printJSON(cc.App.Writer, eng.RewriteQuery(q, in, c.user))
}

func (c *ctl) search(cc *cli.Context) error {
	q, err := queryArg(cc)
	if err != nil {
		return err
	}
	opts := retrieval.DefaultAssemblyOptions()
	opts.MaxTokens = cc.Int("max-tokens")
	opts.CompressionLevel = retrieval.CompressionLevel(cc.String("compression"))

	eng, err := retrieval.New(
		retrieval.WithLogger(c.logger),
		retrieval.WithSearchAPI(cc.String("api-key")),
		retrieval.WithSearchLimit(cc.Int("limit")),
	)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resp, err := eng.Run(ctx, retrieval.Request{
		Query:       q,
		UserContext: c.user,
		Options:     opts,
		Threshold:   cc.Float64("threshold"),
	})
	if err != nil {
		return err
	}
	if resp.SearchUnavailable {
		c.logger.Warn("search provider unavailable, set --api-key or SEARCH_API_KEY")
	}
	if cc.Bool("context-only") {
		return printJSON(cc.App.Writer, resp.Context)
	}
	return printJSON(cc.App.Writer, resp)
}

func queryArg(cc *cli.Context) (string, error) {
	q := strings.TrimSpace(strings.Join(cc.Args().Slice(), " "))
	if q == "" {
		return "", errors.New("query is required")
	}
	return q, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
