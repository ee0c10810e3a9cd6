package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/qet/internal/errors"
	"github.com/hpungsan/qet/internal/ops"
	"github.com/hpungsan/qet/internal/provider"
	"github.com/hpungsan/qet/internal/settings"
	"github.com/hpungsan/qet/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "qet",
		Usage:   "Quick English translation with DeepL, Google or OpenAI",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|yaml"},
		},
		Before: func(c *cli.Context) error {
			switch c.String("format") {
			case "json", "yaml":
				return nil
			default:
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("unsupported output format %q (want json or yaml)", c.String("format"))))
			}
		},
		Commands: []*cli.Command{
			translateCmd(env),
			settingsCmd(env),
			historyCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// translateCmd creates the translate command.
func translateCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "Translate text into English (reads stdin when no text is given)",
		ArgsUsage: "[text...]",
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" && stdinHasData() {
				var err error
				text, err = readStdin()
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
			}

			result := env.orch.Translate(c.Context, text)
			if !result.Success {
				return outputError(result.Err())
			}

			return output(c, result)
		},
	}
}

// settingsCmd creates the settings command group.
func settingsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change translation settings",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Show effective settings (API key masked unless --reveal)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "reveal", Usage: "Show the API key in full"},
				},
				Action: func(c *cli.Context) error {
					s, err := env.orch.GetSettings(c.Context)
					if err != nil {
						return outputError(err)
					}
					if !c.Bool("reveal") {
						s = s.Redacted()
					}
					return output(c, s)
				},
			},
			{
				Name:      "set",
				Usage:     "Replace settings with a JSON object (argument or stdin); omitted fields reset to defaults",
				ArgsUsage: "[json]",
				Action: func(c *cli.Context) error {
					raw := c.Args().First()
					if raw == "" && stdinHasData() {
						var err error
						raw, err = readStdin()
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
					}
					if strings.TrimSpace(raw) == "" {
						return outputError(errors.NewInvalidRequest("settings JSON is required"))
					}

					s, err := env.orch.UpdateSettings(c.Context, json.RawMessage(raw))
					if err != nil {
						return outputError(err)
					}
					return output(c, s.Redacted())
				},
			},
			{
				Name:  "reset",
				Usage: "Restore default settings",
				Action: func(c *cli.Context) error {
					s, err := env.orch.ResetSettings(c.Context)
					if err != nil {
						return outputError(err)
					}
					return output(c, s)
				},
			},
			{
				Name:      "check-key",
				Usage:     "Check an API key's format (defaults to the stored provider and key)",
				ArgsUsage: "[key]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Usage: "Provider: deepl|google|openai"},
				},
				Action: func(c *cli.Context) error {
					s, err := env.orch.GetSettings(c.Context)
					if err != nil {
						return outputError(err)
					}
					providerName := s.Provider
					if p := c.String("provider"); p != "" {
						if !provider.IsSupported(p) {
							return outputError(errors.NewUnknownProvider(p))
						}
						providerName = p
					}
					key := s.APIKey
					if c.NArg() > 0 {
						key = c.Args().First()
					}
					return output(c, settings.CheckKeyFormat(providerName, key))
				},
			},
		},
	}
}

// historyCmd creates the history command group.
func historyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List, clear or export past translations",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List translations, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.PopupHistoryLimit, Usage: "Maximum records (0 = all)"},
				},
				Action: func(c *cli.Context) error {
					if c.Int("limit") < 0 {
						return outputError(errors.NewInvalidRequest("limit must be >= 0"))
					}
					records, err := env.orch.GetHistory(c.Context, c.Int("limit"))
					if err != nil {
						return outputError(err)
					}
					return output(c, records)
				},
			},
			{
				Name:  "clear",
				Usage: "Delete all translation history",
				Action: func(c *cli.Context) error {
					if err := env.orch.ClearHistory(c.Context); err != nil {
						return outputError(err)
					}
					return output(c, map[string]any{"cleared": true})
				},
			},
			{
				Name:  "export",
				Usage: "Export history to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.qet/exports/history-<timestamp>.<format>)"},
					&cli.StringFlag{Name: "as", Value: "jsonl", Usage: "File format: jsonl|md|html"},
					&cli.StringFlag{Name: "provider", Usage: "Only export records from this provider"},
				},
				Action: func(c *cli.Context) error {
					out, err := env.orch.ExportHistory(c.Context, ops.ExportInput{
						Path:     c.String("path"),
						Format:   c.String("as"),
						Provider: c.String("provider"),
					})
					if err != nil {
						return outputError(err)
					}
					return output(c, out)
				},
			},
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API for the browser extension",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default from config, 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Usage: "Port (default from config, 8787)"},
		},
		Action: func(c *cli.Context) error {
			bind := env.cfg.HTTPBind
			if b := c.String("bind"); b != "" {
				bind = b
			}
			port := env.cfg.HTTPPort
			if p := c.Int("port"); p > 0 {
				port = p
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(env.orch, env.broker, env.logger, web.Options{
				Bind:           bind,
				Port:           port,
				AllowedOrigins: env.cfg.AllowedOrigins,
				Version:        Version,
			})
			if err := srv.Start(ctx); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// output writes v to stdout in the --format chosen.
func output(c *cli.Context, v any) error {
	if c.String("format") == "yaml" {
		return outputYAML(os.Stdout, v)
	}
	return outputJSON(v)
}

// outputJSON writes v as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML writes v as YAML, keyed by its JSON field names.
func outputYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// outputError formats error for CLI.
func outputError(err error) error {
	if qErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", qErr.Code, qErr.PublicMessage()), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// maxStdinBytes bounds piped input. Provider limits are far smaller.
const maxStdinBytes = 1 << 20

// readStdin reads all content from stdin, up to maxStdinBytes. The text is
// returned as sent; callers decide what counts as empty.
func readStdin() (string, error) {
	return readLimited(os.Stdin, maxStdinBytes)
}

func readLimited(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return string(data), nil
}

