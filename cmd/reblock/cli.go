package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/reblock/internal/errors"
	"github.com/hpungsan/reblock/internal/logger"
	"github.com/hpungsan/reblock/internal/ops"
	"github.com/hpungsan/reblock/internal/web"
)

// maxStdinBytes bounds text piped to the transform command.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps *ops.Deps, log logger.Logger) *cli.App {
	if log == nil {
		log = logger.NewNop()
	}

	app := &cli.App{
		Name:    "reblock",
		Usage:   "Scrape web pages into editable blocks",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Output format: json|yaml"},
		},
		Before: func(c *cli.Context) error {
			switch c.String("format") {
			case "json", "yaml":
			default:
				return outputError(errors.NewInvalidRequest("format must be json or yaml"))
			}
			c.Context = logger.WithContext(c.Context, log)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(deps, log),
			scrapeCmd(deps),
			historyCmd(deps),
			showCmd(deps),
			changedCmd(deps),
			saveCmd(deps),
			transformCmd(deps),
			img2imgCmd(deps),
			deleteCmd(deps),
			clearCmd(deps),
			exportCmd(deps),
			importCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(deps *ops.Deps, log logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web editor",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(deps, log, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(srv, log); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// scrapeCmd creates the scrape command.
func scrapeCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "scrape",
		Usage:     "Fetch a page and store its blocks",
		ArgsUsage: "<url>",
		Action: func(c *cli.Context) error {
			result, err := ops.Scrape(c.Context, deps, ops.ScrapeInput{URL: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List stored pages, most recent first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			result, err := ops.List(c.Context, deps, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// showCmd creates the show command.
func showCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one stored page with its original and modified blocks",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			result, err := ops.Fetch(c.Context, deps, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// changedCmd creates the changed command.
func changedCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "changed",
		Usage:     "Show the blocks that differ from the originals",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			result, err := ops.Changed(c.Context, deps, ops.ChangedInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save block edits",
		ArgsUsage: "<id> <label=value>...",
		Action: func(c *cli.Context) error {
			edits, err := parseEdits(c.Args().Tail())
			if err != nil {
				return outputError(err)
			}

			result, err := ops.Save(c.Context, deps, ops.SaveInput{
				ID:    c.Args().First(),
				Edits: edits,
			})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// transformCmd creates the transform command.
func transformCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "transform",
		Usage: "Rewrite text with the local text generator (reads text from stdin when --text is omitted)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "action", Aliases: []string{"a"}, Required: true, Usage: "grammar|rephrase|expand|tone_professional|tone_sad|tone_fun"},
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Value: "para1", Usage: "Block label echoed in the output"},
			&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Text to rewrite"},
		},
		Action: func(c *cli.Context) error {
			text := c.String("text")
			if text == "" && stdinHasData() {
				var err error
				text, err = readStdin(os.Stdin)
				if err != nil {
					return outputError(err)
				}
			}

			result, err := ops.Transform(c.Context, deps, ops.TransformInput{
				Text:   text,
				Label:  c.String("label"),
				Action: c.String("action"),
			})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// img2imgCmd creates the img2img command.
func img2imgCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "img2img",
		Usage: "Re-render an image with the local image generator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Source image URL"},
			&cli.StringFlag{Name: "prompt", Usage: "Instruction for the generator"},
		},
		Action: func(c *cli.Context) error {
			result, err := ops.Img2Img(c.Context, deps, ops.Img2ImgInput{
				URL:    c.String("url"),
				Prompt: c.String("prompt"),
			})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a stored page",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			result, err := ops.Delete(c.Context, deps, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Permanently delete every stored page",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "confirm", Usage: "Required to actually delete"},
		},
		Action: func(c *cli.Context) error {
			result, err := ops.Clear(c.Context, deps, ops.ClearInput{Confirm: c.Bool("confirm")})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write every stored page to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Destination .jsonl file (default: timestamped file in the exports directory)"},
		},
		Action: func(c *cli.Context) error {
			result, err := ops.Export(c.Context, deps, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// importCmd creates the import command.
func importCmd(deps *ops.Deps) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Load pages from a JSONL export file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeError), Usage: "On collision: error|replace|skip"},
		},
		Action: func(c *cli.Context) error {
			result, err := ops.Import(c.Context, deps, ops.ImportInput{
				Path: c.Args().First(),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return writeOutput(c, result)
		},
	}
}

// Helper functions

// writeOutput writes v to the app writer in the selected format.
func writeOutput(c *cli.Context, v any) error {
	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}

	if c.String("format") == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var rErr *errors.ReblockError
	if stderrors.As(err, &rErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", rErr.Code, rErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseEdits turns label=value arguments into an edit map.
// Only the first '=' separates label from value.
func parseEdits(args []string) (map[string]string, error) {
	edits := make(map[string]string, len(args))
	for _, arg := range args {
		label, value, ok := strings.Cut(arg, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("edit %q must be label=value", arg))
		}
		edits[label] = value
	}
	return edits, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads up to maxStdinBytes from r.
func readStdin(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxStdinBytes+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if len(data) > maxStdinBytes {
		return "", errors.NewInvalidRequest(fmt.Sprintf("stdin exceeds %d bytes", maxStdinBytes))
	}
	return strings.TrimSpace(string(data)), nil
}
