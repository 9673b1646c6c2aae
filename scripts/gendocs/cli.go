package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/cli"
	"github.com/lexo-astro/lexo/internal/cli/output"
	"github.com/lexo-astro/lexo/pkg/transit"
)

// commandGroup lists related commands on the index page.
type commandGroup struct {
	title string
	intro string
	names []string
}

var commandGroups = []commandGroup{
	{"Lookup", "Read planets from the cached catalog tables and predict their transits.",
		[]string{"planet", "koi", "transits", "find"}},
	{"Cache", "Download archive tables into the local SQLite cache and inspect it.",
		[]string{"fetch", "tables"}},
	{"Session", "", []string{"repl", "version", "completion"}},
}

// windowFlags are the flags that shape a transit prediction, in the order
// they are explained.
var windowFlags = []string{"at", "start", "days", "limit"}

func documented(cmd *cobra.Command) bool {
	return !cmd.Hidden && cmd.Name() != "help" && cmd.Name() != "__complete"
}

// generateCLIDocs writes index.md and one page per top-level command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	if err := os.WriteFile(filepath.Join(outDir, "index.md"), cliIndex(root), 0600); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	for _, cmd := range root.Commands() {
		if !documented(cmd) {
			continue
		}
		if err := os.WriteFile(filepath.Join(outDir, cmd.Name()+".md"), commandPage(cmd), 0600); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func cliIndex(root *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for lexo")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/lexo-astro/lexo/cmd/lexo@latest")

	seen := map[string]bool{}
	for _, g := range commandGroups {
		w.Header(2, g.title)
		if g.intro != "" {
			w.Paragraph(g.intro)
		}
		var rows [][]string
		for _, name := range g.names {
			if cmd, _, err := root.Find([]string{name}); err == nil && cmd != root {
				rows = append(rows, commandRow(cmd))
				seen[name] = true
			}
		}
		w.Table([]string{"Command", "Description"}, rows)
	}
	var other [][]string
	for _, cmd := range root.Commands() {
		if documented(cmd) && !seen[cmd.Name()] {
			other = append(other, commandRow(cmd))
		}
	}
	if len(other) > 0 {
		w.Header(2, "Other")
		w.Table([]string{"Command", "Description"}, other)
	}

	if cmd, _, err := root.Find([]string{"transits"}); err == nil {
		writeTransitWindow(w, cmd)
	}

	w.Header(2, "Output")
	modes := make([]string, 0, len(output.Modes()))
	for _, m := range output.Modes() {
		modes = append(modes, InlineCode(m))
	}
	w.Paragraph(fmt.Sprintf("`--output` selects one of %s. `auto` renders styled text on a terminal "+
		"and markdown otherwise; `json` and `yaml` print the full result, including every predicted "+
		"transit regardless of `--limit`. Warnings always go to stderr.", strings.Join(modes, ", ")))

	w.Header(2, "Cache")
	w.Paragraph(fmt.Sprintf("Tables (%s) are downloaded on first use and served from the cache until "+
		"they are older than `cache_ttl`. A failed refresh falls back to the stale copy with a warning. "+
		"With `--offline` nothing is downloaded and a table that was never fetched is an error.",
		strings.Join(quoted(archive.Tables()), ", ")))

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	var env [][]string
	for _, f := range configFields() {
		env = append(env, []string{InlineCode(f.Env), InlineCode(f.Key)})
	}
	w.Table([]string{"Variable", "Key"}, env)
	w.Paragraph("Flags take precedence over environment variables, which take precedence over `lexo.yaml`.")

	return w.Bytes()
}

func commandRow(cmd *cobra.Command) []string {
	link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
	return []string{link, cleanDescription(cmd.Short)}
}

// writeTransitWindow explains the prediction window using the usage text
// of the flags on cmd.
func writeTransitWindow(w *MarkdownWriter, cmd *cobra.Command) {
	w.Header(2, "Transit windows")
	w.Paragraph("`planet`, `koi`, `transits` and `repl` predict transits inside a window. " +
		"The window opens `--start` days after `--at` and holds one transit per whole orbital " +
		"period that fits in `--days`, so a window shorter than the period is empty.")

	var rows [][]string
	for _, name := range windowFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			rows = append(rows, []string{InlineCode("--" + name), defaultValue(f), cleanDescription(f.Usage)})
		}
	}
	w.Table([]string{"Option", "Default", "Description"}, rows)

	w.Paragraph(fmt.Sprintf("A window spanning more than %s periods is rejected. Each transit is "+
		"printed as earliest, likeliest and latest UTC midpoint, one sigma apart.",
		humanize.Comma(transit.MaxTransits)))
}

// commandPage renders the reference page of one command.
func commandPage(cmd *cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if f := cmd.Flags().Lookup("table"); f != nil {
		w.Paragraph(fmt.Sprintf("`--table` defaults to %s.", InlineCode(f.DefValue)))
	}
	if cmd.Flags().Lookup("days") != nil {
		w.Paragraph("See [Transit windows](/cli/#transit-windows) for how `--at`, `--start` and `--days` combine.")
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}
	return w.Bytes()
}

func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, defaultValue(f), cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Short", "Default", "Description"}, rows)
}

// defaultValue quotes string defaults and leaves numbers and booleans bare.
func defaultValue(f *pflag.Flag) string {
	if f.DefValue == "" || f.Value.Type() != "string" {
		return f.DefValue
	}
	return InlineCode(f.DefValue)
}

func quoted(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = InlineCode(n)
	}
	return out
}

// cleanExample strips the indentation shared by every non-blank line.
func cleanExample(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
