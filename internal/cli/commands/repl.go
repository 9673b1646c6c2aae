package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/lexo-astro/lexo/internal/cli/output"
)

const replPrompt = "lexo> "

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var opts transitOptions

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Look up planets interactively",
		Long: `Start an interactive session. Each line is looked up as a planet name;
dot-commands switch tables and run the other lookups. History is kept in
the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          replPrompt,
				HistoryFile:     cmdCtx.Cfg.HistoryPath(),
				AutoComplete:    newREPLCompleter(),
				InterruptPrompt: "^C",
				EOFPrompt:       ".quit",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize REPL: %w", err)
			}
			defer func() { _ = rl.Close() }()

			s := newREPLSession(cmdCtx, opts)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "lexo REPL (cache: %s)\n", cmdCtx.Cfg.CachePath())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type a planet name, .help for commands, .quit to exit")
			_, _ = fmt.Fprintln(cmd.OutOrStdout())

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if s.handle(cmd.Context(), line) {
					return nil
				}
			}
		},
	}

	opts.register(cmd)
	return cmd
}

// replSession executes REPL lines against one command context.
type replSession struct {
	cmdCtx *CommandContext
	r      *output.Renderer
	opts   transitOptions
	table  string
}

func newREPLSession(cmdCtx *CommandContext, opts transitOptions) *replSession {
	return &replSession{
		cmdCtx: cmdCtx,
		r:      cmdCtx.Renderer,
		opts:   opts,
		table:  planetTables()[0],
	}
}

// handle runs one input line and reports whether the session should end.
// Lookup errors are printed, never returned.
func (s *replSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, ".") {
		s.report(s.planet(ctx, s.table, line))
		return false
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(command) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(s.r.Writer())
	case ".table":
		if arg == "" {
			s.r.Println("table: " + s.table)
			break
		}
		if err := planetTable(arg); err != nil {
			s.report(err)
			break
		}
		s.table = arg
		s.r.Println("table: " + s.table)
	case ".koi":
		s.report(s.koi(ctx, arg))
	case ".transits":
		s.report(s.transits(ctx, arg))
	default:
		s.r.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", command))
	}
	return false
}

func (s *replSession) report(err error) {
	if err != nil {
		s.r.Error(err.Error())
	}
	s.r.Println()
}

func (s *replSession) planet(ctx context.Context, table, name string) error {
	req, err := s.opts.request()
	if err != nil {
		return err
	}
	tbl, p, score, err := lookupPlanet(ctx, s.cmdCtx.Catalog, table, name)
	if err != nil {
		return err
	}
	warnStale(s.r, tbl)
	return renderPlanetReport(s.r, planetReport(s.r, name, tbl, p, score, req), s.opts.limit)
}

func (s *replSession) koi(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("usage: .koi <kepoi_name|kepler_name>")
	}
	req, err := s.opts.request()
	if err != nil {
		return err
	}
	tbl, rec, err := lookupKOI(ctx, s.cmdCtx, name)
	if err != nil {
		return err
	}
	p, err := normalize(tbl, rec)
	if err != nil {
		return err
	}
	return renderPlanetReport(s.r, planetReport(s.r, name, tbl, p, 100, req), s.opts.limit)
}

func (s *replSession) transits(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("usage: .transits <name>")
	}
	req, err := s.opts.request()
	if err != nil {
		return err
	}
	_, p, score, err := lookupPlanet(ctx, s.cmdCtx.Catalog, s.table, name)
	if err != nil {
		return err
	}
	out, err := predict(p, req)
	if err != nil {
		return err
	}
	return renderTransitList(s.r, out, score, s.opts.limit)
}

func printREPLHelp(w io.Writer) {
	help := `Commands:
  <name>              Look up a planet in the current table
  .koi <name>         Look up a KOI by designation or Kepler name
  .transits <name>    List upcoming transits only
  .table [name]       Show or switch the table (exoplanets, multiexopars, cumulative)
  .help               Show this help
  .quit, .exit        Exit the REPL`
	_, _ = fmt.Fprintln(w, help)
}

func newREPLCompleter() *readline.PrefixCompleter {
	tables := make([]readline.PrefixCompleterInterface, 0, 3)
	for _, t := range planetTables() {
		tables = append(tables, readline.PcItem(t))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".koi"),
		readline.PcItem(".transits"),
		readline.PcItem(".table", tables...),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
