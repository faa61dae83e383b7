// ren is the demonstration host for the runtime core: it builds a feed of
// values from the command line (the surface lexer is not part of the core),
// evaluates it, and prints the result. The stats subcommand renders the
// runtime counters.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/renlabs/go-ren/core"
	"github.com/renlabs/go-ren/log"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML config file with runtime tuning",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "logging verbosity: 0=error .. 4=trace",
		Value: 2,
	}
)

func main() {
	app := &cli.App{
		Name:  "ren",
		Usage: "runtime core host",
		Flags: []cli.Flag{configFlag, verbosityFlag},
		Commands: []*cli.Command{
			{
				Name:      "eval",
				Usage:     "evaluate space-separated tokens (integers, words, word: assignments)",
				ArgsUsage: "<tokens...>",
				Action:    runEval,
				Flags:     []cli.Flag{configFlag, verbosityFlag},
			},
			{
				Name:   "stats",
				Usage:  "run a workload and print allocator/GC counters",
				Action: runStats,
				Flags:  []cli.Flag{configFlag, verbosityFlag},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		color.Red("ren: %v", err)
		os.Exit(1)
	}
}

func setupRuntime(ctx *cli.Context) (*core.Runtime, error) {
	setVerbosity(ctx.Int("verbosity"))
	cfg := core.DefaultConfig()
	if path := ctx.String("config"); path != "" {
		fileCfg, err := loadConfig(path)
		if err != nil {
			return nil, err
		}
		applyConfig(&cfg, fileCfg)
	}
	return core.Init(cfg)
}

func setVerbosity(v int) {
	lvl := log.LevelInfo
	switch {
	case v <= 0:
		lvl = log.LevelError
	case v == 1:
		lvl = log.LevelWarn
	case v == 2:
		lvl = log.LevelInfo
	case v == 3:
		lvl = log.LevelDebug
	default:
		lvl = log.LevelTrace
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
}

// tokensToCells does the bare minimum a demo needs: integers, words,
// set-words and blanks. Anything else is the lexer's job, which the core
// does not ship.
func tokensToCells(rt *core.Runtime, tokens []string) ([]core.Cell, error) {
	var out []core.Cell
	for _, tok := range tokens {
		var c core.Cell
		switch {
		case tok == "_":
			core.InitBlank(&c)
		case strings.HasSuffix(tok, ":"):
			sym, err := rt.Intern(strings.TrimSuffix(tok, ":"))
			if err != nil {
				return nil, err
			}
			core.InitSetWord(&c, sym)
		default:
			if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
				core.InitInteger(&c, n)
			} else {
				sym, ierr := rt.Intern(tok)
				if ierr != nil {
					return nil, ierr
				}
				core.InitWord(&c, sym)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func runEval(ctx *cli.Context) error {
	rt, err := setupRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Shutdown()

	cells, err := tokensToCells(rt, ctx.Args().Slice())
	if err != nil {
		return err
	}
	block := rt.NewBlock(cells...)
	result, err := rt.DoBlock(block, nil)
	if err != nil {
		return err
	}
	fmt.Println(result.String())
	return nil
}

func runStats(ctx *cli.Context) error {
	rt, err := setupRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Shutdown()

	// A small workload so the counters have something to say.
	cells, err := tokensToCells(rt, []string{"x:", "1", "y:", "2", "x", "+", "y"})
	if err != nil {
		return err
	}
	block := rt.NewBlock(cells...)
	if _, err := rt.DoBlock(block, nil); err != nil {
		return err
	}
	rt.RequestGC()
	cells2, err := tokensToCells(rt, []string{"x", "+", "y"})
	if err != nil {
		return err
	}
	if _, err := rt.DoBlock(rt.NewBlock(cells2...), nil); err != nil {
		return err
	}

	s := rt.Stats()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Counter", "Value"})
	rows := [][]string{
		{"stubs allocated", fmt.Sprint(s.StubsAllocated)},
		{"stubs freed", fmt.Sprint(s.StubsFreed)},
		{"bytes allocated", fmt.Sprint(s.BytesAllocated)},
		{"recycles", fmt.Sprint(s.Recycles)},
		{"swept", fmt.Sprint(s.Swept)},
		{"ballast refills", fmt.Sprint(s.BallastRefills)},
		{"pool grows", fmt.Sprint(s.PoolGrows)},
		{"total ticks", fmt.Sprint(s.TotalTicks)},
		{"live stubs", fmt.Sprint(s.LiveStubs)},
	}
	for _, r := range rows {
		table.Append(r)
	}
	table.Render()
	return nil
}
