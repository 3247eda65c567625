package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"overburnt.game/internal/configstore"
	persistlog "overburnt.game/internal/persistence/log"
	"overburnt.game/internal/sim/runtime"
	"overburnt.game/internal/sim/session"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	var (
		configDir string
		toTick    uint64
	)
	cmd := &cobra.Command{
		Use:   "overburnt-replay <session-dir>",
		Short: "Re-run a recorded session and verify its tick digests",
		Long: `Replays the tick log of one session (data/sessions/<id>) against the game data
in --config-dir and checks every tick digest.

Examples:
  overburnt-replay ./data/sessions/2f1c0a9e-... --config-dir ./configs
  overburnt-replay ./data/sessions/2f1c0a9e-... --to-tick 1200`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := replay(args[0], configDir, toTick)
			for _, w := range res.Warnings {
				fmt.Fprintln(stdout, "warning:", w)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "replay ok: session=%s seed=%d checked=%d ticks\n", res.Header.SessionID, res.Header.Seed, res.Checked)
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "./configs", "game data directory")
	cmd.Flags().Uint64Var(&toTick, "to-tick", 0, "stop after this tick (0 = end of log)")
	return cmd
}

type result struct {
	Header   runtime.Header
	Checked  uint64
	Warnings []string
}

var errStop = errors.New("stop")

func replay(sessionDir, configDir string, toTick uint64) (result, error) {
	var res result

	files, err := persistlog.ListTickFiles(sessionDir)
	if err != nil {
		return res, fmt.Errorf("list tick files: %w", err)
	}
	if len(files) == 0 {
		return res, fmt.Errorf("no tick files in %s", sessionDir)
	}

	b, err := configstore.Load(configDir)
	if err != nil {
		return res, fmt.Errorf("load game data: %w", err)
	}

	var rt *runtime.Runtime
	for _, path := range files {
		err := persistlog.ReadTicks(path, func(entry runtime.TickLogEntry) error {
			if rt == nil {
				if entry.Header == nil {
					return fmt.Errorf("tick %d: log does not start with a header", entry.Tick)
				}
				res.Header = *entry.Header
				if entry.Header.ItemsDigest != "" && entry.Header.ItemsDigest != b.Catalogs.Items.DefsDigest {
					res.Warnings = append(res.Warnings, "items.json differs from the recorded session")
				}
				if entry.Header.LevelDigest != "" && entry.Header.LevelDigest != b.Levels.Digest {
					res.Warnings = append(res.Warnings, "levels.yaml differs from the recorded session")
				}
				c, err := session.New(session.Config{
					Catalogs:   b.Catalogs,
					Tuning:     b.Tuning,
					Layout:     b.Layout,
					Levels:     b.Levels,
					Seed:       entry.Header.Seed,
					StartLevel: entry.Header.StartLevel,
				})
				if err != nil {
					return err
				}
				rt = runtime.New(c, runtime.Config{
					ID:         entry.Header.SessionID,
					TickRateHz: entry.Header.TickRateHz,
					Seed:       entry.Header.Seed,
					StartLevel: entry.Header.StartLevel,
				})
			}
			if toTick != 0 && entry.Tick > toTick {
				return errStop
			}
			if entry.Tick != rt.Tick() {
				return fmt.Errorf("tick mismatch: want=%d got=%d", rt.Tick(), entry.Tick)
			}
			tick, digest := rt.StepOnce(entry.Inputs)
			res.Checked++
			if digest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
			}
			return nil
		})
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
