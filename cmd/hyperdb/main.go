// Package main provides the HyperDB CLI entry point: a one-shot
// journal/ontology toolchain, not an interactive shell.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/orneryd/hyperdb/pkg/config"
	"github.com/orneryd/hyperdb/pkg/journal"
	"github.com/orneryd/hyperdb/pkg/registry"
	"github.com/orneryd/hyperdb/pkg/txn"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hyperdb",
		Short: "HyperDB - transactional hypergraph database engine",
		Long: `HyperDB is a transactional, schema-driven hypergraph database
engine: nodes and hyperedges (edges whose targets are ordered lists of
nodes and/or other edges) under a compiled ontology of types, edge
types, constraints, and rules, backed by a write-ahead journal.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("HyperDB v%s (%s)\n", version, commit)
		},
	})

	replayCmd := &cobra.Command{
		Use:   "replay <ontology.yaml>",
		Short: "Recover the store from the journal and report what was replayed",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
	replayCmd.Flags().String("config", "", "TOML config file")
	rootCmd.AddCommand(replayCmd)

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "List journal entries in LSN order",
		RunE:  runLog,
	}
	logCmd.Flags().String("config", "", "TOML config file")
	logCmd.Flags().Uint64("from", 0, "Start LSN")
	rootCmd.AddCommand(logCmd)

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFile(path)
	}
	return config.LoadFromEnv(), nil
}

func loadRegistry(path string) (*registry.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	builder := registry.NewBuilder()
	if err := builder.FromYAML(data); err != nil {
		return nil, err
	}
	return builder.Build()
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(args[0])
	if err != nil {
		return err
	}

	engine, err := txn.Open(cfg, reg)
	if err != nil {
		return err
	}
	defer engine.Close()

	bold := color.New(color.Bold)
	bold.Println("Recovery complete")
	color.Green("  replayed:  %d", engine.Recovery.Replayed)
	color.Yellow("  discarded: %d", engine.Recovery.Discarded)
	fmt.Printf("  nodes: %d  edges: %d\n", engine.Store.NodeCount(), engine.Store.EdgeCount())
	return nil
}

func runLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	from, _ := cmd.Flags().GetUint64("from")

	var wal journal.Journal
	switch cfg.Journal.Backend {
	case "badger":
		wal, err = journal.OpenBadger(cfg.Journal.Dir)
	default:
		wal, err = journal.OpenFile(cfg.Journal.Dir)
	}
	if err != nil {
		return err
	}
	defer wal.Close()

	kindColor := map[journal.Kind]*color.Color{
		journal.KindBegin:  color.New(color.FgCyan),
		journal.KindCommit: color.New(color.FgGreen),
		journal.KindAbort:  color.New(color.FgRed),
	}
	return wal.IterateFrom(from, func(e journal.Entry) error {
		c, ok := kindColor[e.Kind]
		if !ok {
			c = color.New(color.FgWhite)
		}
		c.Printf("%8d  %-12s txn=%d", e.LSN, e.Kind, e.TxnID())
		switch e.Kind {
		case journal.KindSpawnNode, journal.KindKillNode:
			fmt.Printf("  %s", e.Node)
		case journal.KindLinkEdge, journal.KindUnlinkEdge:
			fmt.Printf("  %s", e.Edge)
		case journal.KindSetAttr:
			fmt.Printf("  %s.%s", e.Entity, e.Attr)
		}
		fmt.Println()
		return nil
	})
}
