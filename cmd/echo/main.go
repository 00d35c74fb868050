// Package main provides the Echo CLI entry point: a boundary collaborator
// that drives begin/apply/commit against a config-seeded engine (spec.md
// §6). It is not part of the core tick engine — it exists to make the
// engine runnable and its artifacts inspectable from a shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"echo-engine/echo/pkg/artifact"
	"echo-engine/echo/pkg/config"
	"echo-engine/echo/pkg/engine"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/rule"
	"echo-engine/echo/pkg/warp"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "echo",
		Short: "Echo - deterministic, replayable graph-rewrite engine",
		Long: `Echo runs a fixed rule set to completion over a two-plane graph
state, one tick at a time, producing a canonical state_root, a patch
digest, and a receipt for every commit (spec.md).`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("echo v%s\n", version)
		},
	})

	tickCmd := &cobra.Command{
		Use:   "tick",
		Short: "Run a fixed number of begin/apply/commit ticks against a fresh engine",
		RunE:  runTick,
	}
	tickCmd.Flags().String("config", "", "path to an EngineConfig YAML file (optional; env vars and defaults apply otherwise)")
	tickCmd.Flags().Int("ticks", 3, "number of commit ticks to run")
	tickCmd.Flags().String("node-label", "demo-node", "label hashed into the scope node's id")
	rootCmd.AddCommand(tickCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTick(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	ticks, _ := cmd.Flags().GetInt("ticks")
	nodeLabel, _ := cmd.Flags().GetString("node-label")

	cfg := config.LoadFromEnv()
	if cfgPath != "" {
		loaded, err := config.LoadFromYAML(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	rootWarp := id.WarpId(id.MakeID("warp:", []byte(cfg.RootWarpLabel)))
	rootType := id.TypeId(id.MakeID("type:", []byte(cfg.RootTypeLabel)))

	reg := rule.NewRegistry()
	if err := registerTouchRule(reg); err != nil {
		return fmt.Errorf("echo: register rule: %w", err)
	}

	eng, rootNode := engine.New(reg, rootWarp, rootType, cfg.PolicyId)

	scopeNode := id.NodeId(id.MakeID("node:", []byte(nodeLabel)))
	scopeKey := warp.NodeKey{Warp: rootWarp, Node: scopeNode}
	if err := eng.InsertNode(scopeKey, warp.NodeRecord{Ty: rootType}, nil); err != nil {
		return fmt.Errorf("echo: seed node: %w", err)
	}
	// Connect the scope node to the root so its attachment stays within the
	// reachable set state_root hashes over (I4); otherwise every tick's
	// rewrite would be invisible to state_root.
	seedEdge := warp.EdgeRecord{
		Id:   id.EdgeId(id.MakeID("edge:", []byte(nodeLabel+"-from-root"))),
		From: rootNode,
		To:   scopeNode,
		Ty:   rootType,
	}
	if err := eng.InsertEdge(rootWarp, seedEdge); err != nil {
		return fmt.Errorf("echo: seed edge: %w", err)
	}

	root, err := eng.SnapshotAtRoot()
	if err != nil {
		return err
	}
	fmt.Printf("seed: root_node=%s state_root=%s\n", rootNode, root)

	for t := 0; t < ticks; t++ {
		txid := eng.Begin()
		result := eng.Apply(txid, "touch", scopeKey)
		if result != engine.Matched {
			return fmt.Errorf("echo: tick %d: apply returned %d", t, result)
		}

		snapshot, receipt, patch, err := eng.Commit(txid)
		if err != nil {
			return fmt.Errorf("echo: tick %d: commit: %w", t, err)
		}

		applied, rejected := 0, 0
		for _, d := range receipt.Decisions {
			if d.Decision == artifact.Applied {
				applied++
			} else {
				rejected++
			}
		}
		fmt.Printf("tick %d: commit_id=%s state_root=%s applied=%d rejected=%d ops=%d\n",
			t, snapshot.CommitId, snapshot.StateRoot, applied, rejected, len(patch.Ops))
	}

	return nil
}
