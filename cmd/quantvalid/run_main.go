package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run one candidate through the full validation pipeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "stop after the data audit, before consuming backtest resources")
	cmd.Flags().Bool("force", false, "re-run a candidate that is not currently pending")
	cmd.Flags().Bool("skip-verify", false, "skip C2's structural/keyword checks")
	cmd.Flags().Bool("force-llm", false, "skip the template path and always use the LLM code-gen fallback")
}

func readRunOptions(cmd *cobra.Command) runOptions {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	force, _ := cmd.Flags().GetBool("force")
	skipVerify, _ := cmd.Flags().GetBool("skip-verify")
	forceLLM, _ := cmd.Flags().GetBool("force-llm")
	return runOptions{DryRun: dryRun, Force: force, SkipVerify: skipVerify, ForceLLM: forceLLM}
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]
	opts := readRunOptions(cmd)

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}

	c, err := d.store.LoadCandidate(ctx, id)
	if err != nil {
		return err
	}
	if !opts.Force && c.Status != "" && c.Status != "pending" {
		return fmt.Errorf("candidate %s is already %s; pass --force to re-run", id, c.Status)
	}

	rec, err := d.runCandidate(ctx, c, opts)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s — %s\n", id, rec.Determination, rec.DeterminationReason)
	return nil
}
