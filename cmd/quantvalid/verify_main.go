package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Run C2's structural/keyword checks against a candidate, without backtesting",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}

	c, err := d.store.LoadCandidate(ctx, id)
	if err != nil {
		return err
	}

	v := d.verifier.Verify(c)
	fmt.Printf("%s: %s (%d passed, %d warnings, %d failed)\n", id, v.OverallStatus, v.Passed(), v.Warnings(), v.Failed())
	for _, t := range v.Tests {
		fmt.Printf("  [%s] %s: %s\n", t.Status, t.Name, t.Message)
	}
	return nil
}
