package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/extremevalue/quantvalid/internal/telemetry"
)

func newRunAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-all",
		Short: "Run every pending candidate through the full validation pipeline",
		Args:  cobra.NoArgs,
		RunE:  runRunAll,
	}
	addRunFlags(cmd)
	cmd.Flags().Bool("serve", false, "expose /metrics, /healthz, and /stream while the batch runs")
	cmd.Flags().String("addr", "127.0.0.1:9090", "address for --serve's HTTP server")
	return cmd
}

func runRunAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	opts := readRunOptions(cmd)
	serve, _ := cmd.Flags().GetBool("serve")
	addr, _ := cmd.Flags().GetString("addr")

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}

	if serve {
		reg := prometheus.NewRegistry()
		d.metrics = telemetry.NewRegistry(reg)
		d.stream = telemetry.NewStream()
		cfg := telemetry.DefaultServerConfig()
		cfg.Addr = addr
		srv := telemetry.NewServer(cfg, reg, d.stream)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				log.Error().Err(err).Msg("telemetry server stopped")
			}
		}()
	}

	candidates, err := d.store.ListPending(ctx)
	if err != nil {
		return err
	}

	var validated, invalidated, blocked, retried, failures int
	for _, c := range candidates {
		rec, err := d.runCandidate(ctx, c, opts)
		if err != nil {
			failures++
			fmt.Printf("%s: error — %v\n", c.ID, err)
			continue
		}
		switch rec.Determination {
		case "VALIDATED":
			validated++
		case "INVALIDATED", "CONDITIONAL":
			invalidated++
		case "BLOCKED", "FAILED":
			blocked++
		case "RETRY_LATER":
			retried++
		}
		fmt.Printf("%s: %s — %s\n", c.ID, rec.Determination, rec.DeterminationReason)
	}

	fmt.Printf("\n%d candidates: %d validated, %d invalidated, %d blocked, %d retry-later, %d errors\n",
		len(candidates), validated, invalidated, blocked, retried, failures)
	if failures > 0 {
		return fmt.Errorf("%d candidate(s) hit an unrecoverable error", failures)
	}
	return nil
}
