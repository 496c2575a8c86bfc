package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/clipstore"
	"clipper/internal/preflight"
)

var stageOrder = []clipstore.Stage{
	clipstore.StageNew,
	clipstore.StageDownloaded,
	clipstore.StageTrimmed,
	clipstore.StageNormalized,
	clipstore.StageUploaded,
	clipstore.StagePublished,
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, clip counts, tools, and preflight checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			report.section("Clipper")
			report.add("Config", statusInfo, describeConfigSource(ctx))
			report.add("Storage", statusInfo, cfg.Storage.Backend)
			if cfg.CatalogConfigured() {
				report.add("Catalog", statusInfo, cfg.Catalog.Endpoint)
			} else {
				report.add("Catalog", statusWarn, "not configured; clips stop at upload")
			}
			if topic := cfg.Notifications.NtfyTopic; topic != "" {
				report.add("Notifications", statusInfo, topic)
			} else {
				report.add("Notifications", statusInfo, "disabled")
			}

			report.section("Clips")
			if store, err := ctx.readRecords(); err != nil {
				report.add("Snapshot", statusError, err.Error())
			} else {
				report.add("Snapshot", statusOK, fmt.Sprintf("%d clips in %s", store.Count(), cfg.Paths.SnapshotPath))
				counts := map[clipstore.Stage]int{}
				for _, rec := range store.List() {
					counts[rec.Stage()]++
				}
				for _, stage := range stageOrder {
					if counts[stage] > 0 {
						name := string(stage)
						report.add(strings.ToUpper(name[:1])+name[1:], statusInfo, fmt.Sprint(counts[stage]))
					}
				}
			}

			report.section("Tools")
			for _, s := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				switch {
				case s.Available:
					report.add(s.Name, statusOK, dash(s.Version))
				case s.Optional:
					report.add(s.Name, statusWarn, s.Detail)
				default:
					report.add(s.Name, statusError, s.Detail)
				}
			}

			report.section("Preflight")
			for _, r := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				report.add(r.Name, kind, r.Detail)
			}

			fmt.Fprintln(out, report.String())
			if strict && report.errors > 0 {
				return fmt.Errorf("%d status checks failed", report.errors)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any check fails")
	return cmd
}
