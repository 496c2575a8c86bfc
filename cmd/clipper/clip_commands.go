package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipper/internal/api"
	"clipper/internal/logging"
)

func newClipCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Inspect clips and run individual stages",
	}
	cmd.AddCommand(
		newClipNewCommand(ctx),
		newClipShowCommand(ctx),
		newClipListCommand(ctx),
		newClipEditCommand(ctx),
		newClipDownloadCommand(ctx),
		newClipStageCommand(ctx, "trim", "Cut start..end out of the raw download", func(s *session, cmd *cobra.Command, id string) error {
			return s.ctrl.Trim(cmd.Context(), id)
		}),
		newClipStageCommand(ctx, "normalize", "Loudness-normalize the trimmed clip", func(s *session, cmd *cobra.Command, id string) error {
			return s.ctrl.Normalize(cmd.Context(), id)
		}),
		newClipUploadCommand(ctx),
		newClipGenerateCommand(ctx),
		newClipPublishCommand(ctx),
		newClipUpdateCommand(ctx),
		newClipUnpublishCommand(ctx),
	)
	return cmd
}

func newClipNewCommand(ctx *commandContext) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "new <url>",
		Short: "Create a clip record without running any stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionOptions{}, func(s *session) error {
				id, err := s.ctrl.NewClip(cmd.Context(), args[0], start, end)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start timestamp H:MM:SS[.mmm] (default 0:00:00)")
	cmd.Flags().StringVar(&end, "end", "", "End timestamp H:MM:SS[.mmm] (default end of media)")
	return cmd
}

func newClipShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"info"},
		Short:   "Print a clip record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.readRecords()
			if err != nil {
				return err
			}
			rec, err := store.Find(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, api.FromRecord(rec))
		},
	}
}

func newClipListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var stage string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clip records, most recently edited first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.readRecords()
			if err != nil {
				return err
			}
			items := api.FromRecords(store.List())
			if stage = strings.TrimSpace(stage); stage != "" {
				filtered := items[:0]
				for _, item := range items {
					if item.Stage == stage {
						filtered = append(filtered, item)
					}
				}
				items = filtered
			}
			if asJSON {
				return writeJSON(cmd, api.ClipListResponse{Items: items})
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No clips")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{item.ID, item.Stage, item.Start, dash(item.End), item.Source, dash(item.EditedAt)})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Stage", "Start", "End", "Source", "Edited"}, rows, nil, 60))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().StringVar(&stage, "stage", "", "Only show clips at this stage")
	return cmd
}

func newClipEditCommand(ctx *commandContext) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a clip's start/end markers (re-run trim afterwards)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionOptions{}, func(s *session) error {
				current, err := s.ctrl.Info(args[0])
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("start") {
					start = current.Start
				}
				if !cmd.Flags().Changed("end") {
					end = current.End
				}
				rec, err := s.ctrl.Edit(cmd.Context(), args[0], start, end)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s - %s\n", rec.ID, rec.Start, dash(rec.End))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "New start timestamp")
	cmd.Flags().StringVar(&end, "end", "", "New end timestamp (empty for end of media)")
	return cmd
}

func newClipDownloadCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the source audio (reused across clips of the same source)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionOptions{}, func(s *session) error {
				if err := s.ctrl.Download(cmd.Context(), args[0], force); err != nil {
					return err
				}
				return printStage(cmd, s, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Download again even if a raw file exists")
	return cmd
}

func newClipStageCommand(ctx *commandContext, use, short string, run func(*session, *cobra.Command, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionOptions{}, func(s *session) error {
				if err := run(s, cmd, args[0]); err != nil {
					return err
				}
				return printStage(cmd, s, args[0])
			})
		},
	}
}

func newClipUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <id>",
		Short: "Upload the normalized clip to object storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionOptions{uploader: true}, func(s *session) error {
				if err := s.ctrl.Upload(cmd.Context(), args[0]); err != nil {
					return err
				}
				rec, err := s.ctrl.Info(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.FileURL)
				return nil
			})
		},
	}
}

func newClipGenerateCommand(ctx *commandContext) *cobra.Command {
	var start, end string
	var noUpload bool
	cmd := &cobra.Command{
		Use:   "generate <url>",
		Short: "Create a clip and run download, trim, normalize, and upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionOptions{uploader: !noUpload}, func(s *session) error {
				id, err := s.ctrl.Generate(cmd.Context(), args[0], start, end, !noUpload)
				if err != nil {
					if id != "" {
						logging.ErrorWithContext(s.logger, "generate stopped", "generate_failed",
							logging.String(logging.FieldClipID, id),
							logging.String(logging.FieldErrorHint, "fix the cause and re-run the failed stage with `clipper clip <stage> "+id+"`"),
							logging.Error(err))
						return fmt.Errorf("clip %s: %w", id, err)
					}
					return err
				}
				return printStage(cmd, s, id)
			})
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "Start timestamp H:MM:SS[.mmm]")
	cmd.Flags().StringVar(&end, "end", "", "End timestamp H:MM:SS[.mmm]")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "Stop after normalization")
	return cmd
}

func newClipPublishCommand(ctx *commandContext) *cobra.Command {
	var category string
	var nameFlags []string
	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish an uploaded clip to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := parseNames(nameFlags)
			if err != nil {
				return err
			}
			return ctx.withSession(cmd, sessionOptions{catalog: true}, func(s *session) error {
				if err := s.ctrl.Publish(cmd.Context(), args[0], category, names); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %s\n", args[0], category)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Catalog category tag")
	cmd.Flags().StringArrayVar(&nameFlags, "name", nil, "Display name as loc=Name (repeatable)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newClipUpdateCommand(ctx *commandContext) *cobra.Command {
	var category string
	var nameFlags []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the category or names of a published clip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := parseNames(nameFlags)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				names = nil
			}
			return ctx.withSession(cmd, sessionOptions{catalog: true}, func(s *session) error {
				if err := s.ctrl.UpdatePublished(cmd.Context(), args[0], category, names); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "New category tag")
	cmd.Flags().StringArrayVar(&nameFlags, "name", nil, "Replacement display name as loc=Name (repeatable)")
	return cmd
}

func newClipUnpublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unpublish <id>",
		Short: "Remove a clip from the catalog (the local record is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, sessionOptions{catalog: true}, func(s *session) error {
				removed, err := s.ctrl.Unpublish(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "%s was not in the catalog\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the catalog\n", args[0])
				return nil
			})
		},
	}
}

func printStage(cmd *cobra.Command, s *session, id string) error {
	rec, err := s.ctrl.Info(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rec.ID, rec.Stage())
	return nil
}
