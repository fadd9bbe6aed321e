package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dailypost/internal/accounts"
	"dailypost/internal/config"
	"dailypost/internal/dispatch"
	"dailypost/internal/schedule"
	"dailypost/internal/segment"
	"dailypost/internal/types"
)

func newAccountsCmd(a *app) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List connected social accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.RequireSecrets(map[string]config.SecretString{
				"POSTBRIDGE_API_KEY": a.cfg.PostBridge.APIKey,
			}); err != nil {
				return err
			}

			lister := accounts.NewLister(a.publisher, a.logger)
			list, err := lister.ListForPlatforms(cmd.Context(), accounts.ParsePlatforms(platform), "")
			if err != nil {
				return err
			}

			if a.output == outputText {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tPLATFORM\tUSERNAME")
				for _, acc := range list {
					username := "-"
					if acc.Username != nil {
						username = *acc.Username
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", acc.ID, acc.Platform, username)
				}
				return tw.Flush()
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"accounts": nonNil(list)})
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", `comma-separated platforms, or "all" (default twitter,x)`)
	return cmd
}

func newSegmentCmd(a *app) *cobra.Command {
	var (
		file     string
		noLLM    bool
		maxItems int
	)
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Split text into post-sized items without scheduling them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			posts, err := a.segmentInput(cmd.Context(), file, noLLM, maxItems)
			if err != nil {
				return err
			}

			if a.output == outputText {
				for i, p := range posts {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, p)
				}
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"tweets": posts})
		},
	}
	addSegmentFlags(cmd, &file, &noLLM, &maxItems)
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	var (
		file      string
		noLLM     bool
		maxItems  int
		accountID []string
		tz        string
		at        string
		startDate string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Split text into posts and schedule one per day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildScheduleRequest(accountID, tz, at, startDate)
			if err != nil {
				return err
			}
			if !dryRun {
				if err := config.RequireSecrets(map[string]config.SecretString{
					"POSTBRIDGE_API_KEY": a.cfg.PostBridge.APIKey,
				}); err != nil {
					return err
				}
			}

			posts, err := a.segmentInput(cmd.Context(), file, noLLM, maxItems)
			if err != nil {
				return err
			}
			req.Items = posts

			calculator := schedule.NewCalculator(a.clock, a.cfg.Schedule.DefaultTimezone, a.cfg.DefaultPostTime())
			svc := dispatch.NewPostingService(calculator, dispatch.NewDispatcher(a.publisher, a.logger), a.logger)

			if dryRun {
				planned, err := svc.Plan(cmd.Context(), req)
				if err != nil {
					return err
				}
				if a.output == outputText {
					for _, p := range planned {
						fmt.Fprintf(cmd.OutOrStdout(), "%d. %s  %s\n", p.Index+1, p.LocalTime, p.Text)
					}
					return nil
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"planned": planned})
			}

			results, err := svc.Schedule(cmd.Context(), req, "")
			if err != nil {
				var appErr *types.AppError
				if errors.As(err, &appErr) && appErr.Code == types.ErrCodeUpstreamDispatchFailed {
					_ = writeJSON(cmd.OutOrStdout(), map[string]any{"created": nonNil(results), "error": appErr.Details})
				}
				return err
			}

			if a.output == outputText {
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %s  id=%s  %s\n", r.Index+1, r.ScheduledAt, r.RemoteID, r.Text)
				}
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"created": results})
		},
	}
	addSegmentFlags(cmd, &file, &noLLM, &maxItems)
	cmd.Flags().StringSliceVar(&accountID, "account", nil, "target social account id (repeatable)")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA timezone (default DEFAULT_TIMEZONE)")
	cmd.Flags().StringVar(&at, "time", "", "daily post time HH:MM, 24h (default DEFAULT_POST_TIME)")
	cmd.Flags().StringVar(&startDate, "start-date", "", "first day YYYY-MM-DD (default today in --tz)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without creating posts")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), a.cfg.Build)
		},
	}
}

func addSegmentFlags(cmd *cobra.Command, file *string, noLLM *bool, maxItems *int) {
	cmd.Flags().StringVarP(file, "file", "f", "", "input text file (default stdin)")
	cmd.Flags().BoolVar(noLLM, "no-llm", false, "use the local heuristic splitter only")
	cmd.Flags().IntVar(maxItems, "max", 0, "maximum number of posts (0 means no limit)")
}

// segmentInput reads the input and splits it. The model is tried first;
// when it fails or returns nothing the heuristic splitter is used instead.
func (a *app) segmentInput(ctx context.Context, file string, noLLM bool, maxItems int) ([]string, error) {
	if maxItems < 0 {
		return nil, fmt.Errorf("--max must not be negative")
	}
	text, err := a.readInput(file)
	if err != nil {
		return nil, err
	}

	var seg segment.Segmenter = segment.HeuristicSegmenter{}
	if !noLLM {
		segCfg := a.settings.ApplyTo(a.cfg.Segmenter)
		model, err := segment.NewModelSegmenter(a.model, segment.Options{
			SystemPrompt: a.settings.SystemPrompt,
			UserPrompt:   a.settings.UserPrompt,
			Temperature:  segCfg.Temperature,
			MaxTokens:    segCfg.MaxTokens,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		seg = segment.WithFallback(tolerant{model, a.logger}, segment.HeuristicSegmenter{})
	}

	posts, err := seg.Segment(ctx, segment.Request{Text: text, MaxItems: maxItems})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, &exitError{code: exitNoPosts, msg: "no posts extracted from input"}
	}
	return posts, nil
}

// tolerant turns model failures into an empty result so the heuristic
// fallback runs.
type tolerant struct {
	seg    segment.Segmenter
	logger *slog.Logger
}

func (t tolerant) Segment(ctx context.Context, req segment.Request) ([]string, error) {
	posts, err := t.seg.Segment(ctx, req)
	if err != nil {
		t.logger.WarnContext(ctx, "model segmentation failed, using heuristic splitter", "error", err)
		return nil, nil
	}
	return posts, nil
}

func buildScheduleRequest(accountIDs []string, tz, at, startDate string) (types.ScheduleRequest, error) {
	req := types.ScheduleRequest{Timezone: strings.TrimSpace(tz)}
	for _, id := range accountIDs {
		if id = strings.TrimSpace(id); id != "" {
			req.AccountIDs = append(req.AccountIDs, id)
		}
	}
	if len(req.AccountIDs) == 0 {
		return req, fmt.Errorf("at least one --account is required")
	}
	if at != "" {
		t, err := types.ParseTimeOfDay(at)
		if err != nil {
			return req, types.NewAppError(types.ErrCodeValidationInvalidTimeOfDay, "--time must be HH:MM (24h)", err)
		}
		req.LocalTime = &t
	}
	if startDate != "" {
		d, err := types.ParseDate(startDate)
		if err != nil {
			return req, types.NewAppError(types.ErrCodeValidationInvalidDate, "--start-date must be YYYY-MM-DD", err)
		}
		req.StartDate = &d
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
