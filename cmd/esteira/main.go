// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Esteira operator CLI
//
// Runs capture and pipeline batches on demand, toggles the pause flag,
// shows progress and records operator decisions on processing records.
//
// Usage:
//
//	esteira capture
//	esteira pipeline [--limit 50] [--date 2024-05-02]
//	esteira pause | resume | status | progress
//	esteira revalidate <message-id>
//	esteira protocolar <record-id> --user <u> --receipt recibo.pdf [--note ...]
//	esteira reportar <record-id> --user <u> --reason <text> [--note ...]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gofjud/esteira/internal/app"
	"github.com/gofjud/esteira/internal/config"
	"github.com/gofjud/esteira/internal/control"
	"github.com/gofjud/esteira/internal/pipeline"
)

func main() {
	app.SetupLogging(os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "esteira: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "esteira",
		Short:        "Judicial reply ingestion operator CLI",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newCaptureCmd(),
		newPipelineCmd(),
		newPauseCmd(),
		newResumeCmd(),
		newStatusCmd(),
		newProgressCmd(),
		newRevalidateCmd(),
		newProtocolarCmd(),
		newReportarCmd(),
	)
	return cmd
}

// withApp loads configuration, connects everything and runs fn.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// withControl connects only to Redis, for the control-state commands.
func withControl(ctx context.Context, fn func(*control.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()
	return fn(control.NewStore(rdb, cfg.RedisKeyPrefix))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCaptureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Drain the mailbox once into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Capture.Run(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func newPipelineCmd() *cobra.Command {
	var (
		limit int
		date  string
	)
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Process one batch of captured messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate(date)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				if limit <= 0 {
					limit = a.Config.Pipeline.BatchLimit
				}
				res, err := a.Pipeline.Run(cmd.Context(), pipeline.Options{Limit: limit, Date: day})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum messages in the batch (default from config)")
	cmd.Flags().StringVar(&date, "date", "", "Only messages received on this day (YYYY-MM-DD)")
	return cmd
}

// parseDate accepts an empty string (no filter) or YYYY-MM-DD.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", s)
	}
	return &d, nil
}

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the pipeline before its next batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withControl(cmd.Context(), func(c *control.Store) error {
				if err := c.Pause(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pipeline pausado")
				return nil
			})
		},
	}
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Clear the pause flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withControl(cmd.Context(), func(c *control.Store) error {
				if err := c.Resume(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pipeline retomado")
				return nil
			})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the pipeline is paused",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withControl(cmd.Context(), func(c *control.Store) error {
				paused, err := c.IsPaused(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]bool{"pausado": paused})
			})
		},
	}
}

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show the last progress snapshot of capture and pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withControl(cmd.Context(), func(c *control.Store) error {
				out := make(map[string]any, 2)
				for _, job := range []string{control.JobCapture, control.JobPipeline} {
					p, err := c.Progress(cmd.Context(), job)
					if err != nil {
						return err
					}
					out[job] = p
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newRevalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revalidate <message-id>",
		Short: "Reprocess one message and append a new validation attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				rec, err := a.Pipeline.Revalidate(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newProtocolarCmd() *cobra.Command {
	var user, receipt, note string
	cmd := &cobra.Command{
		Use:   "protocolar <record-id>",
		Short: "Record that the reply was filed, with the filing receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(receipt)
			if err != nil {
				return fmt.Errorf("read receipt: %w", err)
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				action, err := a.Store.FileProtocol(cmd.Context(), id, user, filepath.Base(receipt), data, note)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), action)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Operator identity (required)")
	cmd.Flags().StringVar(&receipt, "receipt", "", "Path to the filing receipt (required)")
	cmd.Flags().StringVar(&note, "note", "", "Free-text note")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("receipt")
	return cmd
}

func newReportarCmd() *cobra.Command {
	var user, reason, note string
	cmd := &cobra.Command{
		Use:   "reportar <record-id>",
		Short: "Report a divergence on a processing record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecordID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				action, err := a.Store.ReportDivergence(cmd.Context(), id, user, reason, note)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), action)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Operator identity (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Divergence description (required)")
	cmd.Flags().StringVar(&note, "note", "", "Free-text note")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("reason")
	return cmd
}

func parseRecordID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", s)
	}
	return id, nil
}
