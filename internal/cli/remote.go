package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/sprjihoon/pdf01/internal/client"
	"github.com/sprjihoon/pdf01/internal/printer"
	"github.com/sprjihoon/pdf01/internal/scan"
)

var (
	remoteServer string
	remoteFolder string
	remotePoll   time.Duration
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Run lookups on a pdfmatch server",
	Long: `Run searches and indexing on a pdfmatch-server instance. Folders are
resolved on the server.

The server URL defaults to PDFMATCH_SERVER_URL or http://localhost:8080.`,
}

var remoteSearchCmd = &cobra.Command{
	Use:   "search <order-number>",
	Short: "Find the latest document for an order number on the server",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoteSearch,
}

var remoteIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a server folder and wait for the result",
	Args:  cobra.NoArgs,
	RunE:  runRemoteIndex,
}

var remoteJobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show the state of a server job",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoteJob,
}

func init() {
	remoteCmd.PersistentFlags().StringVar(&remoteServer, "server", "", "server URL")
	remoteCmd.PersistentFlags().StringVarP(&remoteFolder, "folder", "f", "", "server folder (default from server config)")
	remoteIndexCmd.Flags().DurationVar(&remotePoll, "poll", time.Second, "job poll interval")

	remoteCmd.AddCommand(remoteSearchCmd)
	remoteCmd.AddCommand(remoteIndexCmd)
	remoteCmd.AddCommand(remoteJobCmd)
}

func runRemoteSearch(cmd *cobra.Command, args []string) error {
	resp, err := client.New(remoteServer).Search(cmd.Context(), remoteFolder, args[0])
	if err != nil {
		return fmt.Errorf("remote search: %w", err)
	}

	out := cmd.OutOrStdout()
	printScanSummary(out, resp.Scanned, resp.Total, len(resp.Failures), resp.Cancelled)
	if resp.Result == nil {
		fmt.Fprintf(out, "No document contains %s\n", args[0])
		return nil
	}
	printSearchResult(out, resp.Result)
	return nil
}

func runRemoteIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(remoteServer)
	job, err := c.StartIndex(ctx, remoteFolder)
	if err != nil {
		return fmt.Errorf("start index: %w", err)
	}
	logger.Debug("index job started", "job_id", job.ID)

	id := job.ID
	err = runScanProgress(ctx, "Indexing on server", func(ctx context.Context, progress scan.ProgressFunc) error {
		polled, err := c.WaitJob(ctx, id, remotePoll, func(j *client.Job) {
			if progress != nil && j.Total > 0 {
				progress(scan.Event{Processed: j.Progress, Total: j.Total})
			}
		})
		if polled != nil {
			job = polled
		}
		return err
	})
	out := cmd.OutOrStdout()
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(out, "Stopped waiting; job %s keeps running on the server\n", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("wait for job %s: %w", id, err)
	}
	if job.Status == "failed" {
		return fmt.Errorf("index job %s failed: %s", id, job.Error)
	}

	var res client.IndexResult
	if err := json.Unmarshal(job.Result, &res); err != nil {
		return fmt.Errorf("decode index result: %w", err)
	}
	printScanSummary(out, res.Scanned, res.Total, len(res.Failures), false)
	for _, r := range res.Results {
		if len(r.All) < 2 {
			continue
		}
		fmt.Fprintf(out, "%s -> %s pages %s (%d documents, decided by %s)\n",
			r.Identifier, r.Best.Path, printer.PageRanges(r.Best.Pages), len(r.All), r.DecidedBy)
	}
	fmt.Fprintf(out, "%d order numbers\n", len(res.Results))
	return nil
}

func runRemoteJob(cmd *cobra.Command, args []string) error {
	job, err := client.New(remoteServer).GetJob(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s): %s %d/%d\n", job.ID, job.Type, job.Status, job.Progress, job.Total)
	if job.Error != "" {
		fmt.Fprintf(out, "error: %s\n", job.Error)
	}
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "took %s\n", job.CompletedAt.Sub(job.StartedAt).Round(time.Millisecond))
	}
	return nil
}
