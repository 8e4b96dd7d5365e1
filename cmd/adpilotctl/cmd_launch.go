package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	launchhttp "adpilot/contexts/campaign-builder/launch-service/transport/http"
	"adpilot/pkg/progressclient"

	"github.com/spf13/cobra"
)

var (
	submitFile     string
	submitDraftID  string
	submitIdemKey  string
	submitAndWatch bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a campaign launch",
	Long: `Submit a launch from a specification file (--file, "-" for stdin) or
from a pending draft (--draft). Exactly one is required.`,
	RunE: runSubmit,
}

var statusCmd = &cobra.Command{
	Use:   "status <jobId>",
	Short: "Show a launch job and its events",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var watchCmd = &cobra.Command{
	Use:   "watch <jobId>",
	Short: "Follow a launch job until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <jobId>",
	Short: "Request cancellation of a launch job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func init() {
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "campaign specification JSON file")
	submitCmd.Flags().StringVar(&submitDraftID, "draft", "", "launch a pending draft by id")
	submitCmd.Flags().StringVar(&submitIdemKey, "idempotency-key", "", "replay key for safe retries")
	submitCmd.Flags().BoolVarP(&submitAndWatch, "watch", "w", false, "follow the job after submitting")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	if (submitFile == "") == (submitDraftID == "") {
		return errors.New("exactly one of --file or --draft is required")
	}
	req := launchhttp.SubmitLaunchRequest{DraftID: strings.TrimSpace(submitDraftID)}
	if submitFile != "" {
		raw, err := readInput(cmd, submitFile)
		if err != nil {
			return err
		}
		if !json.Valid(raw) {
			return fmt.Errorf("%s is not valid JSON", submitFile)
		}
		req.Specification = raw
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	resp, err := newClient().SubmitLaunch(ctx, submitIdemKey, req)
	cancel()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if resp.Replayed {
		fmt.Fprintf(out, "job %s (replayed)\n", resp.JobID)
	} else {
		fmt.Fprintf(out, "job %s queued\n", resp.JobID)
	}
	for _, node := range resp.Nodes {
		fmt.Fprintf(out, "  %-9s %s\n", node.Type, node.Label)
	}
	if !submitAndWatch {
		return nil
	}
	return watchJob(cmd, resp.JobID)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()
	client := newClient()
	job, err := client.GetJob(ctx, args[0])
	if err != nil {
		return err
	}
	events, err := client.ListEvents(ctx, args[0], 0)
	if err != nil {
		return err
	}
	timeline := progressclient.NewTimeline()
	timeline.Mount(job, events)
	renderTimeline(cmd.OutOrStdout(), timeline)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	return watchJob(cmd, args[0])
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()
	job, err := newClient().CancelJob(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "job %s %s (cancel requested)\n", job.ID, job.Status)
	return nil
}

func watchJob(cmd *cobra.Command, jobID string) error {
	out := cmd.OutOrStdout()
	printed := 0
	watcher := progressclient.Watcher{
		Client: newClient(),
		OnChange: func(timeline *progressclient.Timeline) {
			events := timeline.Events()
			for ; printed < len(events); printed++ {
				fmt.Fprintln(out, formatEvent(events[printed]))
			}
		},
	}
	timeline, err := watcher.Watch(commandContext(cmd), jobID)
	if err != nil {
		return err
	}
	job := timeline.Job()
	fmt.Fprintln(out, formatJob(job))
	if job.Status == "error" {
		return fmt.Errorf("launch %s failed", job.ID)
	}
	return nil
}

func renderTimeline(out io.Writer, timeline *progressclient.Timeline) {
	fmt.Fprintln(out, formatJob(timeline.Job()))
	for _, event := range timeline.Events() {
		fmt.Fprintln(out, formatEvent(event))
	}
}

func formatJob(job launchhttp.JobDTO) string {
	line := fmt.Sprintf("job %s %s %d%%", job.ID, job.Status, job.Percent)
	if job.Step != nil {
		line += " step=" + *job.Step
	}
	if job.Error != nil {
		line += " error=" + *job.Error
	}
	return line
}

func formatEvent(event launchhttp.ProgressEventDTO) string {
	line := fmt.Sprintf("  %s %-24s %-7s", event.CreatedAt.Format("15:04:05.000"), event.Step, event.Status)
	if event.Percent != nil {
		line += fmt.Sprintf(" %3d%%", *event.Percent)
	}
	if event.Message != nil && *event.Message != "" {
		line += "  " + *event.Message
	}
	return line
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
