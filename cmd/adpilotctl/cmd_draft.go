package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"adpilot/pkg/progressclient"

	"github.com/spf13/cobra"
)

var (
	draftPayloadFile string
	draftVersion     int
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Read and edit campaign drafts",
}

var draftGetCmd = &cobra.Command{
	Use:   "get <draftId>",
	Short: "Print a draft with its version",
	Args:  cobra.ExactArgs(1),
	RunE:  runDraftGet,
}

var draftUpdateCmd = &cobra.Command{
	Use:   "update <draftId>",
	Short: "Replace a draft's payload",
	Long: `Replace a draft's payload. --version must be the version you last
read; if someone saved in between, the update is rejected and you must
re-read the draft.`,
	Args: cobra.ExactArgs(1),
	RunE: runDraftUpdate,
}

func init() {
	draftUpdateCmd.Flags().StringVarP(&draftPayloadFile, "file", "f", "", "payload JSON file (\"-\" for stdin)")
	draftUpdateCmd.Flags().IntVar(&draftVersion, "version", 0, "version the edit is based on")
	_ = draftUpdateCmd.MarkFlagRequired("file")
	_ = draftUpdateCmd.MarkFlagRequired("version")
}

func runDraftGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()
	draft, err := newClient().GetDraft(ctx, args[0])
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(draft)
}

func runDraftUpdate(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, draftPayloadFile)
	if err != nil {
		return err
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%s is not valid JSON", draftPayloadFile)
	}
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()
	draft, err := newClient().UpdateDraft(ctx, args[0], raw, draftVersion)
	if errors.Is(err, progressclient.ErrConflict) {
		return fmt.Errorf("draft %s changed since version %d; re-read it and retry: %w", args[0], draftVersion, err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "draft %s saved at version %d\n", draft.ID, draft.Version)
	return nil
}
