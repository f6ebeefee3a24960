// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dianesarkis1/memo-engine/internal/compose"
	"github.com/dianesarkis1/memo-engine/internal/store"
)

var memoCmd = &cobra.Command{
	Use:   "memo",
	Short: "Render a stored memo artifact to stdout",
	Long: `Memo renders a single stored memo artifact as Markdown: executive
summary, investment highlights and risks, and the key deal information
table with Missing fields shown as N/A.`,
	RunE: runMemo,
}

func init() {
	memoCmd.Flags().String("record", "", "record ID of the memo")
	memoCmd.Flags().String("backend", "", "backend identity that produced the memo")
	memoCmd.Flags().String("bench-dir", "bench", "base directory for benchmark state (contains index/)")

	rootCmd.AddCommand(memoCmd)
}

func runMemo(cmd *cobra.Command, args []string) error {
	recordID, _ := cmd.Flags().GetString("record")
	backendID, _ := cmd.Flags().GetString("backend")
	if recordID == "" || backendID == "" {
		return fmt.Errorf("provide both --record and --backend")
	}
	benchDir, _ := cmd.Flags().GetString("bench-dir")

	st, err := store.New(benchDir)
	if err != nil {
		return err
	}
	defer st.Close()

	artifact, err := st.Artifact(context.Background(), recordID, backendID)
	if err != nil {
		return err
	}

	rendered, err := compose.Render(artifact)
	if err != nil {
		return err
	}
	fmt.Print(rendered)
	return nil
}
