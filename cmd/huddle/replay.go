package main

import (
	"fmt"
	"os"

	"github.com/aretw0/huddle/internal/cli"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <events.jsonl>",
	Short: "Apply a recorded event log and print the resulting state",
	Long: `Feeds a JSON-lines event log, one event per line, through a fresh
controller and prints the final state along with any rejected events.
Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room, _ := cmd.Flags().GetString("room")

		in := os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open event log: %w", err)
			}
			defer f.Close()
			in = f
		}

		backend, err := openBackend(cmd)
		if err != nil {
			return err
		}
		defer backend.Close()

		res, err := cli.Replay(cmd.Context(), backend.Runtime, in, room)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("room", "", "Room to replay into (default: the first event's room)")
}
