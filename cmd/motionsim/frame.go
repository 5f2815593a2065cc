package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"motionlink-go/services/linkncp"
)

func newFrameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "frame TYPE [HEXPAYLOAD]",
		Short: "Encode a co-processor frame and hex-dump it",
		Example: `  motionsim frame indicate 01 1300 0001
  motionsim frame adv_start`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, ok := linkncp.ParseFrameType(args[0])
			if !ok {
				return fmt.Errorf("unknown frame type %q", args[0])
			}
			payload, err := hex.DecodeString(strings.Join(args[1:], ""))
			if err != nil {
				return fmt.Errorf("payload: %w", err)
			}
			frame, err := linkncp.AppendFrame(nil, ft, payload)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), hex.Dump(frame))
			return nil
		},
	}
}
