package main

import (
	"fmt"

	"github.com/opd-ai/espudp/framing"
	"github.com/opd-ai/espudp/limits"
	"github.com/spf13/cobra"
)

func newFrameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frame <hex-payload>",
		Short: "Append the checksum to a payload and print the frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parseHex(args[0])
			if err != nil {
				return err
			}
			if err := limits.ValidatePayload(payload); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), framing.Hex(framing.Encode(payload)))
			return nil
		},
	}
}

func newUnframeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unframe <hex-frame>",
		Short: "Verify a frame's checksum and print its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := parseHex(args[0])
			if err != nil {
				return err
			}
			payload, err := framing.Decode(frame)
			if err != nil {
				return fmt.Errorf("frame rejected: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), framing.Hex(payload))
			return nil
		},
	}
}
