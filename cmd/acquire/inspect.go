package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bft-labs/acquire/pkg/frame"
)

func newInspectCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize the frame records of a raw storage file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := frame.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer r.Close()
			return inspect(cmd, r, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every frame header")
	return cmd
}

func inspect(cmd *cobra.Command, r *frame.Reader, verbose bool) error {
	out := cmd.OutOrStdout()
	var (
		n, gaps     uint64
		first, last uint64
		shape       frame.Shape
		sampleType  frame.SampleType
		mixed       bool
	)
	for {
		f, err := r.Next(cmd.Context())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
		if verbose {
			fmt.Fprintf(out, "frame %d: %dx%d %s, %d bytes, t=%dns\n",
				f.FrameID, f.Shape.Width, f.Shape.Height, f.Type, f.BytesOfFrame, f.TimestampNs)
		}
		if n == 0 {
			first, shape, sampleType = f.FrameID, f.Shape, f.Type
		} else {
			if f.FrameID > last+1 {
				gaps += f.FrameID - last - 1
			}
			if f.Shape != shape || f.Type != sampleType {
				mixed = true
			}
		}
		last = f.FrameID
		n++
	}

	if n == 0 {
		fmt.Fprintln(out, "no frames")
		return nil
	}
	fmt.Fprintf(out, "%d frames, ids %d..%d, %d gaps, %d bytes\n", n, first, last, gaps, r.Offset())
	if mixed {
		fmt.Fprintln(out, "shape: mixed")
	} else {
		fmt.Fprintf(out, "shape: %dx%d %s\n", shape.Width, shape.Height, sampleType)
	}
	return nil
}
