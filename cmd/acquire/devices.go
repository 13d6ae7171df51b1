package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bft-labs/acquire/pkg/acquire"
	"github.com/bft-labs/acquire/pkg/device"
)

func newDevicesCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the devices a selector can match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			rt, err := acquire.Init()
			if err != nil {
				return err
			}
			defer rt.Shutdown()
			return listDevices(cmd.OutOrStdout(), rt.DeviceManager(), k)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list camera or storage devices")
	return cmd
}

func parseKind(s string) (device.Kind, error) {
	switch s {
	case "":
		return device.KindNone, nil
	case "camera":
		return device.KindCamera, nil
	case "storage":
		return device.KindStorage, nil
	default:
		return device.KindNone, fmt.Errorf("unknown device kind %q", s)
	}
}

func listDevices(out io.Writer, dm *device.Manager, kind device.Kind) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tINDEX\tNAME")
	for _, id := range dm.List(kind) {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", id.Kind, id.Index, id.Name)
	}
	return tw.Flush()
}
