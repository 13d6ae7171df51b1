package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/acquire/internal/cliconfig"
	"github.com/bft-labs/acquire/pkg/log"
)

const helpDescription = `
Capture frames from a camera into a storage device through a bounded ring
buffer, consuming them the way an acquisition client does.

Highlights:
  - Simulated cameras (empty, random, radial sin) and storage (trash, raw, tiff).
  - Block or drop on overflow; every dropped frame leaves a gap in frame ids.
  - Configure via flags, ACQUIRE_* environment variables, a config file, or
    a properties file that can be watched and reapplied while idle.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  acquire --camera "radial sin" --storage raw --filename out.bin --frames 50
  acquire --properties streams.toml --watch
  acquire devices
  acquire inspect out.bin
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		log.NewZerologAdapter().Error("acquire", log.Err(err))
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "acquire",
		Short:         "Stream frames from a camera to storage",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Precedence: flags, then ACQUIRE_* environment, then the config file.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := log.NewZerologAdapterWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.Debug("configuration", log.Any("config", cfg))

			return run(cmd.Context(), cfg, logger, cmd.OutOrStdout())
		},
	}
	root.SetOut(out)

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.acquire/config.toml)")
	root.Flags().StringVar(&cfg.PropertiesPath, "properties", cfg.PropertiesPath, "TOML properties file describing the streams (overrides device flags)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reapply the properties file when it changes while idle")

	root.Flags().StringVar(&cfg.Camera, "camera", cfg.Camera, "camera selector (regular expression over device names)")
	root.Flags().StringVar(&cfg.Storage, "storage", cfg.Storage, "storage selector (regular expression over device names)")
	root.Flags().StringVar(&cfg.Filename, "filename", cfg.Filename, "storage output path")
	root.Flags().StringVar(&cfg.Metadata, "metadata", cfg.Metadata, "external metadata JSON passed to storage")

	root.Flags().IntVar(&cfg.Width, "width", cfg.Width, "frame width in pixels")
	root.Flags().IntVar(&cfg.Height, "height", cfg.Height, "frame height in pixels")
	root.Flags().StringVar(&cfg.PixelType, "pixel-type", cfg.PixelType, "sample type (u8, u16, i8, i16, f32, u10, u12, u14)")
	root.Flags().IntVar(&cfg.Binning, "binning", cfg.Binning, "sensor binning factor")
	root.Flags().Float64Var(&cfg.ExposureUs, "exposure-us", cfg.ExposureUs, "exposure time in microseconds")

	root.Flags().IntVar(&cfg.FirstFrameID, "first-frame-id", cfg.FirstFrameID, "frame id of the first stored frame")
	root.Flags().IntVar(&cfg.Frames, "frames", cfg.Frames, "frames to acquire (0 runs until the time limit)")
	root.Flags().DurationVar(&cfg.TimeLimit, "time-limit", cfg.TimeLimit, "maximum run time")
	root.Flags().DurationVar(&cfg.Throttle, "throttle", cfg.Throttle, "minimum period between reads")

	root.Flags().IntVar(&cfg.BufferBytes, "buffer-bytes", cfg.BufferBytes, "ring buffer capacity (0 holds four frames)")
	root.Flags().StringVar(&cfg.Overflow, "overflow", cfg.Overflow, "overflow policy: block or drop")
	root.Flags().DurationVar(&cfg.BlockTimeout, "block-timeout", cfg.BlockTimeout, "longest wait for buffer space under block (0 waits)")
	root.Flags().BoolVar(&cfg.AutoDrain, "auto-drain", cfg.AutoDrain, "let the runtime forward frames to storage without reading them")
	root.Flags().BoolVar(&cfg.Graceful, "graceful", cfg.Graceful, "finish with stop, flushing buffered frames, instead of abort")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newDevicesCommand(), newInspectCommand())
	return root
}
