package main

import (
	"flag"

	"github.com/spf13/cobra"

	"motionlink-go/services/config"
	"motionlink-go/types"
)

type rootOptions struct {
	Device     string
	ConfigFile string
}

// load resolves the built-in config for the device and overlays the
// config file, if any.
func (o *rootOptions) load() (types.MotionConfig, error) {
	cfg, err := config.Lookup(o.Device)
	if err != nil {
		return cfg, err
	}
	if o.ConfigFile != "" {
		return config.LoadFile(o.ConfigFile, cfg)
	}
	return cfg, cfg.Validate()
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "motionsim",
		Short:        "Host simulator for the motion notification loop",
		SilenceUsage: true,
	}

	// glog registers -v, -logtostderr and friends on the standard flag set.
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	if f := flag.Lookup("logtostderr"); f != nil {
		_ = f.Value.Set("true")
	}
	cmd.PersistentFlags().StringVar(&opts.Device, "device", "sim", "built-in config to start from")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML file overlaid on the built-in config")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newShellCommand(opts))
	cmd.AddCommand(newFrameCommand())
	return cmd
}
