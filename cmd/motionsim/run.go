package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"motionlink-go/types"
	"motionlink-go/x/logx"
)

type runOptions struct {
	Every    time.Duration
	Bits     string
	Duration time.Duration
	AckDelay time.Duration
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the loop with a scripted sensor",
		Long: `Run boots a simulated node and raises the sensor interrupt on a fixed
cadence. With the loopback link a peer connects at start and subscribes
every channel, so indications flow without outside help.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			bits, err := strconv.ParseUint(opts.Bits, 0, 8)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			if opts.Duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Duration)
				defer cancel()
			}
			return runScripted(ctx, cfg, opts, byte(bits))
		},
	}

	cmd.Flags().DurationVar(&opts.Every, "every", 2*time.Second, "interval between sensor interrupts")
	cmd.Flags().StringVar(&opts.Bits, "bits", "0x10", "INT_SOURCE bits latched on each interrupt")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().DurationVar(&opts.AckDelay, "ack-delay", 50*time.Millisecond, "loopback acknowledgment delay")
	return cmd
}

func runScripted(ctx context.Context, cfg types.MotionConfig, opts *runOptions, bits byte) error {
	r, err := newRig(cfg, opts.AckDelay)
	if err != nil {
		return err
	}
	done := r.Start(ctx)

	if r.loop != nil {
		r.loop.Open()
		for _, id := range types.DrainOrder {
			_ = r.loop.Subscribe(types.ChannelAttr(id), true)
		}
	}

	every := opts.Every
	if every <= 0 {
		every = 2 * time.Second
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			<-done
			if st, ok := r.Status(); ok {
				logx.Info("[sim] sent", st.Sent, "dropped", st.Dropped, "deferred", st.Deferred,
					"coalesced", st.Coalesced, "irq hits", r.line.Hits())
			}
			return nil
		case <-tick.C:
			r.Interrupt(bits)
		}
	}
}
