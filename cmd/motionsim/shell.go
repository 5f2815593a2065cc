package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/spf13/cobra"

	"motionlink-go/types"
)

const rigKey = "rig"

func rigFrom(c *ishell.Context) *rig { return c.Get(rigKey).(*rig) }

// loopOnly wraps commands that play the peer; they need the loopback link.
func loopOnly(fn func(c *ishell.Context, r *rig)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		r := rigFrom(c)
		if r.loop == nil {
			c.Err(errors.New("peer commands need the loopback link"))
			return
		}
		fn(c, r)
	}
}

func channelArg(c *ishell.Context) (uint16, bool) {
	if len(c.Args) != 1 {
		c.Err(errors.New("expected a channel: freefall, activity or doubletap"))
		return 0, false
	}
	id, ok := types.ParseChannel(c.Args[0])
	if !ok {
		c.Err(errors.New("unknown channel " + c.Args[0]))
		return 0, false
	}
	return types.ChannelAttr(id), true
}

var shellCmds = []*ishell.Cmd{
	{
		Name: "irq",
		Help: "irq BITS: latch INT_SOURCE bits (e.g. 0x10) and raise INT1",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("expected INT_SOURCE bits"))
				return
			}
			v, err := strconv.ParseUint(c.Args[0], 0, 8)
			if err != nil {
				c.Err(err)
				return
			}
			rigFrom(c).Interrupt(byte(v))
		},
	},
	{
		Name: "open",
		Help: "connect the peer",
		Func: loopOnly(func(c *ishell.Context, r *rig) {
			c.Println("handle", r.loop.Open())
		}),
	},
	{
		Name: "close",
		Help: "disconnect the peer",
		Func: loopOnly(func(c *ishell.Context, r *rig) { r.loop.Close() }),
	},
	{
		Name: "sub",
		Help: "sub CHANNEL: enable indications",
		Func: loopOnly(func(c *ishell.Context, r *rig) {
			if attr, ok := channelArg(c); ok {
				if err := r.loop.Subscribe(attr, true); err != nil {
					c.Err(err)
				}
			}
		}),
	},
	{
		Name: "unsub",
		Help: "unsub CHANNEL: disable indications",
		Func: loopOnly(func(c *ishell.Context, r *rig) {
			if attr, ok := channelArg(c); ok {
				if err := r.loop.Subscribe(attr, false); err != nil {
					c.Err(err)
				}
			}
		}),
	},
	{
		Name: "ack",
		Help: "acknowledge the outstanding indication",
		Func: loopOnly(func(c *ishell.Context, r *rig) {
			if !r.loop.Ack() {
				c.Println("nothing outstanding")
			}
		}),
	},
	{
		Name: "timeout",
		Help: "expire the outstanding indication",
		Func: loopOnly(func(c *ishell.Context, r *rig) {
			if !r.loop.Timeout() {
				c.Println("nothing outstanding")
			}
		}),
	},
	{
		Name: "status",
		Help: "print the last published status",
		Func: func(c *ishell.Context) {
			r := rigFrom(c)
			st, ok := r.Status()
			if !ok {
				c.Println("no status yet")
				return
			}
			c.Printf("uptime %d ms, overflows %d, connected %v (conn %d)\n", st.UptimeMs, st.Overflows, st.Connected, st.Conn)
			c.Printf("in flight %v owner %s; sent %d dropped %d deferred %d coalesced %d\n",
				st.InFlight, st.Owner, st.Sent, st.Dropped, st.Deferred, st.Coalesced)
			for _, ch := range st.Channels {
				c.Printf("  %-9s %-8s %02x %02x\n", ch.ID, ch.State, ch.Payload.Flags, ch.Payload.Value)
			}
			if r.loop != nil {
				if ind, ok := r.loop.Outstanding(); ok {
					c.Printf("outstanding attr 0x%04x value % x\n", ind.Attr, ind.Value)
				}
			}
		},
	},
	{
		Name: "timer",
		Help: "timer USEC: arm the one-shot timer",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("expected microseconds"))
				return
			}
			v, err := strconv.ParseUint(c.Args[0], 0, 32)
			if err != nil {
				c.Err(err)
				return
			}
			if err := rigFrom(c).svc.StartTimer(uint32(v)); err != nil {
				c.Err(err)
			}
		},
	},
	{
		Name: "cancel",
		Help: "cancel the one-shot timer",
		Func: func(c *ishell.Context) { rigFrom(c).svc.CancelTimer() },
	},
}

func newShellCommand(root *rootOptions) *cobra.Command {
	var manualAck bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive interrupt and link event injector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			delay := cfg.Link.AckTimeout
			if manualAck {
				delay = 0
			}
			r, err := newRig(cfg, delay)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			done := r.Start(ctx)
			defer func() {
				cancel()
				<-done
			}()

			sh := ishell.New()
			sh.Set(rigKey, r)
			sh.SetPrompt("motion> ")
			for _, c := range shellCmds {
				sh.AddCmd(c)
			}
			sh.Run()
			return nil
		},
	}
	cmd.Flags().BoolVar(&manualAck, "manual-ack", true, "leave loopback indications outstanding until ack or timeout")
	return cmd
}
