package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/opd-ai/espudp"
	"github.com/opd-ai/espudp/crtp"
	"github.com/opd-ai/espudp/netevent"
	"github.com/spf13/cobra"
)

var (
	// eventStyle renders lifecycle notifications.
	eventStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	// goodStyle renders successful transitions.
	goodStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	// errorStyle renders failures and lost connections.
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	// packetStyle renders received payloads.
	packetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// dimStyle renders timestamps and hints.
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

func newLinkCmd(a *app) *cobra.Command {
	var (
		sends    []string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Connect to the device, send packets and print what comes back",
		Long: `link watches the host's interfaces for the SoftAP subnet, connects the
driver as soon as the network is joined, sends every --send payload once
connected, and prints received packets until --duration elapses or the
command is interrupted. Link statistics are printed as JSON on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payloads := make([][]byte, 0, len(sends))
			for _, s := range sends {
				p, err := parseHex(s)
				if err != nil {
					return err
				}
				payloads = append(payloads, p)
			}
			return a.runLink(cmd, payloads, duration)
		},
	}

	cmd.Flags().StringArrayVar(&sends, "send", nil, "hex payload to send once connected (repeatable)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (default: until interrupted)")
	return cmd
}

func (a *app) runLink(cmd *cobra.Command, payloads [][]byte, duration time.Duration) error {
	subnet, err := a.cfg.Subnet()
	if err != nil {
		return err
	}
	opts, err := a.cfg.DriverOptions()
	if err != nil {
		return err
	}

	watcher := netevent.NewInterfaceWatcher(subnet, a.cfg.PollInterval)
	watcher.Start()
	defer watcher.Close()

	driver, err := espudp.New(watcher, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	out := newLinkPrinter(cmd.OutOrStdout())
	driver.AddConnectionListener(out)
	out.hint(fmt.Sprintf("waiting for SoftAP %s, device %s:%d", subnet, opts.DeviceAddress, opts.DevicePort))

	if err := driver.Connect(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-out.connected:
			for _, p := range payloads {
				driver.SendPacket(crtp.NewPacket(p))
				out.packet("tx", p)
			}
		case <-ctx.Done():
		}
	}()

	for {
		p := driver.ReceivePacketContext(ctx)
		if p == nil {
			break
		}
		out.packet("rx", p.Bytes())
	}

	wg.Wait()
	driver.Disconnect()

	stats, err := json.MarshalIndent(driver.Stats(), "", "  ")
	if err != nil {
		return err
	}
	out.raw(string(stats))
	return nil
}

// linkPrinter renders driver notifications and packets. Callbacks arrive on
// the event source's goroutine, so writes are serialized.
type linkPrinter struct {
	mu        sync.Mutex
	w         io.Writer
	connected chan struct{}
	once      sync.Once
}

var _ crtp.ConnectionListener = (*linkPrinter)(nil)

func newLinkPrinter(w io.Writer) *linkPrinter {
	return &linkPrinter{w: w, connected: make(chan struct{})}
}

func (l *linkPrinter) line(style lipgloss.Style, label, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stamp := dimStyle.Render(time.Now().Format("15:04:05.000"))
	if detail == "" {
		fmt.Fprintf(l.w, "%s %s\n", stamp, style.Render(label))
		return
	}
	fmt.Fprintf(l.w, "%s %s %s\n", stamp, style.Render(label), detail)
}

func (l *linkPrinter) raw(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *linkPrinter) hint(s string) {
	l.raw(dimStyle.Render(s))
}

func (l *linkPrinter) packet(direction string, payload []byte) {
	l.line(packetStyle, direction, crtp.NewPacket(payload).String())
}

func (l *linkPrinter) ConnectionRequested() {
	l.line(eventStyle, "connection requested", "")
}

func (l *linkPrinter) Connected() {
	l.line(goodStyle, "connected", "")
	l.once.Do(func() { close(l.connected) })
}

func (l *linkPrinter) ConnectionFailed(reason string) {
	l.line(errorStyle, "connection failed", reason)
}

func (l *linkPrinter) ConnectionLost(reason string) {
	l.line(errorStyle, "connection lost", reason)
}

func (l *linkPrinter) Disconnected() {
	l.line(eventStyle, "disconnected", "")
}
