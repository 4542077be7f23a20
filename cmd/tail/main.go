// Command logrelay-tail follows one room of a logrelay server in the
// terminal.
package main

import (
	"fmt"
	"os"
	"time"

	"logrelay/internal/config"
	"logrelay/internal/features/dashboard"
	"logrelay/internal/features/protocol"
	"logrelay/internal/util/logger"

	"github.com/coder/quartz"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("logrelay-tail", pflag.ExitOnError)
	url := flags.StringP("url", "u", "ws://localhost:4005/api/ws", "realtime endpoint of the server")
	room := flags.StringP("room", "r", "", "room to follow, the server default when empty")
	token := flags.StringP("token", "t", os.Getenv("LOGRELAY_TOKEN"), "bearer token, defaults to $LOGRELAY_TOKEN")
	level := flags.StringP("level", "l", "debug", "lowest level to print")
	showWatches := flags.Bool("watches", false, "print watch updates")
	showStreams := flags.Bool("streams", false, "print stream items")
	showData := flags.Bool("data", false, "print entry payloads")
	pingInterval := flags.Duration("ping-interval", dashboard.DefaultPingInterval, "latency probe interval, 0 disables")
	_ = flags.Parse(os.Args[1:])

	minLevel, err := protocol.ParseLevel(*level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --level: %v\n", err)
		os.Exit(2)
	}

	ctx := config.StartListeningForShutdownSignal()
	clock := quartz.NewReal()

	client := dashboard.NewClient(dashboard.ClientOptions{
		URL:          *url,
		Room:         *room,
		Token:        *token,
		PingInterval: *pingInterval,
		Clock:        clock,
		Logger:       logger.GetLogger(),
	}, &terminalView{
		out:         os.Stdout,
		minLevel:    minLevel,
		showWatches: *showWatches,
		showStreams: *showStreams,
		showData:    *showData,
	})

	client.Start()
	status := clock.TickerFunc(ctx, time.Second, func() error {
		reportStatus(client)
		return nil
	}, "tail", "status")

	<-ctx.Done()
	client.Close()
	_ = status.Wait()
}

var lastReportedState dashboard.ConnectionState

func reportStatus(client *dashboard.Client) {
	state := client.State()
	switch state {
	case dashboard.ConnectionStateReconnecting:
		if remaining, ok := client.ReconnectIn(); ok {
			fmt.Fprintf(os.Stderr, "reconnecting in %ds\n", int(remaining.Round(time.Second).Seconds()))
		}
	case dashboard.ConnectionStateAuthRequired:
		if state != lastReportedState {
			fmt.Fprintln(os.Stderr, "authentication failed, pass --token to connect")
		}
	case dashboard.ConnectionStateConnected:
		if state != lastReportedState {
			fmt.Fprintf(os.Stderr, "connected (latency %s)\n", client.Latency())
		}
	case dashboard.ConnectionStateClosed:
		if state != lastReportedState {
			fmt.Fprintln(os.Stderr, "connection closed by server")
		}
	}
	lastReportedState = state
}
