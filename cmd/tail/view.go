package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"logrelay/internal/features/dashboard"
	logs_core "logrelay/internal/features/logs/core"
	"logrelay/internal/features/protocol"
	"logrelay/internal/features/realtime"
	"logrelay/internal/features/rooms"
	streams_core "logrelay/internal/features/streams/core"
)

const timeLayout = "15:04:05.000"

// terminalView prints what the dashboard receives as plain lines.
type terminalView struct {
	out         io.Writer
	minLevel    protocol.Level
	showWatches bool
	showStreams bool
	showData    bool
}

func (v *terminalView) Apply(message dashboard.Message) {
	switch message.Type {
	case realtime.MessageTypeEntry:
		var payload realtime.EntryPayload
		if v.decode(message, &payload) {
			v.printEntry(payload.Entry)
		}
	case realtime.MessageTypeEntries:
		var payload realtime.EntriesPayload
		if v.decode(message, &payload) {
			for _, entry := range payload.Entries {
				v.printEntry(entry)
			}
		}
	case realtime.MessageTypeStream:
		var payload realtime.StreamPayload
		if v.decode(message, &payload) && v.showStreams {
			v.printStreamItem(payload.Item)
		}
	case realtime.MessageTypeInit:
		var payload realtime.InitPayload
		if v.decode(message, &payload) {
			v.printInit(payload)
		}
	case realtime.MessageTypeControl:
		var payload realtime.ControlPayload
		if v.decode(message, &payload) {
			fmt.Fprintf(v.out, "-- %s --\n", payload.Command.Name)
		}
	case realtime.MessageTypeClientConnect, realtime.MessageTypeClientDisconnect, realtime.MessageTypeSession:
		var payload realtime.ClientPayload
		if v.decode(message, &payload) {
			v.printClient(message.Type, payload.Client)
		}
	case realtime.MessageTypeRoomCreated:
		var payload realtime.RoomCreatedPayload
		if v.decode(message, &payload) {
			fmt.Fprintf(v.out, "** room %q created\n", payload.Room)
		}
	case realtime.MessageTypeConnected:
		var payload realtime.ConnectedPayload
		if v.decode(message, &payload) {
			fmt.Fprintf(v.out, "** subscribed to room %q\n", payload.Room)
		}
	case realtime.MessageTypeAuthRequired:
		fmt.Fprintln(v.out, "** server requires a token")
	}
}

func (v *terminalView) ApplyWatches(watches map[string]rooms.Watch) {
	if !v.showWatches {
		return
	}

	for _, name := range slices.Sorted(maps.Keys(watches)) {
		fmt.Fprintf(v.out, "%s watch %s = %s\n",
			watches[name].Timestamp.Local().Format(timeLayout), name, watches[name].Value)
	}
}

func (v *terminalView) SetBacklogged(backlogged bool) {
	if backlogged {
		fmt.Fprintln(v.out, "!! falling behind, output is delayed")
		return
	}
	fmt.Fprintln(v.out, "!! caught up")
}

func (v *terminalView) printInit(payload realtime.InitPayload) {
	fmt.Fprintf(v.out, "** room %q: %d entries, %d watches, %d stream channels (rooms: %v)\n",
		payload.Room, len(payload.Entries), len(payload.Watches), len(payload.Streams), payload.Rooms)

	for _, entry := range payload.Entries {
		v.printEntry(entry)
	}
	v.ApplyWatches(payload.Watches)
}

func (v *terminalView) printEntry(entry logs_core.LogItemDTO) {
	if entry.Level.IsOrderable() && entry.Level < v.minLevel {
		return
	}

	fmt.Fprintf(v.out, "%s %-7s %s: %s\n",
		entry.Timestamp.Local().Format(timeLayout), entry.Level, entry.AppName, entry.Title)

	if v.showData && entry.Data != "" {
		data, err := base64.StdEncoding.DecodeString(entry.Data)
		if err == nil {
			fmt.Fprintf(v.out, "    %s\n", data)
		}
	}
}

func (v *terminalView) printStreamItem(item streams_core.StreamItemDTO) {
	fmt.Fprintf(v.out, "%s stream %s: %s\n", item.Timestamp.Local().Format(timeLayout), item.Channel, item.Data)
}

func (v *terminalView) printClient(messageType realtime.MessageType, client realtime.ClientInfo) {
	verb := "joined"
	switch messageType {
	case realtime.MessageTypeClientDisconnect:
		verb = "left"
	case realtime.MessageTypeSession:
		verb = "identified as " + client.AppName
	}

	fmt.Fprintf(v.out, "%s ++ client %s (%s) %s room %q\n",
		time.Now().Format(timeLayout), client.ConnectionID, client.RemoteAddr, verb, client.Room)
}

func (v *terminalView) decode(message dashboard.Message, payload any) bool {
	if err := message.Decode(payload); err != nil {
		fmt.Fprintf(v.out, "!! %v\n", err)
		return false
	}
	return true
}
