package session

import (
	"context"
	"fmt"

	"github.com/rbright/piano/internal/ipc"
)

// Handle maps one IPC request onto a session intent.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	var reply Reply
	switch req.Command {
	case ipc.CommandStatus:
	case ipc.CommandPlay:
		reply = c.Play(ctx, req.Text)
	case ipc.CommandPause:
		reply = c.Pause(ctx)
	case ipc.CommandResume:
		reply = c.Resume(ctx)
	case ipc.CommandNext:
		reply = c.Next(ctx)
	case ipc.CommandStation:
		reply = c.ChangeStation(ctx, req.Text)
	case ipc.CommandStations:
		reply = c.ListStations()
	case ipc.CommandStop:
		reply = c.Stop(ctx)
	case ipc.CommandListen:
		reply = c.ListenerStarted(ctx)
	case ipc.CommandActivity:
		c.ListenerActivity()
	case ipc.CommandShutdown:
		reply = c.Shutdown(ctx)
	default:
		reply = Reply{Err: fmt.Errorf("unknown command %q", req.Command)}
	}
	return c.response(req.Command, reply)
}

func (c *Controller) response(command string, reply Reply) ipc.Response {
	view := c.Snapshot()
	resp := ipc.Response{
		OK:      reply.Err == nil,
		State:   string(view.State),
		Message: reply.Message,
		Station: reply.Station,
	}
	if resp.Station == nil {
		resp.Station = view.Current
	}
	if reply.Err != nil {
		resp.Error = reply.Err.Error()
	}
	if !view.Song.Empty() {
		song := view.Song
		resp.Song = &song
	}
	if command == ipc.CommandStations || command == ipc.CommandStatus {
		resp.Stations = view.Stations
	}
	return resp
}
