package ipc

import (
	"github.com/rbright/piano/internal/nowplaying"
	"github.com/rbright/piano/internal/station"
)

// Commands accepted by the owner daemon.
const (
	CommandStatus   = "status"
	CommandPlay     = "play"
	CommandPause    = "pause"
	CommandResume   = "resume"
	CommandNext     = "next"
	CommandStation  = "station"
	CommandStations = "stations"
	CommandStop     = "stop"
	CommandListen   = "listen"
	CommandActivity = "activity"
	CommandShutdown = "shutdown"
)

// Request is one voice intent. Text carries the raw utterance, when the
// intent has one.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Response carries the resulting session view. Message is what the host
// should speak.
type Response struct {
	OK       bool              `json:"ok"`
	State    string            `json:"state,omitempty"`
	Message  string            `json:"message,omitempty"`
	Error    string            `json:"error,omitempty"`
	Station  *station.Station  `json:"station,omitempty"`
	Song     *nowplaying.Song  `json:"song,omitempty"`
	Stations []station.Station `json:"stations,omitempty"`
}
