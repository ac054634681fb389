package player

import "strconv"

// Single-key commands understood by pianobar on stdin.
const (
	CmdNext   = "n"
	CmdPause  = "S"
	CmdResume = "P"
	CmdQuit   = "q"
)

// SwitchStation asks a running player to change to station index.
func SwitchStation(index int) string {
	return "s" + strconv.Itoa(index) + "\n"
}

// SelectStation answers the player's initial station prompt.
func SelectStation(index int) string {
	return strconv.Itoa(index) + "\n"
}
