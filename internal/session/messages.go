package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbright/piano/internal/player"
	"github.com/rbright/piano/internal/station"
)

const (
	msgNotPlaying    = "Pandora is not playing"
	msgPaused        = "Pandora paused"
	msgResuming      = "Resuming Pandora"
	msgSkipping      = "Skipping this song"
	msgGoodbye       = "Pandora stopped"
	msgCannotDoThat  = "I can't do that right now"
	msgPlayerError   = "Pandora is not responding"
	msgNoStations    = "Pandora has no stations yet"
	msgLaunchGeneric = "I couldn't start Pandora"
	msgLaunchCreds   = "Your Pandora username or password is wrong"
	msgLaunchEmpty   = "Your Pandora account has no stations"
	msgLaunchLocked  = "Pandora is being controlled by another session"
)

// launchMessage turns a Start failure into something a listener can act on.
func launchMessage(err error) string {
	if errors.Is(err, player.ErrLocked) {
		return msgLaunchLocked
	}
	var launchErr *player.LaunchError
	if !errors.As(err, &launchErr) {
		return msgLaunchGeneric
	}
	switch launchErr.Diagnosis {
	case player.DiagnosisWrongCredentials:
		return msgLaunchCreds
	case player.DiagnosisNoStations:
		return msgLaunchEmpty
	default:
		return msgLaunchGeneric
	}
}

func playingMessage(target station.Station, cleaned string, matched bool) string {
	name := target.Name
	if name == "" {
		name = fmt.Sprintf("station %d", target.Index+1)
	}
	if cleaned != "" && !matched {
		return fmt.Sprintf("I couldn't find %s, playing %s", cleaned, name)
	}
	return "Playing " + name
}

func lookingForMessage(cleaned string) string {
	return fmt.Sprintf("Starting Pandora, looking for %s", cleaned)
}

func notFoundMessage(cleaned string) string {
	return fmt.Sprintf("I couldn't find %s", cleaned)
}

func stationsMessage(stations []station.Station) string {
	if len(stations) == 0 {
		return msgNoStations
	}
	names := make([]string, 0, len(stations))
	for _, st := range stations {
		names = append(names, st.Name)
	}
	if len(names) == 1 {
		return "Your station is " + names[0]
	}
	return "Your stations are " + strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
