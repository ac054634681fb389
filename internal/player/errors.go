package player

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotRunning reports a command issued while no live player is tracked.
var ErrNotRunning = errors.New("player is not running")

// ErrLocked reports that another owner holds the launch lock.
var ErrLocked = errors.New("another piano owner is controlling the player")

// Diagnosis classifies why a launch failed.
type Diagnosis string

const (
	DiagnosisGeneric          Diagnosis = "generic"
	DiagnosisWrongCredentials Diagnosis = "wrong_credentials"
	DiagnosisNoStations       Diagnosis = "no_stations"
)

// LaunchError is returned by Start when the player could not be brought up.
type LaunchError struct {
	Diagnosis Diagnosis
	Output    string
	Err       error
}

func (e *LaunchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("launch player: %s", e.Diagnosis)
	}
	return fmt.Sprintf("launch player (%s): %v", e.Diagnosis, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

var (
	credentialMarkers = []string{
		"wrong email address or password",
		"invalid username",
		"invalid password",
		"invalid_auth",
		"login... error",
	}
	noStationMarkers = []string{
		"no stations",
		"no station available",
	}
)

// Classify inspects captured player output for known failure messages.
func Classify(output string) Diagnosis {
	lower := strings.ToLower(output)
	for _, marker := range credentialMarkers {
		if strings.Contains(lower, marker) {
			return DiagnosisWrongCredentials
		}
	}
	for _, marker := range noStationMarkers {
		if strings.Contains(lower, marker) {
			return DiagnosisNoStations
		}
	}
	return DiagnosisGeneric
}

// failed reports whether output shows a failure that makes the launch unusable.
func failed(output string) bool {
	return Classify(output) != DiagnosisGeneric
}
