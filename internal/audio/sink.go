// Package audio inspects PulseAudio output sinks the player will play through.
package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Sink describes one Pulse output sink.
type Sink struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// ListSinks returns Pulse output sinks with default/availability metadata.
func ListSinks(_ context.Context) ([]Sink, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("piano"),
		pulse.ClientApplicationIconName("audio-x-generic"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}

	var infos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}
	return sinksFromReply(infos, defaultSink.ID()), nil
}

// DefaultOutput returns the default sink, failing when it cannot carry sound.
func DefaultOutput(ctx context.Context) (Sink, error) {
	sinks, err := ListSinks(ctx)
	if err != nil {
		return Sink{}, err
	}
	return usableDefault(sinks)
}

func sinksFromReply(infos pulseproto.GetSinkInfoListReply, defaultID string) []Sink {
	sinks := make([]Sink, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		sinks = append(sinks, Sink{
			ID:          info.SinkName,
			Description: info.Device,
			State:       sinkStateString(info.State),
			Available:   sinkAvailable(info),
			Muted:       info.Mute,
			Default:     info.SinkName == defaultID,
		})
	}
	return sinks
}

func usableDefault(sinks []Sink) (Sink, error) {
	if len(sinks) == 0 {
		return Sink{}, errors.New("no audio output sinks found")
	}
	for _, sink := range sinks {
		if !sink.Default {
			continue
		}
		if sink.Muted {
			return sink, fmt.Errorf("default sink %q is muted", sink.ID)
		}
		if !sink.Available {
			return sink, fmt.Errorf("default sink %q is not available", sink.ID)
		}
		return sink, nil
	}
	return Sink{}, errors.New("default audio sink is unavailable")
}

// sinkStateString maps Pulse sink state constants to readable values.
func sinkStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sinkAvailable reports whether the active port can play. Sinks without
// ports count as available.
func sinkAvailable(info *pulseproto.GetSinkInfoReply) bool {
	if info == nil {
		return false
	}
	for _, port := range info.Ports {
		if port.Name != info.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available != 1
	}
	return true
}
