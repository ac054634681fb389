package indicator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

type cueKind int

const (
	cuePause cueKind = iota + 1
	cueResume
	cueError
)

const cueSampleRate = 16000

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var (
	pauseCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 784, duration: 70 * time.Millisecond, volume: 0.16},
		{frequencyHz: 523, duration: 110 * time.Millisecond, volume: 0.16},
	})
	resumeCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 523, duration: 70 * time.Millisecond, volume: 0.16},
		{frequencyHz: 784, duration: 110 * time.Millisecond, volume: 0.16},
	})
	errorCuePCM = synthesizeCue([]toneSpec{
		{frequencyHz: 330, duration: 90 * time.Millisecond, volume: 0.18},
		{frequencyHz: 330, duration: 90 * time.Millisecond, volume: 0.18},
	})
)

func (k cueKind) String() string {
	switch k {
	case cuePause:
		return "pause"
	case cueResume:
		return "resume"
	case cueError:
		return "error"
	default:
		return fmt.Sprintf("cue(%d)", int(k))
	}
}

// emitCue plays a synthesized cue through the PulseAudio server.
func emitCue(ctx context.Context, kind cueKind) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("play %s cue: %w", kind, err)
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return nil
	}
	return playSynthCue(ctx, kind, samples)
}

func playSynthCue(ctx context.Context, kind cueKind, samples []int16) error {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("piano"),
		pulse.ClientApplicationIconName("audio-x-generic"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("piano "+kind.String()+" cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play %s cue: %w", kind, err)
	}
	return ctx.Err()
}

func cueSamples(kind cueKind) []int16 {
	switch kind {
	case cuePause:
		return pauseCuePCM
	case cueResume:
		return resumeCuePCM
	case cueError:
		return errorCuePCM
	default:
		return nil
	}
}

// synthesizeCue joins tones with a short silent gap.
func synthesizeCue(parts []toneSpec) []int16 {
	gap := make([]int16, samplesForDuration(25*time.Millisecond))

	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine tone with a linear attack and release of at
// most 5ms.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := min(max(n/10, 1), cueSampleRate/200)

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := min(1.0, float64(i)/float64(ramp), float64(n-i-1)/float64(ramp))
		t := float64(i) / cueSampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
