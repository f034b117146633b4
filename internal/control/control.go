// Package control holds the mutable runtime settings operators flip at
// run time: the aggregation and synth intervals, the demo-mode flag,
// per-modality emotion bias and enable flags, and the synthetic user id.
//
// Each registry carries its own mutex. There is no cross-field atomicity
// and no observer machinery: the aggregator and generator re-read the
// registries at each tick, which is the only coupling needed.
package control

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eefei22/well-bot-EmotionRecognition/internal/emotion"
)

// Interval bounds and defaults (seconds).
const (
	AggregationMin     = 60
	AggregationMax     = 3600
	AggregationDefault = 300

	SynthMin     = 5
	SynthMax     = 300
	SynthDefault = 30
)

// ErrOutOfRange is wrapped by every setter rejection; the HTTP layer maps
// it to a 400.
var ErrOutOfRange = errors.New("value out of range")

// Registries bundles the per-process control-plane state.
type Registries struct {
	AggregationInterval *Interval
	SynthInterval       *Interval
	Demo                *DemoMode
	Bias                *Bias
	Toggles             *Toggles
	SyntheticUser       *SyntheticUser
}

// New seeds the registries. aggSeconds and synthSeconds come from
// configuration and are clamped into bounds by validation: an out-of-range
// configured default is a startup error, as is a malformed user id.
func New(devUserID string, aggSeconds, synthSeconds int) (*Registries, error) {
	agg := NewInterval("aggregation-interval", AggregationMin, AggregationMax, AggregationDefault)
	if aggSeconds != 0 {
		if err := agg.Set(aggSeconds); err != nil {
			return nil, fmt.Errorf("aggregation interval: %w", err)
		}
	}
	synth := NewInterval("generation-interval", SynthMin, SynthMax, SynthDefault)
	if synthSeconds != 0 {
		if err := synth.Set(synthSeconds); err != nil {
			return nil, fmt.Errorf("synth interval: %w", err)
		}
	}
	user, err := NewSyntheticUser(devUserID)
	if err != nil {
		return nil, err
	}
	return &Registries{
		AggregationInterval: agg,
		SynthInterval:       synth,
		Demo:                &DemoMode{},
		Bias:                NewBias(),
		Toggles:             NewToggles(),
		SyntheticUser:       user,
	}, nil
}

// Interval is a bounded seconds value.
type Interval struct {
	name     string
	min, max int

	mu  sync.Mutex
	val int
}

func NewInterval(name string, min, max, def int) *Interval {
	return &Interval{name: name, min: min, max: max, val: def}
}

func (i *Interval) Get() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.val
}

// Duration returns the current value as a time.Duration.
func (i *Interval) Duration() time.Duration {
	return time.Duration(i.Get()) * time.Second
}

func (i *Interval) Set(seconds int) error {
	if seconds < i.min || seconds > i.max {
		return fmt.Errorf("%s: %w: %d not in [%d, %d]", i.name, ErrOutOfRange, seconds, i.min, i.max)
	}
	i.mu.Lock()
	i.val = seconds
	i.mu.Unlock()
	return nil
}

// IntervalStatus is the wire form of an interval registry.
type IntervalStatus struct {
	Seconds int `json:"seconds"`
	Min     int `json:"min"`
	Max     int `json:"max"`
}

func (i *Interval) Status() IntervalStatus {
	return IntervalStatus{Seconds: i.Get(), Min: i.min, Max: i.max}
}

// DemoMode gates the synthetic signal generator. Default off.
type DemoMode struct {
	mu      sync.Mutex
	enabled bool
}

func (d *DemoMode) Get() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *DemoMode) Set(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
}

// Bias maps each modality to an optional preferred emotion. A biased
// modality draws that label with probability 0.75.
type Bias struct {
	mu   sync.Mutex
	bias map[emotion.Modality]emotion.Label
}

func NewBias() *Bias {
	return &Bias{bias: make(map[emotion.Modality]emotion.Label)}
}

func (b *Bias) Get(m emotion.Modality) (emotion.Label, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.bias[m]
	return l, ok
}

// Set installs or clears (label "", "none") a modality's bias.
func (b *Bias) Set(modality, label string) error {
	m, ok := emotion.ParseModality(modality)
	if !ok {
		return fmt.Errorf("invalid modality %q: must be one of speech, face, vitals", modality)
	}
	if label == "" || label == "none" {
		b.mu.Lock()
		delete(b.bias, m)
		b.mu.Unlock()
		return nil
	}
	l, ok := emotion.ParseLabel(label)
	if !ok {
		return fmt.Errorf("invalid emotion %q: must be one of Angry, Sad, Happy, Fear", label)
	}
	b.mu.Lock()
	b.bias[m] = l
	b.mu.Unlock()
	return nil
}

// All returns the bias per modality; unbiased modalities report "none".
func (b *Bias) All() map[emotion.Modality]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[emotion.Modality]string, 3)
	for _, m := range emotion.Modalities() {
		if l, ok := b.bias[m]; ok {
			out[m] = string(l)
		} else {
			out[m] = "none"
		}
	}
	return out
}

// Toggles carries the per-modality enable flags. Default all enabled.
type Toggles struct {
	mu      sync.Mutex
	enabled map[emotion.Modality]bool
}

func NewToggles() *Toggles {
	t := &Toggles{enabled: make(map[emotion.Modality]bool, 3)}
	for _, m := range emotion.Modalities() {
		t.enabled[m] = true
	}
	return t
}

func (t *Toggles) Get(m emotion.Modality) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled[m]
}

func (t *Toggles) Set(modality string, enabled bool) error {
	m, ok := emotion.ParseModality(modality)
	if !ok {
		return fmt.Errorf("invalid modality %q: must be one of speech, face, vitals", modality)
	}
	t.mu.Lock()
	t.enabled[m] = enabled
	t.mu.Unlock()
	return nil
}

func (t *Toggles) All() map[emotion.Modality]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[emotion.Modality]bool, len(t.enabled))
	for m, v := range t.enabled {
		out[m] = v
	}
	return out
}

// SyntheticUser holds the user id synthetic signals are written under.
type SyntheticUser struct {
	mu sync.Mutex
	id uuid.UUID
}

func NewSyntheticUser(seed string) (*SyntheticUser, error) {
	id, err := uuid.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid synthetic user id %q: %w", seed, err)
	}
	return &SyntheticUser{id: id}, nil
}

func (u *SyntheticUser) Get() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.id.String()
}

func (u *SyntheticUser) Set(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid user id %q: must be a UUID", s)
	}
	u.mu.Lock()
	u.id = id
	u.mu.Unlock()
	return nil
}
