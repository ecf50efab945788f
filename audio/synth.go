package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-patch/backend"
)

const (
	maxVoices = 32

	envAttack  = 0.005
	envDecay   = 0.1
	envSustain = 0.3
	envRelease = 1.0
)

type envStage int

const (
	stageIdle envStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

type voice struct {
	pitch     int
	hz        float64
	velocity  float64
	phase     float64
	level     float64
	stage     envStage
	startAt   int64 // first frame of the attack
	releaseAt int64
	serial    uint64
}

func (v *voice) active() bool { return v.stage != stageIdle }

// polySynth plays scheduled notes through an ADSR envelope. When all voices
// are busy the oldest one is stolen.
type polySynth struct {
	shape  waveShape
	vol    volume
	voices [maxVoices]voice
	serial uint64
	gains  []float64
}

func newPolySynth(blockSize int) *polySynth {
	return &polySynth{
		shape: waveTriangle,
		vol:   newVolume(0),
		gains: make([]float64, blockSize),
	}
}

func (s *polySynth) setParam(name string, v float64, ramp int) error {
	if name != "volume" {
		return fmt.Errorf("%w: polysynth %q", backend.ErrUnknownParam, name)
	}
	s.vol.setDB(v, ramp)
	return nil
}

func (s *polySynth) setOption(name, value string) error {
	if name != "type" {
		return fmt.Errorf("%w: polysynth option %q", backend.ErrUnknownParam, name)
	}
	shape, err := parseWaveShape(value)
	if err != nil {
		return err
	}
	s.shape = shape
	return nil
}

func (s *polySynth) trigger(n backend.Note, frame int64, sampleRate float64) {
	v := s.allocate()
	s.serial++
	*v = voice{
		pitch:     n.Pitch,
		hz:        midiToHz(n.Pitch),
		velocity:  clamp(n.Velocity, 0, 1),
		stage:     stageAttack,
		startAt:   frame,
		releaseAt: frame + max(int64(math.Round(n.Duration*sampleRate)), 1),
		serial:    s.serial,
	}
}

func (s *polySynth) allocate() *voice {
	oldest := &s.voices[0]
	for i := range s.voices {
		v := &s.voices[i]
		if !v.active() {
			return v
		}
		if v.serial < oldest.serial {
			oldest = v
		}
	}
	return oldest
}

// activeVoices returns the number of sounding or pending voices.
func (s *polySynth) activeVoices() int {
	n := 0
	for i := range s.voices {
		if s.voices[i].active() {
			n++
		}
	}
	return n
}

func (s *polySynth) process(b *block, _, out stereo) {
	out.zero()

	for vi := range s.voices {
		v := &s.voices[vi]
		if !v.active() {
			continue
		}
		dt := v.hz / b.sampleRate
		for i := range out.l {
			frame := b.frame + int64(i)
			if frame < v.startAt {
				continue
			}
			if frame >= v.releaseAt && v.stage != stageRelease {
				v.stage = stageRelease
			}
			if !v.advance(b.sampleRate) {
				break
			}
			out.l[i] += s.shape.sample(v.phase, dt) * v.level * v.velocity
			v.phase = advancePhase(v.phase, dt)
		}
	}

	gains := s.gains[:b.n]
	s.vol.gain.fill(gains)
	vecmath.MulBlockInPlace(out.l, gains)
	copy(out.r, out.l)
}

// advance steps the envelope one frame and reports whether the voice is
// still sounding.
func (v *voice) advance(sampleRate float64) bool {
	switch v.stage {
	case stageAttack:
		v.level += 1 / (envAttack * sampleRate)
		if v.level >= 1 {
			v.level = 1
			v.stage = stageDecay
		}
	case stageDecay:
		v.level -= (1 - envSustain) / (envDecay * sampleRate)
		if v.level <= envSustain {
			v.level = envSustain
			v.stage = stageSustain
		}
	case stageRelease:
		v.level -= 1 / (envRelease * sampleRate)
		if v.level <= 0 {
			v.level = 0
			v.stage = stageIdle
			return false
		}
	case stageSustain, stageIdle:
	}
	return v.stage != stageIdle
}
