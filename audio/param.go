package audio

import "math"

// param is a smoothed control value. Ramps are linear in the parameter's
// own domain and advance one step per rendered frame.
type param struct {
	value     float64
	target    float64
	step      float64
	remaining int
	lo, hi    float64
}

func newParam(v, lo, hi float64) param {
	v = clamp(v, lo, hi)
	return param{value: v, target: v, lo: lo, hi: hi}
}

// set moves the parameter to v over rampFrames frames. NaN is ignored.
func (p *param) set(v float64, rampFrames int) {
	if math.IsNaN(v) {
		return
	}
	v = clamp(v, p.lo, p.hi)
	if rampFrames <= 0 || v == p.value {
		p.value, p.target, p.remaining = v, v, 0
		return
	}
	p.target = v
	p.remaining = rampFrames
	p.step = (v - p.value) / float64(rampFrames)
}

// next advances the ramp by one frame and returns the new value.
func (p *param) next() float64 {
	if p.remaining > 0 {
		p.remaining--
		if p.remaining == 0 {
			p.value = p.target
		} else {
			p.value += p.step
		}
	}
	return p.value
}

func (p *param) ramping() bool { return p.remaining > 0 }

// fill writes the next len(buf) values into buf.
func (p *param) fill(buf []float64) {
	if !p.ramping() {
		for i := range buf {
			buf[i] = p.value
		}
		return
	}
	for i := range buf {
		buf[i] = p.next()
	}
}

// volume is a gain parameter addressed in decibels. Negative infinity is
// silence and applies at once; ramps run on linear gain so fading in from
// silence is smooth.
type volume struct {
	gain param
}

func newVolume(db float64) volume {
	return volume{gain: newParam(dbToGain(db), 0, maxLinearGain)}
}

func (v *volume) setDB(db float64, rampFrames int) {
	if math.IsInf(db, -1) {
		v.gain.set(0, 0)
		return
	}
	v.gain.set(dbToGain(db), rampFrames)
}

func (v *volume) db() float64 {
	return gainToDB(v.gain.target)
}
