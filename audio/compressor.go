package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-patch/backend"
)

// compressor is a feed-forward compressor with a stereo-linked peak
// envelope follower and a hard knee.
type compressor struct {
	sampleRate  float64
	threshold   float64 // dB
	ratio       float64
	attack      float64 // seconds
	release     float64 // seconds
	attackCoef  float64
	releaseCoef float64
	env         float64
}

func newCompressor(sampleRate float64) *compressor {
	c := &compressor{
		sampleRate: sampleRate,
		threshold:  -30,
		ratio:      3,
		attack:     0.003,
		release:    0.25,
	}
	c.updateCoefs()
	return c
}

func (c *compressor) setParam(name string, v float64, _ int) error {
	if math.IsNaN(v) {
		return nil
	}
	switch name {
	case "threshold":
		c.threshold = clamp(v, -100, 0)
	case "ratio":
		c.ratio = clamp(v, 1, 20)
	case "attack":
		c.attack = clamp(v, 0, 1)
	case "release":
		c.release = clamp(v, 0, 1)
	default:
		return fmt.Errorf("%w: compressor %q", backend.ErrUnknownParam, name)
	}
	c.updateCoefs()
	return nil
}

func (c *compressor) updateCoefs() {
	c.attackCoef = timeCoef(c.attack, c.sampleRate)
	c.releaseCoef = timeCoef(c.release, c.sampleRate)
}

func timeCoef(sec, sampleRate float64) float64 {
	if sec <= 0 {
		return 0
	}
	return math.Exp(-1 / (sec * sampleRate))
}

// gainDB returns the gain reduction for a detector level in dB.
func (c *compressor) gainDB(levelDB float64) float64 {
	over := levelDB - c.threshold
	if over <= 0 {
		return 0
	}
	return -over * (1 - 1/c.ratio)
}

func (c *compressor) process(_ *block, in, out stereo) {
	for i := range in.l {
		peak := math.Max(math.Abs(in.l[i]), math.Abs(in.r[i]))
		coef := c.releaseCoef
		if peak > c.env {
			coef = c.attackCoef
		}
		c.env = coef*c.env + (1-coef)*peak

		g := dbToGain(c.gainDB(gainToDB(c.env)))
		out.l[i] = in.l[i] * g
		out.r[i] = in.r[i] * g
	}
}
