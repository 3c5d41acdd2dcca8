// Package risk scores every segment of the network against the live report
// set. Three independent channels (directional, bidirectional, line-wide)
// decay over time and along the line, sum into a per-segment risk, propagate
// across shared track and quantize to four colors.
package risk

import "math"

// ChannelParams tunes one risk channel: the logistic temporal decay and the
// beta-binomial spatial kernel.
type ChannelParams struct {
	TTL      float64 // seconds until the contribution has mostly decayed
	Strength float64 // temporal falloff steepness, relative to TTL
	Shift    float64 // temporal plateau length, relative to TTL

	Alpha        float64 // beta-binomial shape
	Beta         float64
	N            int // kernel support: contributions vanish past N hops
	Peak         int // hop distance where the kernel is strongest
	SpatialShift int // added to the distance before kernel evaluation
}

// Params collects the three channels. The constants were fitted against
// historic report data; see DefaultParams.
type Params struct {
	Direct   ChannelParams
	Bidirect ChannelParams
	Line     ChannelParams
}

// DefaultParams returns the production constants.
func DefaultParams() Params {
	return Params{
		Direct: ChannelParams{
			TTL: 1000, Strength: 0.2, Shift: 0.4,
			Alpha: 1.456, Beta: 2.547, N: 6, Peak: 1, SpatialShift: 0,
		},
		Bidirect: ChannelParams{
			TTL: 2000, Strength: 0.3, Shift: 0.4,
			Alpha: 1.336, Beta: 1.968, N: 5, Peak: 1, SpatialShift: 1,
		},
		Line: ChannelParams{
			TTL: 4000, Strength: 0.3, Shift: 0.2,
			Alpha: 0.9891, Beta: 1.175, N: 30, Peak: 0, SpatialShift: 0,
		},
	}
}

// temporalDecay is a shifted logistic over the report age in seconds: close
// to 1 while the report is fresh, dropping around TTL·(1+Shift), close to 0
// long after.
func (p ChannelParams) temporalDecay(ageSeconds float64) float64 {
	return 1 / (1 + math.Exp((ageSeconds-p.TTL*(1+p.Shift))/(p.Strength*p.TTL)))
}

// spatialDecay maps the hop distance from the anchor segment to [0, 1] by
// normalizing the beta-binomial mass at that distance against the mass at
// the kernel peak.
func (p ChannelParams) spatialDecay(distance int) float64 {
	if distance < 0 {
		distance = -distance
	}
	value := betaBinomialPMF(distance+p.SpatialShift, p.N, p.Alpha, p.Beta)
	peak := betaBinomialPMF(p.Peak, p.N, p.Alpha, p.Beta)
	if peak == 0 {
		return 0
	}
	return clamp01(value / peak)
}

// betaBinomialPMF evaluates P(X = k) for X ~ BetaBinomial(n, α, β), zero
// outside the support. Computed in log space to stay stable for large n.
func betaBinomialPMF(k, n int, alpha, beta float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	logPMF := logChoose(n, k) +
		logBeta(float64(k)+alpha, float64(n-k)+beta) -
		logBeta(alpha, beta)
	return math.Exp(logPMF)
}

func logChoose(n, k int) float64 {
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln - lk - lnk
}

func logBeta(a, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
