package sampler

import "math"

// MinIQBytes is the shortest capture that yields a usable estimate
const MinIQBytes = 8

// IQReferenceLevel maps full-scale int8 IQ power onto dBm. Empirical for
// the HackRF One with the gain table in this package.
const IQReferenceLevel = -50.0

// UnderrunPower is reported for captures too short to analyse
const UnderrunPower = -80.0

// AnalyzeIQ converts interleaved signed 8-bit I/Q samples into a power
// level in dBm, rounded to 2 decimals
func AnalyzeIQ(raw []byte) float64 {
	if len(raw) < MinIQBytes {
		return UnderrunPower
	}

	pairs := len(raw) / 2
	var sum float64
	for n := 0; n < pairs; n++ {
		i := float64(int8(raw[2*n])) / 127.0
		q := float64(int8(raw[2*n+1])) / 127.0
		sum += i*i + q*q
	}
	linear := sum / float64(pairs)

	return round2(10*math.Log10(linear+1e-10) + IQReferenceLevel)
}

// SynthesizeIQ produces pairs I/Q samples whose AnalyzeIQ level is close
// to powerDBm. Component magnitudes are error-diffused between adjacent
// integer steps so low levels are not lost to int8 quantisation.
func SynthesizeIQ(powerDBm float64, pairs int) []byte {
	if pairs <= 0 {
		return nil
	}
	linear := math.Pow(10, (powerDBm-IQReferenceLevel)/10)
	// mean of v^2 per component, in int8 units
	target := math.Min(linear/2*127*127, 127*127)

	lo := math.Floor(math.Sqrt(target))
	hi := math.Min(lo+1, 127)
	frac := 0.0
	if hi > lo {
		frac = (target - lo*lo) / (hi*hi - lo*lo)
	}

	out := make([]byte, 2*pairs)
	acc := 0.0
	for n := 0; n < pairs; n++ {
		v := lo
		acc += frac
		if acc >= 1 {
			acc--
			v = hi
		}
		sign := int8(1)
		if n%2 == 1 {
			sign = -1
		}
		s := sign * int8(v)
		out[2*n] = byte(s)
		out[2*n+1] = byte(-s)
	}
	return out
}
