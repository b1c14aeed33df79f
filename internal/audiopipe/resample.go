package audiopipe

// Resample converts mono float32 samples from srcRate to dstRate using
// linear interpolation between neighboring source samples.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) == 0 {
		return samples
	}

	srcLen := len(samples)
	dstLen := int(int64(srcLen) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < srcLen {
			s1 = samples[srcIdx+1]
		}
		out[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// DownmixToMono averages interleaved multi-channel samples into mono.
func DownmixToMono(samples []float32, channels int) []float32 {
	if channels <= 1 || len(samples) == 0 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
