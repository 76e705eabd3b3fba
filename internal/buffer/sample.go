package buffer

import "github.com/kestrelraster/tilestore/internal/resample"

// SamplerNew looks up a named resampler (spec.md §4.7); an empty or
// unrecognized name resolves to Linear.
func (b *Buffer) SamplerNew(name string) resample.Sampler {
	return resample.Lookup(name)
}

// SampleAtLevel evaluates sampler at buffer-logical coordinates (x, y)
// using scale (nil for an unscaled 1:1 sample), honoring the buffer's
// current abyss policy for out-of-range context fetches.
func (b *Buffer) SampleAtLevel(x, y float64, policy AbyssPolicy, sampler resample.Sampler, scale *resample.ScaleMatrix) [4]float64 {
	b.defaultAbyssForSampling = policy
	return sampler.Get(bufferSource{b: b}, x, y, scale)
}
