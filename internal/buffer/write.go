package buffer

import (
	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/pixfmt"
)

// WriteFlags is the write-path bitfield of spec.md §4.5.
type WriteFlags int

const (
	WriteFast   WriteFlags = 0
	WriteLock   WriteFlags = 1 << iota
	WriteNotify            // flush the storage after the write when the buffer is marked shared; no changed signal is emitted
)

// Set writes src (rowStride-strided, srcFmt pixels) into rect at the given
// mipmap level, clipping against the abyss, converting formats as needed,
// and damaging the affected tiles so higher (synthesized) levels
// re-derive from them. Equivalent to the public `set` using LOCK|NOTIFY.
func (b *Buffer) Set(rect geom.Rect, level int, srcFmt pixfmt.Format, src []byte, rowStride int) error {
	return b.setFlags(rect, level, srcFmt, src, rowStride, WriteLock|WriteNotify)
}

func (b *Buffer) setFlags(rect geom.Rect, level int, srcFmt pixfmt.Format, src []byte, rowStride int, flags WriteFlags) error {
	clipped := geom.Intersect(rect, b.abyss)
	if clipped.IsEmpty() {
		return nil
	}

	tileW, tileH := b.tileDims()
	storageFmt := b.storage.Format
	sbpp := srcFmt.BytesPerPixel()
	dbpp := storageFmt.BytesPerPixel()

	lvl := b.levelRect(clipped, level)
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
			t, err := b.storage.Get(int32(tx), int32(ty), int32(level))
			if err != nil {
				return err
			}
			t.Lock() // COW-unshare happens here if the tile was shared

			data := t.Data()
			dstStride := tileW * dbpp
			dstOff := (inter.Top()-tileRect.Top())*dstStride + (inter.Left()-tileRect.Left())*dbpp
			srcOff := (inter.Top()-clipped.Top())*rowStride + (inter.Left()-clipped.Left())*sbpp

			var convErr error
			if srcFmt == storageFmt {
				for row := 0; row < inter.H; row++ {
					s := srcOff + row*rowStride
					d := dstOff + row*dstStride
					copy(data[d:d+inter.W*dbpp], src[s:s+inter.W*sbpp])
				}
			} else {
				convErr = pixfmt.ConvertRows(srcFmt, storageFmt, src[srcOff:], rowStride, data[dstOff:], dstStride, inter.W, inter.H)
			}

			t.UnlockNoVoid()
			if convErr != nil {
				return convErr
			}
			t.SetDamage(^uint64(0))
			if err := b.storage.Set(int32(tx), int32(ty), int32(level), t); err != nil {
				return err
			}
		}
	}

	if flags&WriteNotify != 0 && b.shared {
		if err := b.storage.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Clear overwrites rect (clipped to abyss) with the format's zero pixel.
func (b *Buffer) Clear(rect geom.Rect) error {
	return b.SetColorFromPixel(rect, [4]float64{0, 0, 0, 0})
}

// SetColorFromPixel fills rect (clipped to abyss) with a single linear-light
// RGBA color, converted to the storage format.
func (b *Buffer) SetColorFromPixel(rect geom.Rect, rgba [4]float64) error {
	storageFmt := b.storage.Format
	bpp := storageFmt.BytesPerPixel()
	px := make([]byte, bpp)
	pixfmt.FromFloat4(storageFmt, rgba, px)
	return b.SetPattern(rect, storageFmt, px, 1, 1)
}

// SetPattern tiles a small patW x patH pattern (in patFmt) across rect,
// clipped to the abyss, by replicating the pattern's single row/column (or
// full block) through the ordinary write path.
func (b *Buffer) SetPattern(rect geom.Rect, patFmt pixfmt.Format, pattern []byte, patW, patH int) error {
	if patW <= 0 || patH <= 0 {
		return nil
	}
	clipped := geom.Intersect(rect, b.abyss)
	if clipped.IsEmpty() {
		return nil
	}
	bpp := patFmt.BytesPerPixel()
	rowStride := clipped.W * bpp
	patStride := patW * bpp
	buf := make([]byte, clipped.H*rowStride)
	for r := 0; r < clipped.H; r++ {
		patRow := (r % patH) * patStride
		dRow := r * rowStride
		for col := 0; col < clipped.W; col++ {
			s := patRow + (col%patW)*bpp
			copy(buf[dRow+col*bpp:dRow+(col+1)*bpp], pattern[s:s+bpp])
		}
	}
	return b.Set(clipped, 0, patFmt, buf, rowStride)
}
