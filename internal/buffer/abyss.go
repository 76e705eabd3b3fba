package buffer

import (
	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/scratch"
)

// fillAbyss fills the portion of dst (rowStride-strided, top row aligned
// with full.Top()) corresponding to piece, which lies outside b.abyss, per
// policy. CLAMP and LOOP are implemented by re-deriving the in-abyss source
// pixel per output pixel through fetchStoragePixel, which already applies
// the buffer's current abyss policy (set by Get just before calling this).
func (b *Buffer) fillAbyss(piece, full geom.Rect, policy AbyssPolicy, outFmt pixfmt.Format, dst []byte, rowStride int) error {
	if piece.IsEmpty() {
		return nil
	}
	bpp := outFmt.BytesPerPixel()
	off := addrOffset(piece, full, rowStride, bpp)

	switch policy {
	case AbyssNone:
		for row := 0; row < piece.H; row++ {
			d := off + row*rowStride
			clear(dst[d : d+piece.W*bpp])
		}
		return nil
	case AbyssBlack, AbyssWhite:
		px := make([]byte, bpp)
		v := [4]float64{0, 0, 0, 1}
		if policy == AbyssWhite {
			v = [4]float64{1, 1, 1, 1}
		}
		pixfmt.FromFloat4(outFmt, v, px)
		for row := 0; row < piece.H; row++ {
			d := off + row*rowStride
			scratch.PatternMemset(dst[d:d+piece.W*bpp], px)
		}
		return nil
	}

	storageFmt := b.storage.Format
	for row := 0; row < piece.H; row++ {
		y := piece.Top() + row
		d := off + row*rowStride
		for col := 0; col < piece.W; col++ {
			x := piece.Left() + col
			raw, err := b.fetchStoragePixel(x, y)
			if err != nil {
				return err
			}
			if outFmt == storageFmt {
				copy(dst[d+col*bpp:d+(col+1)*bpp], raw)
			} else if err := pixfmt.ConvertPixels(storageFmt, outFmt, raw, dst[d+col*bpp:d+(col+1)*bpp], 1); err != nil {
				return err
			}
		}
	}
	return nil
}
