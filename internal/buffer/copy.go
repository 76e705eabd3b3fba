package buffer

import (
	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/storage"
)

// Copy copies srcRect of b into dstRect of dst (both rects must be the same
// size). When the two buffers share a tile format and dimensions and their
// origins are scan-compatible (tile-aligned shift difference), the aligned
// interior is copied tile-by-tile as a COW duplication (storage.CmdCopy) —
// the "free snapshot" property of spec.md §4.5. Any unaligned border strip,
// and any copy that isn't scan-compatible at all, falls back to an ordinary
// Get-then-Set.
func (b *Buffer) Copy(srcRect geom.Rect, dst *Buffer, dstRect geom.Rect) error {
	if srcRect.W != dstRect.W || srcRect.H != dstRect.H {
		return fallbackRectMismatch(b, srcRect, dst, dstRect)
	}
	srcClip := geom.Intersect(srcRect, b.abyss)
	if srcClip.IsEmpty() {
		return nil
	}
	dstClip := dstRect.Translate(srcClip.Left()-srcRect.Left(), srcClip.Top()-srcRect.Top())
	dstClip.W, dstClip.H = srcClip.W, srcClip.H

	tileW, tileH := b.tileDims()
	dTileW, dTileH := dst.tileDims()
	scanCompatible := b.storage.Format == dst.storage.Format && tileW == dTileW && tileH == dTileH &&
		geom.Mod((dstClip.Left()+dst.shiftX)-(srcClip.Left()+b.shiftX), tileW) == 0 &&
		geom.Mod((dstClip.Top()+dst.shiftY)-(srcClip.Top()+b.shiftY), tileH) == 0

	if !scanCompatible {
		return b.copyViaReadWrite(srcClip, dst, dstClip)
	}

	aligned := innerAlignedRect(b.levelRect(srcClip, 0), tileW, tileH)
	if aligned.IsEmpty() {
		return b.copyViaReadWrite(srcClip, dst, dstClip)
	}
	// Translate the aligned region back to buffer-logical src coordinates,
	// then to the matching dst-logical rect.
	alignedSrc := geom.Rect{X: aligned.X - b.shiftX, Y: aligned.Y - b.shiftY, W: aligned.W, H: aligned.H}
	alignedSrc = geom.Intersect(alignedSrc, srcClip)
	dOffX := dstClip.Left() - srcClip.Left()
	dOffY := dstClip.Top() - srcClip.Top()
	alignedDst := alignedSrc.Translate(dOffX, dOffY)

	txMin := geom.FloorDiv(aligned.Left(), tileW)
	txMax := geom.FloorDiv(aligned.Right()-1, tileW)
	tyMin := geom.FloorDiv(aligned.Top(), tileH)
	tyMax := geom.FloorDiv(aligned.Bottom()-1, tileH)
	dShiftTX := geom.FloorDiv(dOffX-b.shiftX+dst.shiftX, tileW)
	dShiftTY := geom.FloorDiv(dOffY-b.shiftY+dst.shiftY, tileH)

	for ty := tyMin; ty <= tyMax; ty++ {
		for tx := txMin; tx <= txMax; tx++ {
			if err := b.storage.Copy(int32(tx), int32(ty), 0, storage.CopyArg{
				Dst: dst.storage,
				X2:  int32(tx + dShiftTX),
				Y2:  int32(ty + dShiftTY),
				Z2:  0,
			}); err != nil {
				return err
			}
		}
	}

	for _, strip := range geom.Subtract(srcClip, alignedSrc) {
		dStrip := strip.Translate(dOffX, dOffY)
		if err := b.copyViaReadWrite(strip, dst, dStrip); err != nil {
			return err
		}
	}
	return nil
}

func fallbackRectMismatch(b *Buffer, srcRect geom.Rect, dst *Buffer, dstRect geom.Rect) error {
	// Differing sizes imply a scaled copy; route it through Get's resampler
	// by reading src at the scale dstRect/srcRect implies.
	scaleX := float64(dstRect.W) / float64(maxInt1(srcRect.W))
	scaleY := float64(dstRect.H) / float64(maxInt1(srcRect.H))
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}
	return b.copyScaled(srcRect, scale, dst, dstRect)
}

func maxInt1(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}

func (b *Buffer) copyScaled(srcRect geom.Rect, scale float64, dst *Buffer, dstRect geom.Rect) error {
	outFmt := dst.storage.Format
	bpp := outFmt.BytesPerPixel()
	rowStride := dstRect.W * bpp
	tmp := make([]byte, dstRect.H*rowStride)
	if err := b.Get(srcRect, scale, outFmt, tmp, rowStride, AbyssNone, FilterAuto); err != nil {
		return err
	}
	return dst.Set(dstRect, 0, outFmt, tmp, rowStride)
}

func (b *Buffer) copyViaReadWrite(srcRect geom.Rect, dst *Buffer, dstRect geom.Rect) error {
	if srcRect.IsEmpty() {
		return nil
	}
	outFmt := dst.storage.Format
	bpp := outFmt.BytesPerPixel()
	rowStride := srcRect.W * bpp
	tmp := make([]byte, srcRect.H*rowStride)
	if err := b.Get(srcRect, 1.0, outFmt, tmp, rowStride, AbyssNone, FilterAuto); err != nil {
		return err
	}
	return dst.Set(dstRect, 0, outFmt, tmp, rowStride)
}

// innerAlignedRect returns the largest tile-grid-aligned rectangle
// contained within r, or an empty Rect if r doesn't fully span any tile.
func innerAlignedRect(r geom.Rect, gridW, gridH int) geom.Rect {
	x0 := ceilDiv(r.Left(), gridW) * gridW
	y0 := ceilDiv(r.Top(), gridH) * gridH
	x1 := floorDivLocal(r.Right(), gridW) * gridW
	y1 := floorDivLocal(r.Bottom(), gridH) * gridH
	if x1 <= x0 || y1 <= y0 {
		return geom.Rect{}
	}
	return geom.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ceilDiv divides a by b rounding up, valid for b > 0 (always true for tile
// dimensions).
func ceilDiv(a, b int) int {
	return geom.FloorDiv(a+b-1, b)
}

func floorDivLocal(a, b int) int { return geom.FloorDiv(a, b) }
