package storage

import (
	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/tilepkg"
)

// zoom synthesizes level-z (z >= 1) tiles on demand from the four
// level-(z-1) children occupying its quadrants, by 2x2 box downscale.
// Grounded on the teacher's downsampleTile/downsampleQuadrant family
// (internal/tile/downsample.go, internal/tile/zoom.go), generalized from a
// fixed RGBA8 image.RGBA representation to any registered pixfmt.Format via
// pixfmt.Average.
type zoom struct {
	tileW, tileH int
	format       pixfmt.Format
}

func newZoom(tileW, tileH int, format pixfmt.Format) *zoom {
	return &zoom{tileW: tileW, tileH: tileH, format: format}
}

// synthesize builds tile (x, y, z) from the 4 children at z-1, fetched
// through fetchChild (which routes back through the owning TileStorage's
// cache so a child already resident is never re-synthesized).
func (z *zoom) synthesize(x, y, level int32, fetchChild func(cx, cy, cz int32) (*tilepkg.Tile, error)) (*tilepkg.Tile, error) {
	childZ := level - 1
	topLeft, err := fetchChild(2*x, 2*y, childZ)
	if err != nil {
		return nil, err
	}
	topRight, err := fetchChild(2*x+1, 2*y, childZ)
	if err != nil {
		return nil, err
	}
	bottomLeft, err := fetchChild(2*x, 2*y+1, childZ)
	if err != nil {
		return nil, err
	}
	bottomRight, err := fetchChild(2*x+1, 2*y+1, childZ)
	if err != nil {
		return nil, err
	}

	dst := tilepkg.New(z.tileW * z.tileH * z.format.BytesPerPixel())
	dst.Lock()
	defer dst.UnlockNoVoid()

	children := [4]*tilepkg.Tile{topLeft, topRight, bottomLeft, bottomRight}
	half := z.tileW / 2
	bpp := z.format.BytesPerPixel()
	dstPix := dst.Data()
	dstStride := z.tileW * bpp

	offsets := [4][2]int{{0, 0}, {half, 0}, {0, half}, {half, half}}
	for i, child := range children {
		if child == nil {
			continue
		}
		child.ReadLock()
		z.downsampleQuadrant(dstPix, dstStride, offsets[i][0], offsets[i][1], half, child.Data())
		child.ReadUnlock()
	}
	return dst, nil
}

// downsampleQuadrant averages each 2x2 block of a full-size (tileW x tileH)
// child into a half x half region of dst starting at (offX, offY).
func (z *zoom) downsampleQuadrant(dstPix []byte, dstStride, offX, offY, half int, srcPix []byte) {
	bpp := z.format.BytesPerPixel()
	srcStride := z.tileW * bpp
	for dy := 0; dy < half; dy++ {
		sy := dy * 2
		srcRow0 := sy * srcStride
		srcRow1 := srcRow0 + srcStride
		if sy+1 >= z.tileH {
			srcRow1 = srcRow0
		}
		dstRow := (offY + dy) * dstStride
		for dx := 0; dx < half; dx++ {
			sx := dx * 2
			sx1 := sx + 1
			if sx1 >= z.tileW {
				sx1 = sx
			}
			p00 := srcPix[srcRow0+sx*bpp : srcRow0+sx*bpp+bpp]
			p10 := srcPix[srcRow0+sx1*bpp : srcRow0+sx1*bpp+bpp]
			p01 := srcPix[srcRow1+sx*bpp : srcRow1+sx*bpp+bpp]
			p11 := srcPix[srcRow1+sx1*bpp : srcRow1+sx1*bpp+bpp]
			dstOff := dstRow + (offX+dx)*bpp
			pixfmt.Average(z.format, [][]byte{p00, p10, p01, p11}, dstPix[dstOff:dstOff+bpp])
		}
	}
}
