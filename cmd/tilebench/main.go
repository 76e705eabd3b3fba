// Command tilebench exercises a buffer's read, write, and copy paths over a
// synthetic gradient raster and reports throughput, optionally under a CPU
// profile.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/kestrelraster/tilestore/internal/buffer"
	"github.com/kestrelraster/tilestore/internal/geom"
	"github.com/kestrelraster/tilestore/internal/pixfmt"
	"github.com/kestrelraster/tilestore/internal/storage"
)

func main() {
	width := flag.Int("width", 2048, "raster width")
	height := flag.Int("height", 2048, "raster height")
	tileSize := flag.Int("tile", 64, "tile width/height")
	iterations := flag.Int("iterations", 4, "read+write passes")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatalf("create cpu profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("start cpu profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	extent := geom.Rect{X: 0, Y: 0, W: *width, H: *height}
	st := storage.New(storage.Config{
		TileW:  *tileSize,
		TileH:  *tileSize,
		Format: pixfmt.RGBA8,
	})
	b := buffer.New(st, extent)

	rowStride := extent.W * pixfmt.RGBA8.BytesPerPixel()
	src := make([]byte, rowStride*extent.H)
	for y := 0; y < extent.H; y++ {
		for x := 0; x < extent.W; x++ {
			off := y*rowStride + x*4
			src[off+0] = byte(x)
			src[off+1] = byte(y)
			src[off+2] = byte(x ^ y)
			src[off+3] = 255
		}
	}
	dst := make([]byte, len(src))

	log.Printf("tilebench: %dx%d raster, %dx%d tiles, %d iterations", *width, *height, *tileSize, *tileSize, *iterations)

	for i := 0; i < *iterations; i++ {
		start := time.Now()
		if err := b.Set(extent, 0, pixfmt.RGBA8, src, rowStride); err != nil {
			log.Fatalf("set: %v", err)
		}
		writeElapsed := time.Since(start)

		start = time.Now()
		if err := b.Get(extent, 1.0, pixfmt.RGBA8, dst, rowStride, buffer.AbyssNone, ""); err != nil {
			log.Fatalf("get: %v", err)
		}
		readElapsed := time.Since(start)

		fmt.Printf("pass %d: write %v (%.1f MB/s), read %v (%.1f MB/s)\n",
			i, writeElapsed, mbPerSec(len(src), writeElapsed),
			readElapsed, mbPerSec(len(dst), readElapsed))
	}

	dup := b.Dup()
	start := time.Now()
	if err := b.Copy(extent, dup, extent); err != nil {
		log.Fatalf("copy: %v", err)
	}
	fmt.Printf("copy (aligned, COW): %v\n", time.Since(start))
}

func mbPerSec(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / 1e6 / d.Seconds()
}
