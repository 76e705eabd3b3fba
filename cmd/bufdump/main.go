// Command bufdump inspects a gflow-format tile buffer file: header fields,
// tile count, and (with -tile) a single tile's payload size.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/kestrelraster/tilestore/internal/gflow"
)

func main() {
	tileArg := flag.String("tile", "", "dump one tile, given as x,y,z")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: bufdump [-tile x,y,z] <file.gflow>\n")
		os.Exit(1)
	}
	path := flag.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	r, err := gflow.Open(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	h := r.Header
	desc := bytes.TrimRight(h.Description[:], "\x00")
	fmt.Printf("description: %q\n", desc)
	fmt.Printf("tile:        %dx%d, %d bpp\n", h.TileW, h.TileH, h.BPP)
	fmt.Printf("extent:      %dx%d at (%d,%d)\n", h.Width, h.Height, h.X, h.Y)
	fmt.Printf("tiles:       %d\n", len(r.Entries()))

	if *tileArg == "" {
		return
	}
	var x, y, z int32
	if _, err := fmt.Sscanf(*tileArg, "%d,%d,%d", &x, &y, &z); err != nil {
		fmt.Fprintf(os.Stderr, "Error: -tile wants x,y,z: %v\n", err)
		os.Exit(1)
	}
	for _, e := range r.Entries() {
		if e.X == x && e.Y == y && e.Z == z {
			fmt.Printf("tile (%d,%d,%d): %d bytes\n", e.X, e.Y, e.Z, len(e.Data))
			return
		}
	}
	fmt.Fprintf(os.Stderr, "tile (%d,%d,%d) not found\n", x, y, z)
	os.Exit(1)
}
