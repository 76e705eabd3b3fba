// Package compress implements the tile-storage engine's named, lossless
// byte-block compression codecs and the registry that dispatches by name.
//
// Every codec is bound-safe: Compress must never write past len(dst), and
// returns ok=false exactly when the true compressed size exceeds len(dst).
// Decompress reverses Compress exactly for any codec/format/pixel-block
// combination (spec.md §8 property 3).
package compress

// Codec is the compression interface: compress(fmt, src, dst) and
// decompress(fmt, dst, src) from spec.md §4.3. bpp stands in for fmt (the
// only part of the pixel format the byte-block codecs need is its
// bytes-per-pixel, per the original gegl-compression-rle.c, which takes a
// Babl format purely to call babl_format_get_bytes_per_pixel on it); codecs
// that don't need pixel structure (nop, zlib, brotli, xz) simply ignore it.
type Codec interface {
	Name() string
	// Compress writes a compressed encoding of src into dst, returning the
	// number of bytes written and true on success. It returns false (without
	// overrunning dst) if dst is too small to hold the compressed output.
	// bpp is the pixel format's bytes-per-pixel; len(src) must be a multiple
	// of it.
	Compress(bpp int, src, dst []byte) (n int, ok bool)
	// Decompress reverses Compress, writing exactly len(dst) decoded bytes
	// from src into dst. Returns false on malformed input.
	Decompress(bpp int, dst, src []byte) bool
}

var registry = map[string]Codec{}
var aliasOrder = map[string][]string{}

func register(c Codec) {
	registry[c.Name()] = c
}

// Get returns a registered codec by name, or nil if unknown.
func Get(name string) Codec {
	return registry[name]
}

// Names returns all registered codec names, including aliases.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}

func init() {
	register(nopCodec{})
	register(newRLECodec(1))
	register(newRLECodec(2))
	register(newRLECodec(4))
	register(newRLECodec(8))
	for lvl := 1; lvl <= 9; lvl++ {
		register(newZlibCodec(lvl))
	}
	// newZlibCodec(6) is named "zlib" (the default level), so the loop above
	// registered level 6 only under that name; register it as "zlib6" too.
	register(&zlibCodec{level: 6, name: "zlib6"})
	register(newBrotliCodec())
	register(newXzCodec())

	// Virtual aliases, resolved against an explicit candidate slice per
	// DESIGN NOTES §"Global variadic alias registration" — no variadic
	// helper, just a plain []string tried in order.
	registerAlias("fast", []string{"rle8", "zlib1", "nop"})
	registerAlias("balanced", []string{"rle4", "zlib", "nop"})
	registerAlias("best", []string{"zlib9", "brotli", "rle1", "nop"})
}

func registerAlias(alias string, candidates []string) {
	aliasOrder[alias] = candidates
	for _, name := range candidates {
		if c := registry[name]; c != nil {
			registry[alias] = c
			return
		}
	}
}
