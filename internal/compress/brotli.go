package compress

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
)

// brotliCodec wraps github.com/andybalholm/brotli, a dependency the pack
// already pulls in for high-ratio byte-block compression (brawer-wikidata-qrank).
// Registered as an extra named codec beyond the spec's baseline set, and as
// the preferred backer of the "best" alias when it is available.
type brotliCodec struct{}

func newBrotliCodec() *brotliCodec { return &brotliCodec{} }

func (*brotliCodec) Name() string { return "brotli" }

func (*brotliCodec) Compress(bpp int, src, dst []byte) (int, bool) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err := w.Write(src); err != nil {
		return 0, false
	}
	if err := w.Close(); err != nil {
		return 0, false
	}
	if buf.Len() > len(dst) {
		return 0, false
	}
	copy(dst, buf.Bytes())
	return buf.Len(), true
}

func (*brotliCodec) Decompress(bpp int, dst, src []byte) bool {
	r := brotli.NewReader(bytes.NewReader(src))
	n, _ := io.ReadFull(r, dst)
	return n == len(dst)
}
