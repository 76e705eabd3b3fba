package compress

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

// xzCodec wraps github.com/ulikunitz/xz, the pack's second high-ratio
// compression dependency (brawer-wikidata-qrank), registered as an extra
// named codec available via compress.Get("xz").
type xzCodec struct{}

func newXzCodec() *xzCodec { return &xzCodec{} }

func (*xzCodec) Name() string { return "xz" }

func (*xzCodec) Compress(bpp int, src, dst []byte) (int, bool) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return 0, false
	}
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

func (*xzCodec) Decompress(bpp int, dst, src []byte) bool {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return false
	}
	n, _ := io.ReadFull(r, dst)
	return n == len(dst)
}
