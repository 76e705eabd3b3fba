package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// zlibCodec wraps klauspost/compress/zlib (a drop-in, faster deflate
// implementation) at a fixed compression level. "zlib" is registered as an
// alias for level 6, the package's historical default.
type zlibCodec struct {
	level int
	name  string
}

func newZlibCodec(level int) *zlibCodec {
	name := fmt.Sprintf("zlib%d", level)
	if level == 6 {
		name = "zlib"
	}
	return &zlibCodec{level: level, name: name}
}

func (c *zlibCodec) Name() string { return c.name }

func (c *zlibCodec) Compress(bpp int, src, dst []byte) (int, bool) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, c.level)
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

func (c *zlibCodec) Decompress(bpp int, dst, src []byte) bool {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return false
	}
	defer r.Close()
	n, _ := io.ReadFull(r, dst)
	return n == len(dst)
}
