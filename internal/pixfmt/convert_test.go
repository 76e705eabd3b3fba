package pixfmt

import "testing"

func TestConvertPixelsIdentity(t *testing.T) {
	src := []byte{10, 20, 30, 255, 1, 2, 3, 4}
	dst := make([]byte, len(src))
	if err := ConvertPixels(RGBA8, RGBA8, src, dst, 2); err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if src[i] != dst[i] {
			t.Fatalf("identity convert mismatch at %d: %d != %d", i, src[i], dst[i])
		}
	}
}

func TestConvertPixelsRoundTrip(t *testing.T) {
	src := []byte{100, 150, 200, 255}
	mid := make([]byte, 8) // RGBAU16
	back := make([]byte, 4)

	if err := ConvertPixels(RGBA8, RGBAU16, src, mid, 1); err != nil {
		t.Fatal(err)
	}
	if err := ConvertPixels(RGBAU16, RGBA8, mid, back, 1); err != nil {
		t.Fatal(err)
	}
	for i := range src {
		diff := int(src[i]) - int(back[i])
		if diff < -1 || diff > 1 {
			t.Errorf("round trip byte %d: %d != %d", i, src[i], back[i])
		}
	}
}

func TestConvertRowsShape(t *testing.T) {
	w, h := 3, 2
	src := make([]byte, w*h*4)
	for i := range src {
		src[i] = byte(i)
	}
	dst := make([]byte, w*h*4)
	if err := ConvertRows(RGBA8, RGBA8, src, w*4, dst, w*4, w, h); err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if src[i] != dst[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}
}

func TestConvertRowsTooShort(t *testing.T) {
	err := ConvertRows(RGBA8, RGBA8, make([]byte, 2), 4, make([]byte, 16), 4, 4, 4)
	if err == nil {
		t.Fatal("expected error for short src")
	}
}

func TestGrayExpandsToRGBA(t *testing.T) {
	src := []byte{128}
	dst := make([]byte, 4)
	if err := ConvertPixels(Gray8, RGBA8, src, dst, 1); err != nil {
		t.Fatal(err)
	}
	if dst[0] != 128 || dst[1] != 128 || dst[2] != 128 || dst[3] != 255 {
		t.Errorf("gray->rgba = %v", dst)
	}
}
