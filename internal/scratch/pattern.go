package scratch

// PatternMemset fills dst with repeating copies of pattern, used by the
// buffer abyss BLACK/WHITE fill paths (and any other fixed-pixel-value
// fill) to avoid a per-pixel loop at the call site. len(dst) need not be a
// multiple of len(pattern); a trailing partial copy is allowed.
func PatternMemset(dst, pattern []byte) {
	if len(pattern) == 0 || len(dst) == 0 {
		return
	}
	n := copy(dst, pattern)
	for n < len(dst) {
		n += copy(dst[n:], dst[:n])
	}
}
