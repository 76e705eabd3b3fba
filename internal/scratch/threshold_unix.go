//go:build !windows

package scratch

// AllocaThreshold is the byte size below which Get favors pool reuse over a
// fresh heap allocation, mirroring the stack-vs-heap tradeoff the original
// engine makes with a real alloca(). Unix-likes' generous default stack
// gives them a far roomier threshold than Windows.
const AllocaThreshold = 512 * 1024
