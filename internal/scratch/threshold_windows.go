//go:build windows

package scratch

// AllocaThreshold is the byte size below which Get favors pool reuse over a
// fresh heap allocation, mirroring the stack-vs-heap tradeoff the original
// engine makes with a real alloca(). Windows's much smaller reliably
// available stack space gives it a tighter threshold than Unix-likes.
const AllocaThreshold = 8 * 1024
