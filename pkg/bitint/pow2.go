// SPDX-License-Identifier: MIT

// Package bitint holds the power-of-two helpers behind frame size checks.
// Analysis frames and FFT lengths must be powers of two; Log2 gives the
// recursion depth of a radix-2 transform (Log2(4096) == 12).
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size, or 1 for
// size <= 0.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the base-2 logarithm of a power of two, or -1 when n is
// not a power of two.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
