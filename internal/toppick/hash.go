package toppick

import "unicode/utf16"

// IDHash is the rolling string hash used by the storefront: h = h*31 + c for
// every UTF-16 code unit of id. The arithmetic is done in int32 so it wraps
// with two's-complement overflow exactly like the browser implementation;
// widening to int64 would change every hash past a handful of characters.
func IDHash(id string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(id)) {
		h = h*31 + int32(c)
	}
	return h
}

// Jitter maps IDHash onto 0..10 as abs(h mod 11). Go's % truncates toward
// zero, so negative hashes give negative remainders before abs.
func Jitter(id string) int {
	r := IDHash(id) % 11
	if r < 0 {
		r = -r
	}
	return int(r)
}

// textLength counts UTF-16 code units, matching how description lengths are
// measured client side.
func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
