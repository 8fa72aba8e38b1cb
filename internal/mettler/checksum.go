package mettler

import (
	"fmt"
	"strings"
)

// Checksum validates the two-hex-digit trailer that follows each frame
// body. The exact algorithm varies between scale firmware revisions, so
// it is a swappable strategy; validate the chosen strategy against real
// sample frames from the equipment before production use.
type Checksum interface {
	// Verify reports whether trailer matches body. The trailer is always
	// exactly two hex digits; case is not significant.
	Verify(body []byte, trailer []byte) bool
}

// SumMod256 is the default strategy: the byte sum of the body modulo 256,
// rendered as two upper-case hex digits. This matches the trailer the
// Mettler conveyor line emits in continuous output mode.
type SumMod256 struct{}

// Verify reports whether trailer is the sum-mod-256 trailer for body.
func (SumMod256) Verify(body, trailer []byte) bool {
	return strings.EqualFold(Trailer(body), string(trailer))
}

// Trailer computes the sum-mod-256 trailer for body.
func Trailer(body []byte) string {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return fmt.Sprintf("%02X", sum)
}

// AnyChecksum accepts every syntactically valid trailer. Use it for
// equipment whose trailer algorithm has not been characterized yet.
type AnyChecksum struct{}

// Verify always reports true.
func (AnyChecksum) Verify(body, trailer []byte) bool { return true }
