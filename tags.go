package cbus

import "strings"

// tagAlphabet is the fixed ordered set of 20 single-byte confirmation tags
// the PCI recognises, in the order they are handed out.
const tagAlphabet = "hijklmnopqrstuvwxyzg"

func validTag(b byte) bool {
	return strings.IndexByte(tagAlphabet, b) >= 0
}
