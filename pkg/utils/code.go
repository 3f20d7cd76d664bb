package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

// CodeAlphabet omits look-alike characters (0/O, 1/I) so printed codes
// can be typed back by hand.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of a tracker's public scan code.
const CodeLength = 10

// GenerateCode returns a random code of CodeLength characters from CodeAlphabet.
func GenerateCode() (string, error) {
	return gonanoid.Generate(CodeAlphabet, CodeLength)
}
