package random

import (
	"crypto/rand"
	"math/big"
)

// Code alphabet drops the ambiguous 0/O and 1/I pairs so link codes
// survive being read aloud over voice chat.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func Code(length int) string {
	if length <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = codeAlphabet[0]
			continue
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out)
}
