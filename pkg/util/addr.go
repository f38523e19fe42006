package util

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// EIP55 formats a raw 20-byte address with EIP-55 mixed-case checksum, for
// human-readable logging and reports. go-ethereum's common.Address.Hex()
// does the same for a common.Address; this takes a raw byte slice.
func EIP55(addr20 []byte) string {
	lower := hex.EncodeToString(addr20)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := h.Sum(nil)

	out := make([]byte, 2+len(lower))
	copy(out, "0x")
	for i, c := range []byte(lower) {
		if c >= '0' && c <= '9' {
			out[2+i] = c
			continue
		}
		var nibble byte
		if i%2 == 0 {
			nibble = (hash[i>>1] >> 4) & 0x0f
		} else {
			nibble = hash[i>>1] & 0x0f
		}
		if nibble >= 8 {
			out[2+i] = byte(strings.ToUpper(string(c))[0])
		} else {
			out[2+i] = c
		}
	}
	return string(out)
}
