package uid

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// Uid returns a unique id. These ids consist of 32 bits from a
// cryptographically strong pseudo-random generator, resulting in a
// 8-character hexadecimal string. Sessions use them to tag their log events.
func Uid() string {
	id := make([]byte, 4)
	_, err := io.ReadFull(rand.Reader, id)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(id)
}
