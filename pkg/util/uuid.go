package util

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
)

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// CompileID returns a unique id labeling one compile invocation in logs.
func CompileID() string {
	return uuid.NewString()
}
