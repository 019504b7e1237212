package memcache

import (
	"github.com/memshard/memshard/hash2"
)

// ValidateKey checks that key can be sent in a text protocol command line
// and returns the key to send.  Keys longer than 250 bytes are folded into
// prefix + ":md5:" + hex digest of the whole key, which keeps them unique and
// stable (and therefore on the same shard).
func ValidateKey(key string) (string, error) {
	if key == "" {
		return "", newValidationError(key, "key cannot be blank")
	}

	for i := 0; i < len(key); i++ {
		char := key[i]
		if char == ' ' {
			return "", newValidationError(key, "space not allowed in key")
		}
		if char < 0x21 || char > 0x7e {
			return "", newValidationError(
				key,
				"only printable characters allowed in key")
		}
	}

	if len(key) > maxKeyLength {
		suffix := ":md5:" + hash2.Md5Hex(key)
		key = key[:maxKeyLength-len(suffix)] + suffix
	}

	return key, nil
}
