package hash2

import (
	"crypto/md5"
	"encoding/hex"
)

// Md5Hex returns the lowercase hex encoding of md5(s), always 32 bytes long.
//
// WARNING: Do NOT Use MD5 in security contexts (defending against
// intentional manipuations of data from untrusted sources);
// use only for checking data integrity or deriving stable names.
func Md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
