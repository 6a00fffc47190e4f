package common

import (
	"crypto/sha256"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	NA       = "N/A"
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var snowflakeNode *snowflake.Node

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(rand.New(rand.NewSource(time.Now().UnixNano())).Int63n(1023))
	if err != nil {
		panic(err)
	}
}

// UUIDint64 generates a snowflake int64 ID
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUID generates a snowflake ID string
func UUID() string {
	return snowflakeNode.Generate().String()
}

// Sha256HashWithSalt computes a salted sha256 hex digest
func Sha256HashWithSalt(src string, salt string) string {
	h := sha256.New()
	h.Write([]byte(src + salt))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// GetSecretSalt reads the password salt from the environment, with a
// development fallback.
func GetSecretSalt() string {
	salt := os.Getenv("OSHIRO_SECRET_SALT")
	if salt == "" {
		return "oshiro-dev-salt"
	}
	return salt
}

// GenerateOTP returns a random numeric code of the given length.
func GenerateOTP(length int) string {
	if length <= 0 {
		length = 6
	}
	const digits = "0123456789"
	var sb strings.Builder
	for i := 0; i < length; i++ {
		sb.WriteByte(digits[rand.Intn(len(digits))])
	}
	return sb.String()
}

// InSlice reports whether v is present in the slice
func InSlice(v string, sl []string) bool {
	for _, vv := range sl {
		if vv == v {
			return true
		}
	}
	return false
}

// IsEmptyOrNA checks for empty or placeholder values
func IsEmptyOrNA(val string) bool {
	return val == "" || val == NA
}
