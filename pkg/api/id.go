package api

import (
	"crypto/rand"
	"math/big"
	"regexp"

	"github.com/google/uuid"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	requestIDPrefix    = "gen_"
	connectionIDPrefix = "conn_"
)

var (
	generatedRequestIDPattern = regexp.MustCompile(`^gen_[a-zA-Z0-9]{24}$`)
)

// NewRequestID generates a request id with the "gen_" prefix followed by
// 24 cryptographically random alphanumeric characters. Clients normally
// supply their own ids; this is used by the bundled client when none is given.
func NewRequestID() string {
	return requestIDPrefix + randomAlphanumeric(idLength)
}

// IsGeneratedRequestID reports whether id has the shape produced by NewRequestID.
func IsGeneratedRequestID(id string) bool {
	return generatedRequestIDPattern.MatchString(id)
}

// NewConnectionID returns an identifier for one transport connection.
func NewConnectionID() string {
	return connectionIDPrefix + uuid.NewString()
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
