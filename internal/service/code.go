package service

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	orderCodePrefix = "ORD"
	swapCodePrefix  = "SWAP"
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLen   = 4
	maxCodeAttempts = 5
)

// newCode builds PREFIX + YYYYMMDD + 4 random alphanumerics, e.g. ORD20250101ABCD.
func newCode(prefix string, at time.Time) (string, error) {
	buf := make([]byte, 0, len(prefix)+8+codeSuffixLen)
	buf = append(buf, prefix...)
	buf = at.UTC().AppendFormat(buf, "20060102")
	n := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeSuffixLen; i++ {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		buf = append(buf, codeAlphabet[idx.Int64()])
	}
	return string(buf), nil
}

// uniqueCode draws codes until exists reports a free one.
func uniqueCode(prefix string, at time.Time, exists func(string) (bool, error)) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := newCode(prefix, at)
		if err != nil {
			return "", err
		}
		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrConcurrencyConflict
}
