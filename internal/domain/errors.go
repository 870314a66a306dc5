package domain

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUserAborted signing or approval was declined by the user.
	ErrUserAborted = errors.New("user aborted")
	// ErrAccountNotFound address has no exchange account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrKeyMismatch locally derived key pair differs from the exchange record.
	ErrKeyMismatch = errors.New("derived key pair does not match exchange account")
)

// IsUserAbort checks whether err is a declined signature or approval.
func IsUserAbort(err error) bool {
	return errors.Is(err, ErrUserAborted)
}

// IsNotFound checks whether err is an account lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// equalHex compares two hex numbers by value, so case and zero padding do not matter.
func equalHex(a, b string) bool {
	x, okA := parseHex(a)
	y, okB := parseHex(b)
	if !okA || !okB {
		return strings.EqualFold(a, b)
	}
	return x.Cmp(y) == 0
}

func parseHex(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 16)
}
