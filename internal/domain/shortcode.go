package domain

import (
	"context"
	"crypto/rand"
	"fmt"
)

const (
	shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	shortcodeLength   = 8
)

// NewShortcode returns a random 8-character uppercase alphanumeric code.
// The space is large enough (36^8) that collisions are rare; callers that
// persist codes should still loop through GenerateShortcode.
func NewShortcode() (string, error) {
	buf := make([]byte, shortcodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("shortcode: %w", err)
	}
	for i, b := range buf {
		buf[i] = shortcodeAlphabet[int(b)%len(shortcodeAlphabet)]
	}
	return string(buf), nil
}

// GenerateShortcode draws codes until exists reports one unused. There is no
// retry cap: with the collision probability involved the loop terminates in
// one or two iterations in practice, and a cap would only trade an
// astronomically unlikely long loop for a spurious error.
func GenerateShortcode(ctx context.Context, exists func(ctx context.Context, code string) (bool, error)) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := NewShortcode()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}
