// Package codes generates human-readable record codes of the form
// PREFIX-YYMMDD-NNN, where the date is the UTC generation date and NNN is a
// uniform random value in [0, 999].
package codes

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	Incident       = "INC"
	Maintenance    = "MNT"
	ResponsiveForm = "RF"
	Requisition    = "REQ"
)

const defaultAttempts = 5

// ErrExhausted is returned by Unique when every sampled candidate was taken.
var ErrExhausted = errors.New("no free code after retries")

// ExistsFunc reports whether code is already stored.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

type Generator struct {
	Now      func() time.Time
	Intn     func(n int) int
	Attempts int
}

func NewGenerator() *Generator {
	return &Generator{
		Now:      time.Now,
		Intn:     rand.IntN,
		Attempts: defaultAttempts,
	}
}

// Generate returns one candidate code. Codes are not unique on their own: two
// codes for the same prefix and day collide with probability 1/1000.
func (g *Generator) Generate(prefix string) string {
	now := g.Now().UTC()
	return fmt.Sprintf("%s-%s-%03d", prefix, now.Format("060102"), g.Intn(1000))
}

// Unique samples up to Attempts candidates and returns the first one exists
// reports as free. The store's unique constraint still decides at insert time.
func (g *Generator) Unique(ctx context.Context, prefix string, exists ExistsFunc) (string, error) {
	attempts := g.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code := g.Generate(prefix)
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%s: %w", prefix, ErrExhausted)
}
