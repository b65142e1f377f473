package codes

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"
)

func fixedGenerator(values ...int) *Generator {
	i := 0
	return &Generator{
		Now: func() time.Time {
			return time.Date(2024, 7, 5, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*3600))
		},
		Intn: func(n int) int {
			v := values[i%len(values)]
			i++
			return v
		},
		Attempts: 3,
	}
}

func TestGenerateUsesUTCDateAndPadding(t *testing.T) {
	g := fixedGenerator(7)
	// 23:30 at UTC-5 is already the 6th in UTC.
	if got := g.Generate(Incident); got != "INC-240706-007" {
		t.Fatalf("code = %q", got)
	}
}

func TestGenerateShape(t *testing.T) {
	g := NewGenerator()
	re := regexp.MustCompile(`^MNT-\d{6}-\d{3}$`)
	for i := 0; i < 200; i++ {
		if code := g.Generate(Maintenance); !re.MatchString(code) {
			t.Fatalf("bad code %q", code)
		}
	}
}

func TestUniqueResamplesOnCollision(t *testing.T) {
	g := fixedGenerator(1, 1, 42)
	taken := map[string]bool{"RF-240706-001": true}
	calls := 0
	code, err := g.Unique(context.Background(), ResponsiveForm, func(ctx context.Context, code string) (bool, error) {
		calls++
		return taken[code], nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if code != "RF-240706-042" || calls != 3 {
		t.Fatalf("code %q after %d calls", code, calls)
	}
}

func TestUniqueGivesUpAfterAttempts(t *testing.T) {
	g := fixedGenerator(5)
	calls := 0
	_, err := g.Unique(context.Background(), Requisition, func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestUniquePropagatesLookupError(t *testing.T) {
	g := fixedGenerator(5)
	boom := errors.New("db down")
	_, err := g.Unique(context.Background(), Incident, func(ctx context.Context, code string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
