package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const DefaultTrackingPrefix = "MYECOM"

// TrackingGenerator produces codes shaped PREFIX-YY-NNNNN where YY is the
// two-digit year and NNNNN a random number in [10000, 99999]. Codes are not
// guaranteed unique; the orders table enforces that and callers retry.
type TrackingGenerator struct {
	prefix string
	now    func() time.Time
	intN   func(n int) int
}

func NewTrackingGenerator(prefix string) *TrackingGenerator {
	if prefix == "" {
		prefix = DefaultTrackingPrefix
	}
	return &TrackingGenerator{
		prefix: prefix,
		now:    time.Now,
		intN:   rand.IntN,
	}
}

func (g *TrackingGenerator) Next() string {
	return fmt.Sprintf("%s-%02d-%05d", g.prefix, g.now().Year()%100, 10000+g.intN(90000))
}
