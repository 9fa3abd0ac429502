package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type Activity int

const (
	PaceMove Activity = iota
	PaceWalk
	PaceBattleStep
	PaceBattleEnd
	PaceFish
)

func (a Activity) String() string {
	switch a {
	case PaceWalk:
		return "walk"
	case PaceBattleStep:
		return "battlestep"
	case PaceBattleEnd:
		return "battleend"
	case PaceFish:
		return "fish"
	default:
		return "move"
	}
}

// Odds of a long idle break on any paced sleep other than fishing and walking.
const breakOdds = 1000

// Pacer produces human-like delays. All randomness in the bot goes through it
// so tests can seed one source.
type Pacer struct {
	// Scale multiplies every delay. Zero means 1.
	Scale float64
	// OnBreak is told about a long idle break before it starts.
	OnBreak func(d time.Duration)

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPacer(rng *rand.Rand) *Pacer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pacer{rng: rng}
}

// Intn is a locked rand.Intn.
func (p *Pacer) Intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

func (p *Pacer) uniform(lo, hi float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + p.rng.Float64()*(hi-lo)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Delay is the base pause for an activity. speed is the rules speed where 3 is
// normal; higher is faster.
func (p *Pacer) Delay(a Activity, speed float64, onBike bool) time.Duration {
	factor := speed / 3.0
	if factor <= 0 {
		factor = 1
	}
	var s float64
	switch a {
	case PaceMove, PaceWalk:
		if onBike {
			s = p.uniform(0.155, 0.170)
		} else {
			s = p.uniform(0.280, 0.310)
		}
	case PaceBattleStep:
		s = p.uniform(3.1, 5.85) / factor
	case PaceBattleEnd:
		s = p.uniform(1.9, 3.2) / factor
	case PaceFish:
		s = p.uniform(0.5, 1.7) / factor
	}
	return p.scaled(seconds(s))
}

func (p *Pacer) scaled(d time.Duration) time.Duration {
	if p.Scale <= 0 {
		return d
	}
	return time.Duration(float64(d) * p.Scale)
}

// Sleep pauses for the activity delay, occasionally preceded by a long break.
// It returns early with ctx's error when ctx is cancelled.
func (p *Pacer) Sleep(ctx context.Context, a Activity, speed float64, onBike bool) error {
	if a != PaceFish && a != PaceWalk && p.Intn(breakOdds) == 0 {
		pause := p.scaled(time.Duration(18+p.Intn(68)) * time.Second)
		if p.OnBreak != nil {
			p.OnBreak(pause)
		}
		if err := sleepCtx(ctx, pause); err != nil {
			return err
		}
	}
	return sleepCtx(ctx, p.Delay(a, speed, onBike))
}

// Wait is an unjittered pause honouring Scale.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, p.scaled(d))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
