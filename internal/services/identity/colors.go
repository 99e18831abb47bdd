package identity

import (
	"log/slog"
	"sync"

	"diceboard/internal/dependencies/random"
)

// Palette is the fixed set of visually distinct token colors. One color per
// concurrently active player; the pool refills (with a warning) if more
// players than colors ever show up at once.
var Palette = []string{
	"#FF5733", "#33FF57", "#3357FF", "#FF33FF", "#33FFFF",
	"#FF8333", "#2E5614", "#8333FF", "#FF3383", "#4B33FF",
}

// ColorPool hands out palette colors without replacement
type ColorPool struct {
	mu        sync.Mutex
	random    random.Random
	logger    *slog.Logger
	available []string
}

// NewColorPool creates a pool with the full palette available
func NewColorPool(rnd random.Random, logger *slog.Logger) *ColorPool {
	available := make([]string, len(Palette))
	copy(available, Palette)
	return &ColorPool{
		random:    rnd,
		logger:    logger,
		available: available,
	}
}

// Acquire draws a random color from the pool. When the pool is exhausted it
// is refilled, so colors may then repeat across players.
func (p *ColorPool) Acquire() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.available) == 0 {
		p.logger.Warn("color palette exhausted, refilling; duplicates possible")
		p.available = make([]string, len(Palette))
		copy(p.available, Palette)
	}

	i := p.random.Intn(len(p.available))
	color := p.available[i]
	p.available = append(p.available[:i], p.available[i+1:]...)
	return color
}

// Release returns a color to the pool. Releasing a color that is already
// available is a no-op.
func (p *ColorPool) Release(color string) {
	if color == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.available {
		if c == color {
			return
		}
	}
	p.available = append(p.available, color)
}

// AvailableCount returns how many colors remain in the pool
func (p *ColorPool) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}
