package markov

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// DefaultMaxTokens bounds how many units one generation renders. The walk
// stops with probability 1/2 at every boundary, so the bound is only reached
// on pathological chains; it exists to prevent hangs.
const DefaultMaxTokens = 10000

// Source picks a uniform integer in [0, n). *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Generator samples messages from a Chain.
type Generator struct {
	src       Source
	maxTokens int
}

type GeneratorConfig struct {
	Source    Source // default: math/rand/v2 global source
	MaxTokens int    // default: DefaultMaxTokens
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Source == nil {
		cfg.Source = globalSource{}
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Generator{src: cfg.Source, maxTokens: cfg.MaxTokens}
}

// Generate walks the chain from a random first-word and renders the result.
// At every boundary a fair coin decides between starting a new sentence and
// stopping.
func (g *Generator) Generate(chain *Chain) (string, error) {
	out, _, err := g.generate(chain)
	return out, err
}

// GenerateCounted is Generate that also reports how many units were rendered.
func (g *Generator) GenerateCounted(chain *Chain) (string, int, error) {
	return g.generate(chain)
}

func (g *Generator) generate(chain *Chain) (string, int, error) {
	if chain == nil || chain.Empty() {
		return "", 0, ErrEmptyModel
	}

	var r renderer
	current := chain.firstWord(g.src)
	r.write(current)

	for r.count < g.maxTokens {
		next, ok := chain.next(current, g.src)
		if !ok {
			return "", r.count, fmt.Errorf("%w: no successors for %s", ErrBrokenChain, current)
		}
		if next.IsBoundary() {
			if g.src.IntN(2) == 0 {
				break
			}
			next = chain.firstWord(g.src)
		}
		r.write(next)
		current = next
	}
	return r.String(), r.count, nil
}

// renderer joins tokens: words get one leading space, terminators none.
type renderer struct {
	sb    strings.Builder
	count int
}

func (r *renderer) write(t Token) {
	if t.IsBoundary() {
		return
	}
	if t.Kind == KindWord && r.sb.Len() > 0 {
		r.sb.WriteByte(' ')
	}
	r.sb.WriteString(t.Text)
	r.count++
}

func (r *renderer) String() string { return r.sb.String() }
