// Package invite generates group invite codes.
package invite

import "math/rand"

const (
	codeLength = 8
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Generator produces invite codes from an injected random source, keeping
// code generation deterministic under test.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator backed by the given source.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// Code returns a new 8-character uppercase alphanumeric invite code.
// Uniqueness is enforced by the store's unique index, not here; callers
// retry on collision.
func (g *Generator) Code() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = alphabet[g.rng.Intn(len(alphabet))]
	}
	return string(buf)
}
