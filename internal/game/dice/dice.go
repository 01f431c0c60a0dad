// Package dice provides the randomness abstraction used by the battle and AI
// packages, together with the helpers that turn raw draws into game rolls.
package dice

// Source is the randomness provider for every roll in the game.
//
// Implementations need not be safe for concurrent use; a battle session is
// driven from a single goroutine.
type Source interface {
	// Float64 returns a pseudo-random number in [0, 1).
	Float64() float64
}

// Chance draws once from src and reports whether the draw fell below p.
//
// Precondition: src must be non-nil.
// Postcondition: Exactly one value is consumed from src.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Spread returns min + draw*width, the multiplicative jitter used by the
// damage formulas (e.g. 0.9 + rand*0.2).
//
// Precondition: src must be non-nil; width >= 0.
// Postcondition: Returns a value in [min, min+width).
func Spread(src Source, min, width float64) float64 {
	return min + src.Float64()*width
}
