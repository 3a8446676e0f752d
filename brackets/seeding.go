package brackets

import "math/bits"

// BracketSize returns the smallest power of two that fits n participants.
func BracketSize(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// RoundsFor returns the number of elimination rounds for n participants.
func RoundsFor(n int) int {
	return bits.Len(uint(BracketSize(n))) - 1
}

// SeedOrder returns the seed (1-based) placed at every position of a bracket of the
// given size. Seeds 1 and 2 can only meet in the final, and seed s meets size+1-s in round one.
func SeedOrder(size int) []int {
	order := []int{1}
	for n := 1; n < size; n *= 2 {
		next := make([]int, 0, n*2)
		for _, s := range order {
			next = append(next, s, 2*n+1-s)
		}
		order = next
	}
	return order
}

// seededSlots places participants (index 0 is seed 1) on bracket positions.
// Seeds above len(participants) are byes and stay nil.
func seededSlots(participants []int, size int) []*int {
	slots := make([]*int, size)
	for pos, seed := range SeedOrder(size) {
		if seed <= len(participants) {
			id := participants[seed-1]
			slots[pos] = &id
		}
	}
	return slots
}
