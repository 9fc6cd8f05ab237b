package testutil

import (
	"fmt"
	"math/rand"
)

// RandomSwitch returns a function that picks an index with the given weights.
//
// Ex. RandomSwitch(2, 3, 5) will return a function that will output:
//   - `0` 20% of the time
//   - `1` 30% of the time
//   - `2` 50% of the time
func RandomSwitch(weights ...int) func(rndm *rand.Rand) int {
	if len(weights) == 0 {
		panic("a random switch must have at least 1 weight")
	}

	var sum int
	for _, w := range weights {
		if w <= 0 {
			panic(fmt.Sprintf("weights must be positive, got %d", w))
		}
		sum += w
	}

	return func(rndm *rand.Rand) int {
		value := rndm.Intn(sum)
		threshold := 0
		for i, w := range weights {
			threshold += w
			if value < threshold {
				return i
			}
		}
		panic(fmt.Sprintf("random value out of bounds: %d", value))
	}
}

// RandomPrices returns `n` prices (in cents) that mostly stay the same,
// sometimes change and sometimes go back to a price seen before.
func RandomPrices(rndm *rand.Rand, n int) []int64 {
	next := RandomSwitch(6, 3, 1)
	prices := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			prices = append(prices, 100+rndm.Int63n(10_000))
			continue
		}
		switch next(rndm) {
		case 0:
			prices = append(prices, prices[i-1])
		case 1:
			prices = append(prices, 100+rndm.Int63n(10_000))
		default:
			prices = append(prices, prices[rndm.Intn(i)])
		}
	}
	return prices
}
