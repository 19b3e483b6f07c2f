// Package prompts holds the Blitz challenge prompt pool.
package prompts

import "math/rand"

// Pool is the fixed set of Blitz prompts shown to groups when a round
// is created or rolled over.
var Pool = []string{
	"Show us your current view",
	"Snap your shoes right now",
	"Closest blue object to you",
	"What's in your fridge?",
	"Your current drink",
	"Something that makes you smile",
	"Your workspace chaos",
	"Mirror selfie energy",
	"Pet or plant check",
	"What you're wearing today",
	"Sky outside your window",
	"Your favorite snack",
	"Something unexpected nearby",
	"Your go-to spot right now",
	"Weirdest thing in arm's reach",
	"Current mood in one photo",
	"Last thing you ate",
	"Your desk situation",
	"Something orange around you",
	"Your current vibe",
	"Show us your hands",
	"What's on your wall?",
	"Your phone screen",
	"Something you're grateful for",
	"Current lighting check",
	"Your keys or wallet",
	"Something nostalgic",
	"A silly face",
	"Your bag contents",
	"Shadow selfie",
	"Reflection photo",
	"Something tiny",
	"Your recent purchase",
	"Floor check",
	"Ceiling perspective",
	"Your favorite texture",
	"Something shiny",
	"What's behind you?",
	"Your current temp check",
	"Random page from a book",
}

// Random draws a prompt uniformly at random from the pool, excluding
// exclude so a rolled-over round never repeats its predecessor's
// prompt back to back. Pass the empty string to draw from the full
// pool.
func Random(exclude string) string {
	available := Pool
	if exclude != "" {
		filtered := make([]string, 0, len(Pool))
		for _, p := range Pool {
			if p != exclude {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) > 0 {
			available = filtered
		}
	}
	return available[rand.Intn(len(available))]
}
