// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package namegen

import (
	"math/rand/v2"
	"sync"
)

var adjectives = []string{
	"Agile", "Innovative", "Dynamic", "Strategic", "Creative",
	"Collaborative", "Resilient", "Adaptive", "Visionary", "Proactive",
	"Energetic", "Transformative", "Efficient", "Flexible", "Resourceful",
	"Brilliant", "Empowered", "Synergistic", "Harmonious", "Pioneering",
}

var activities = []string{
	"Planning", "Brainstorming", "Designing", "Developing", "Strategizing",
	"Innovating", "Creating", "Building", "Transforming", "Revolutionizing",
	"Reimagining", "Crafting", "Engineering", "Architecting", "Constructing",
	"Launching", "Deploying", "Implementing",
}

var objects = []string{
	"Roadmap", "Sprint", "Project", "Product", "Solution",
	"Framework", "System", "Platform", "Initiative", "Strategy",
	"Vision", "Workflow", "Process", "Experience", "Interface",
	"Application", "Service", "Ecosystem", "Infrastructure", "Prototype",
}

var challenges = []string{
	"Challenges", "Obstacles", "Hurdles", "Bottlenecks", "Blockers",
	"Constraints", "Limitations", "Barriers", "Complexities", "Difficulties",
	"Problems", "Issues", "Roadblocks", "Setbacks",
}

var outcomes = []string{
	"Success", "Victory", "Achievement", "Breakthrough", "Milestone",
	"Accomplishment", "Triumph", "Progress", "Advancement", "Innovation",
	"Improvement", "Enhancement", "Optimization", "Growth",
}

var funElements = []string{
	"Laughter", "Celebration", "Joy", "Excitement", "Energy",
	"Enthusiasm", "Creativity", "Inspiration", "Collaboration", "Teamwork",
	"Harmony", "Synergy", "Camaraderie", "Spirit",
}

var officeItems = []string{
	"Whiteboard", "Coffee", "Sticky Notes", "Meeting Room", "Desk",
	"Chair", "Monitor", "Keyboard", "Mouse", "Notebook",
	"Pen", "Marker", "Calendar", "Laptop", "Headphones",
}

// Generator produces topic names. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a generator seeded from the runtime's random source
func New() *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a generator with a fixed seed, for reproducible names in tests
func NewSeeded(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (g *Generator) pick(words []string) string {
	return words[g.rng.IntN(len(words))]
}

// Planning returns a name about planning work, e.g. "The Agile Planning Roadmap"
func (g *Generator) Planning() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.planning()
}

func (g *Generator) planning() string {
	switch g.rng.IntN(4) {
	case 0:
		return "The " + g.pick(adjectives) + " " + g.pick(activities) + " " + g.pick(objects)
	case 1:
		return g.pick(adjectives) + " " + g.pick(objects) + " " + g.pick(activities)
	case 2:
		return g.pick(activities) + " " + g.pick(adjectives) + " " + g.pick(objects)
	default:
		return g.pick(adjectives) + " " + g.pick(objects) + " with " + g.pick(funElements)
	}
}

// Challenges returns a name about overcoming obstacles
func (g *Generator) Challenges() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.challenges()
}

func (g *Generator) challenges() string {
	switch g.rng.IntN(4) {
	case 0:
		return "Conquering " + g.pick(adjectives) + " " + g.pick(challenges)
	case 1:
		return "Overcoming " + g.pick(challenges) + " for " + g.pick(outcomes)
	case 2:
		return "From " + g.pick(challenges) + " to " + g.pick(outcomes)
	default:
		return g.pick(adjectives) + " Solutions to " + g.pick(challenges)
	}
}

// OfficeFun returns a lighthearted office name
func (g *Generator) OfficeFun() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.officeFun()
}

func (g *Generator) officeFun() string {
	switch g.rng.IntN(4) {
	case 0:
		return g.pick(funElements) + " with " + g.pick(officeItems)
	case 1:
		return g.pick(adjectives) + " " + g.pick(officeItems) + " " + g.pick(funElements)
	case 2:
		return "Office " + g.pick(funElements) + " and " + g.pick(activities)
	default:
		return g.pick(adjectives) + " Team " + g.pick(funElements)
	}
}

// Random picks one of the three styles
func (g *Generator) Random() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.rng.IntN(3) {
	case 0:
		return g.planning()
	case 1:
		return g.challenges()
	default:
		return g.officeFun()
	}
}
