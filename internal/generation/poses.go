package generation

import (
	"math/rand/v2"
)

// Pose is one candid "friend POV" scenario instruction.
type Pose struct {
	ID     string `json:"id" yaml:"id"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

var catalog = []Pose{
	{
		ID:     "friend_candid_laugh",
		Prompt: "Candid snapshot taken by a friend across the table or nearby. The subject is laughing naturally, eyes slightly squinted from smiling, a hand near the mouth or touching the face. Not posing, just a genuine moment. The background shows a slightly different angle of the same location.",
	},
	{
		ID:     "walking_past",
		Prompt: "Motion shot. The subject walks past the camera or away from it, glancing back over the shoulder casually. Shot from eye level with slight motion blur on the limbs. Looks like a fan photo. Distinct background elements are visible.",
	},
	{
		ID:     "checking_phone_relaxed",
		Prompt: "The subject is distracted, looking down at a phone, menu or object. Body language is relaxed and unposed. Shot from a slightly higher angle, as if a friend is standing up.",
	},
	{
		ID:     "caught_off_guard",
		Prompt: "Mid-motion or mid-speech. The subject looks slightly away from the lens, mouth a little open as if talking. Authentic, unguarded expression with a stolen-shot aesthetic. Background depth is natural, not excessively blurred.",
	},
	{
		ID:     "close_up_selfie_style",
		Prompt: "A selfie or a very close shot with a wide phone lens (0.5x style). Perspective is intimate with minimal distortion of the features. Fun, goofy or cute expression. The background is visible through the wide angle.",
	},
	{
		ID:     "wide_environmental_context",
		Prompt: "Wide shot from 20 to 30 feet away. The subject is small in the frame, interacting with the environment, sitting on a ledge or leaning on a wall. Emphasizes the atmosphere of the location with a tourist-photo vibe.",
	},
	{
		ID:     "low_angle_sneaker_check",
		Prompt: "Low angle shot looking up at the subject. Casual outfit-check vibe that emphasizes shoes and pants. The subject looks down at the camera or away confidently.",
	},
	{
		ID:     "flash_photography_night",
		Prompt: "Direct flash photography, or simulated daylight flash if the environment calls for it. Harsh shadows behind the subject, high contrast, retro 2000s digital camera aesthetic. Raw and trendy.",
	},
	{
		ID:     "messy_hair_windy",
		Prompt: "Wind blows hair across the face while the subject tries to fix it. Dynamic and a bit chaotic but still aesthetic. Natural light hits the face unevenly. Very realistic texture.",
	},
	{
		ID:     "resting_bored",
		Prompt: "The subject rests their chin on a hand, looking bored or tired but cute. Relatable waiting-for-food energy with a slouching posture. Authentic vibe.",
	},
}

// Catalog returns the full pose catalog.
func Catalog() []Pose {
	out := make([]Pose, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogSize is the upper bound on images per generation run.
func CatalogSize() int {
	return len(catalog)
}

// ClampCount bounds a requested image count to 1..CatalogSize.
func ClampCount(n int) int {
	return min(max(n, 1), len(catalog))
}

// NewRand returns a seeded source for pose selection. A zero seed draws a
// random one.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// Select draws count poses without replacement. count is capped at the
// catalog size; a non-positive count selects nothing.
func Select(count int, rng *rand.Rand) []Pose {
	if count <= 0 {
		return nil
	}
	shuffled := Catalog()
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:min(count, len(shuffled))]
}
