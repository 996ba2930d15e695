package services

import (
	"mnemo/domain/core/valueobjects"
)

// Lexicon holds the keyword and phrase lists driving emotion detection.
// The entries are tuned defaults, overridable through configuration.
type Lexicon struct {
	Keywords map[valueobjects.Emotion][]string
	Phrases  map[valueobjects.Emotion][]string
}

// DefaultLexicon returns the built-in emotion lexicon
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Keywords: map[valueobjects.Emotion][]string{
			valueobjects.EmotionJoy: {
				"happy", "glad", "excited", "delighted", "thrilled", "wonderful",
				"great", "fantastic", "amazing", "joyful", "cheerful", "fun",
				"celebrate", "awesome", "yay",
			},
			valueobjects.EmotionSadness: {
				"sad", "unhappy", "depressed", "miserable", "heartbroken", "down",
				"lonely", "crying", "tears", "grief", "loss", "hopeless",
				"disappointed", "hurt",
			},
			valueobjects.EmotionAnger: {
				"angry", "furious", "mad", "annoyed", "irritated", "frustrated",
				"outraged", "hate", "rage", "hostile", "resent", "unfair",
			},
			valueobjects.EmotionFear: {
				"afraid", "scared", "terrified", "anxious", "worried", "nervous",
				"panic", "dread", "frightened", "uneasy", "threat", "danger",
			},
			valueobjects.EmotionSurprise: {
				"surprised", "shocked", "astonished", "stunned", "unexpected",
				"unbelievable", "sudden", "wow", "whoa",
			},
			valueobjects.EmotionLove: {
				"love", "adore", "cherish", "affection", "caring", "devoted",
				"darling", "sweetheart", "beloved", "fond",
			},
			valueobjects.EmotionCuriosity: {
				"curious", "wonder", "intrigued", "interesting", "fascinating",
				"explore", "question", "mystery", "learn", "discover",
			},
			valueobjects.EmotionGratitude: {
				"grateful", "thankful", "appreciate", "thanks", "blessed",
				"gratitude", "indebted",
			},
		},
		Phrases: map[valueobjects.Emotion][]string{
			valueobjects.EmotionJoy:       {"over the moon", "on cloud nine", "made my day"},
			valueobjects.EmotionSadness:   {"feeling down", "broke my heart", "in tears"},
			valueobjects.EmotionAnger:     {"fed up", "sick of", "drives me crazy", "had enough"},
			valueobjects.EmotionFear:      {"freaking out", "scared to death", "on edge"},
			valueobjects.EmotionSurprise:  {"caught me off guard", "out of nowhere", "did not see that coming"},
			valueobjects.EmotionLove:      {"care about you", "mean the world", "head over heels"},
			valueobjects.EmotionCuriosity: {"want to know", "tell me more", "how does", "what if"},
			valueobjects.EmotionGratitude: {"thank you", "so grateful", "really appreciate"},
		},
	}
}

// amplifiers strengthen an emotion hit found within the preceding token window
var amplifiers = map[string]float64{
	"very": 1.5, "extremely": 1.5, "really": 1.5, "so": 1.5,
	"incredibly": 1.5, "absolutely": 1.5, "totally": 1.5, "deeply": 1.5,
	"slightly": 0.6, "somewhat": 0.6, "kinda": 0.6, "bit": 0.6, "mildly": 0.6,
}

// negations suppress (but do not erase) an emotion hit in the preceding window
var negations = map[string]bool{
	"not": true, "never": true, "no": true, "dont": true, "don't": true,
	"didnt": true, "didn't": true, "cant": true, "can't": true,
	"wont": true, "won't": true, "isnt": true, "isn't": true,
	"wasnt": true, "wasn't": true, "hardly": true, "barely": true,
}

// negationMultiplier suppresses a negated emotion without zeroing it
const negationMultiplier = 0.2

// positiveWords and negativeWords feed the base polarity signal for valence
var positiveWords = map[string]bool{
	"good": true, "great": true, "nice": true, "well": true, "better": true,
	"best": true, "fine": true, "right": true, "yes": true, "perfect": true,
	"beautiful": true, "excellent": true, "success": true, "win": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "worse": true, "worst": true,
	"wrong": true, "fail": true, "failed": true, "problem": true, "broken": true,
	"ugly": true, "horrible": true, "lose": true, "lost": true,
}
