package assistant

import "strings"

type Classification int

const (
	OnTopic Classification = iota
	Greeting
	OffTopic
)

func (c Classification) String() string {
	switch c {
	case Greeting:
		return "greeting"
	case OnTopic:
		return "on_topic"
	case OffTopic:
		return "off_topic"
	default:
		return "unknown"
	}
}

var greetingWords = []string{
	"hi", "hey", "hello", "hai", "hallo", "hola", "greetings",
	"yo", "sup", "howdy", "hei", "hiya", "heya",
}

var greetingPhrases = []string{
	"how are you", "how r u", "how r you", "how you doing",
	"how is it going", "how's it going", "whats up", "what's up",
	"good morning", "good afternoon", "good evening", "good day",
	"nice to meet", "pleased to meet",
}

// Matching is plain substring containment, so "codebase" hits "code".
var portfolioKeywords = []string{
	"portfolio", "project", "skill", "experience", "resume", "work", "shivashanker", "shiva",
	"technology", "tech stack", "frontend", "backend", "database", "react", "node", "javascript",
	"python", "django", "mongodb", "mysql", "postgresql", "aws", "netlify", "render", "git",
	"weather app", "news aggregator", "blog platform", "education", "contact", "job", "role",
	"developer", "programming", "code", "web", "website", "app", "application",
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// DetectGreeting reports whether text is a greeting: a greeting word on its
// own or followed by a space, or any text containing a greeting phrase.
func DetectGreeting(text string) bool {
	msg := normalize(text)
	if msg == "" {
		return false
	}

	for _, g := range greetingWords {
		if msg == g || strings.HasPrefix(msg, g+" ") {
			return true
		}
	}
	for _, p := range greetingPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func IsPortfolioRelated(text string) bool {
	msg := normalize(text)
	if msg == "" {
		return false
	}

	for _, k := range portfolioKeywords {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

func Classify(text string) Classification {
	switch {
	case DetectGreeting(text):
		return Greeting
	case IsPortfolioRelated(text):
		return OnTopic
	default:
		return OffTopic
	}
}
