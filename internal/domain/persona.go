package domain

// PersonaConfig is a static character profile loaded from the persona
// catalog. Read-only to the core; the catalog owns it.
type PersonaConfig struct {
	Name            string   `json:"name"`
	TwitterUsername string   `json:"twitterUsername"`
	TweetExamples   []string `json:"tweetExamples"`
	Characteristics []string `json:"characteristics"`
	Topics          []string `json:"topics"`
	Language        string   `json:"language"`
}

// Handle returns the persona's identity key.
func (p PersonaConfig) Handle() string { return p.TwitterUsername }
