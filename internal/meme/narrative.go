package meme

import "strings"

// Narrative is the story a token trades on
type Narrative struct {
	Emoji    string
	Label    string
	Strength int // 1 (none) to 5
	Note     string
}

func (n Narrative) String() string {
	if n.Label == "" {
		return ""
	}
	return n.Emoji + " " + n.Label
}

var otherNarrative = Narrative{Emoji: "❓", Label: "Other", Strength: 1, Note: "no clear narrative"}

type narrativeRule struct {
	Narrative
	keywords []string
}

// Specific memes recognized before the generic table
var specialNarratives = []struct {
	match func(text, symbol string) bool
	Narrative
}{
	{func(t, _ string) bool { return strings.Contains(t, "claire") }, Narrative{"🤖", "AI", 3, "AI assistant pun"}},
	{func(t, _ string) bool { return strings.Contains(t, "mog") }, Narrative{"💪", "Gym", 4, "mog slang, gymbro culture"}},
	{func(t, _ string) bool { return strings.Contains(t, "diglett") }, Narrative{"🎮", "Gaming", 4, "Pokemon nostalgia"}},
	{func(t, s string) bool { return strings.Contains(t, "caveman") || s == "cmp" }, Narrative{"⚠️", "Controversial", 5, "shock value, high risk"}},
	{func(t, _ string) bool { return strings.Contains(t, "inu") && strings.Contains(t, "bank") }, Narrative{"🐱", "Animal", 4, "dog coin with a DeFi angle"}},
	{func(t, _ string) bool { return strings.Contains(t, "pope") }, Narrative{"⛪", "Religion", 3, "riding a religious news event"}},
	{func(t, _ string) bool { return strings.Contains(t, "valentine") }, Narrative{"🎄", "Holiday", 3, "seasonal mood play"}},
	{func(t, _ string) bool { return strings.Contains(t, "tired") }, Narrative{"🎰", "Gambling", 3, "degen fatigue meme"}},
	{func(t, _ string) bool { return strings.Contains(t, "blackrock") }, Narrative{"💰", "Money", 4, "TradFi giant parody"}},
}

// Ordered: the first matching row wins
var narrativeTable = []narrativeRule{
	{Narrative{"🤖", "AI", 2, ""}, []string{"ai", "agent", "gpt", "grok", "claude", "llm", "tech"}},
	{Narrative{"⭐", "Celebrity", 2, ""}, []string{"elon", "musk", "trump", "star"}},
	{Narrative{"🐱", "Animal", 2, ""}, []string{"cat", "dog", "frog", "bear", "inu", "wojak"}},
	{Narrative{"🌭", "Food", 2, ""}, []string{"hotdog", "pizza", "burger", "food"}},
	{Narrative{"🎰", "Gambling", 2, ""}, []string{"casino", "bet", "gamble", "lottery"}},
	{Narrative{"🐸", "Classic meme", 2, ""}, []string{"meme", "pepe", "chad", "doge"}},
	{Narrative{"🎮", "Gaming", 2, ""}, []string{"pokemon", "game", "mario", "nft"}},
	{Narrative{"⛪", "Religion", 2, ""}, []string{"god", "jesus", "church"}},
	{Narrative{"💪", "Gym", 2, ""}, []string{"gym", "fitness", "alpha"}},
	{Narrative{"⚠️", "Controversial", 2, ""}, []string{"porn", "sex"}},
	{Narrative{"💰", "Money", 2, ""}, []string{"bank", "cash", "rich", "money"}},
	{Narrative{"🎄", "Holiday", 2, ""}, []string{"christmas", "halloween"}},
	{Narrative{"🏦", "DeFi", 2, ""}, []string{"defi", "yield", "staking", "farm"}},
	{Narrative{"🦞", "Claw ecosystem", 2, ""}, []string{"claw", "molt"}},
}

// ClassifyNarrative matches symbol, name and description against the
// narrative keyword table.
func ClassifyNarrative(symbol, name, description string) Narrative {
	sym := strings.ToLower(symbol)
	text := strings.ToLower(symbol + " " + name + " " + description)

	for _, sp := range specialNarratives {
		if sp.match(text, sym) {
			return sp.Narrative
		}
	}
	for _, rule := range narrativeTable {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				n := rule.Narrative
				n.Note = "keyword: " + kw
				return n
			}
		}
	}
	return otherNarrative
}

// ContractFeature flags vanity address suffixes typical of Clanker deploys
func ContractFeature(addr string) string {
	a := strings.ToLower(addr)
	switch {
	case strings.HasSuffix(a, "0b07"):
		return "🎯 0b07 suffix (typical Clanker deploy)"
	case strings.HasSuffix(a, "b07"):
		return "🎯 b07 suffix (Clanker)"
	default:
		return ""
	}
}
