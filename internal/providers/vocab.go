package providers

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var vocabData []byte

// Vocabulary is the keyword table backing the offline backend and the
// detector's heuristic scoring. Entries are matched case-insensitively;
// overlapping phrases count once, longest match first.
type Vocabulary struct {
	Games      []VocabGame     `yaml:"games"`
	Editions   []VocabEdition  `yaml:"editions"`
	BookTypes  []VocabBookType `yaml:"book_types"`
	Categories []VocabCategory `yaml:"categories"`
}

// VocabGame maps weighted indicator phrases to a game system.
type VocabGame struct {
	Name     string         `yaml:"name"`
	Keywords []VocabKeyword `yaml:"keywords"`
}

// VocabKeyword is a single indicator phrase with its evidence weight.
type VocabKeyword struct {
	Phrase string  `yaml:"phrase"`
	Weight float64 `yaml:"weight"`
}

// VocabEdition maps marker phrases to an edition of a specific game.
type VocabEdition struct {
	Game     string   `yaml:"game"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// VocabBookType maps marker phrases to a product category.
type VocabBookType struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// VocabCategory maps keyword lists to a content category for rule-based
// section labeling.
type VocabCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// LoadVocabulary parses and validates the embedded vocabulary table.
func LoadVocabulary() (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(vocabData, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("invalid vocabulary: %w", err)
	}
	return &v, nil
}

func (v *Vocabulary) validate() error {
	if len(v.Games) == 0 {
		return fmt.Errorf("no games defined")
	}
	for _, g := range v.Games {
		if g.Name == "" {
			return fmt.Errorf("game with empty name")
		}
		for _, k := range g.Keywords {
			if k.Phrase == "" {
				return fmt.Errorf("game %s: empty keyword phrase", g.Name)
			}
			if k.Weight <= 0 || k.Weight > 1 {
				return fmt.Errorf("game %s: keyword %q weight out of range", g.Name, k.Phrase)
			}
		}
	}
	for _, c := range v.Categories {
		if c.Name == "" {
			return fmt.Errorf("category with empty name")
		}
	}
	return nil
}

// ClassifyText performs deterministic keyword classification. It never
// fails: text with no indicators yields game type "Unknown" with
// confidence 0.0.
func (v *Vocabulary) ClassifyText(text string) *ClassificationResult {
	lowered := strings.ToLower(text)

	best, second := "", 0.0
	bestScore := 0.0
	for _, game := range v.Games {
		score := matchWeighted(lowered, game.Keywords)
		if score > bestScore {
			second = bestScore
			best, bestScore = game.Name, score
		} else if score > second {
			second = score
		}
	}

	result := &ClassificationResult{
		GameType: "Unknown",
		Edition:  "Unknown",
		BookType: "Unknown",
		Provider: NameOffline,
		Model:    offlineModel,
	}

	if bestScore == 0 {
		result.Reasoning = "no game system indicators found"
		return result
	}

	result.GameType = best
	result.Confidence = confidenceFor(bestScore, second)
	result.Edition = v.matchEdition(lowered, best)
	result.BookType = v.matchBookType(lowered)
	result.Reasoning = fmt.Sprintf("keyword indicators matched %s (score %.2f)", best, bestScore)

	return result
}

// GameNames lists the game systems the vocabulary knows, in table order.
func (v *Vocabulary) GameNames() []string {
	names := make([]string, len(v.Games))
	for i, g := range v.Games {
		names[i] = g.Name
	}
	return names
}

// ScoreGame returns the best-matching game and the confidence the keyword
// table assigns it. Used by the detector as its heuristic signal.
func (v *Vocabulary) ScoreGame(text string) (string, float64) {
	result := v.ClassifyText(text)
	if result.GameType == "Unknown" {
		return "", 0
	}
	return result.GameType, result.Confidence
}

// LabelSections assigns one category per section by keyword scoring.
// Sections matching no category are labeled "unknown" with confidence 0.
func (v *Vocabulary) LabelSections(sections []string, allowed []string) []LabelSet {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = true
	}

	labels := make([]LabelSet, len(sections))
	for i, section := range sections {
		labels[i] = v.labelSection(strings.ToLower(section), allowedSet)
	}
	return labels
}

func (v *Vocabulary) labelSection(lowered string, allowed map[string]bool) LabelSet {
	best := ""
	bestHits := 0
	for _, category := range v.Categories {
		if len(allowed) > 0 && !allowed[category.Name] {
			continue
		}
		hits := matchCount(lowered, category.Keywords)
		if hits > bestHits {
			best, bestHits = category.Name, hits
		}
	}

	if bestHits == 0 {
		return LabelSet{Category: "unknown", Confidence: 0}
	}

	return LabelSet{
		Category:   best,
		Confidence: min(0.3+0.1*float64(bestHits), 0.8),
	}
}

func (v *Vocabulary) matchEdition(lowered, game string) string {
	best, bestHits := "Unknown", 0
	for _, edition := range v.Editions {
		if edition.Game != game {
			continue
		}
		hits := matchCount(lowered, edition.Keywords)
		if hits > bestHits {
			best, bestHits = edition.Name, hits
		}
	}
	return best
}

func (v *Vocabulary) matchBookType(lowered string) string {
	best, bestHits := "Unknown", 0
	for _, bt := range v.BookTypes {
		hits := matchCount(lowered, bt.Keywords)
		if hits > bestHits {
			best, bestHits = bt.Name, hits
		}
	}
	return best
}

// matchWeighted sums the weights of matched phrases. Longer phrases are
// matched first and mask their text so contained phrases do not double
// count. Each phrase counts at most once.
func matchWeighted(lowered string, keywords []VocabKeyword) float64 {
	ordered := make([]VocabKeyword, len(keywords))
	copy(ordered, keywords)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Phrase) > len(ordered[j].Phrase)
	})

	masked := lowered
	total := 0.0
	for _, kw := range ordered {
		phrase := strings.ToLower(kw.Phrase)
		if strings.Contains(masked, phrase) {
			total += kw.Weight
			masked = strings.ReplaceAll(masked, phrase, "\x00")
		}
	}
	return total
}

func matchCount(lowered string, phrases []string) int {
	count := 0
	for _, phrase := range phrases {
		if strings.Contains(lowered, strings.ToLower(phrase)) {
			count++
		}
	}
	return count
}

// confidenceFor maps an evidence score to a calibrated confidence. A close
// runner-up caps the result at 0.5 since the match is ambiguous.
func confidenceFor(best, second float64) float64 {
	var conf float64
	switch {
	case best >= 2.0:
		conf = 0.85
	case best >= 1.0:
		conf = 0.7
	case best >= 0.5:
		conf = 0.5
	default:
		conf = 0.3
	}

	if second > 0 && second >= best*0.8 {
		return min(conf, 0.5)
	}
	return conf
}
