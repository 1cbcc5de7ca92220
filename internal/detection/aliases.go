package detection

import "strings"

// gameAliases maps provider spellings to the canonical game type used
// across the archive. Lookup is case-insensitive.
var gameAliases = map[string]string{
	"advanced dungeons & dragons":   "D&D",
	"advanced dungeons and dragons": "D&D",
	"ad&d":                          "D&D",
	"adnd":                          "D&D",
	"dungeons & dragons":            "D&D",
	"dungeons and dragons":          "D&D",
	"d&d":                           "D&D",
	"dnd":                           "D&D",
	"d&d 5e":                        "D&D",
	"pathfinder roleplaying game":   "Pathfinder",
	"pathfinder rpg":                "Pathfinder",
	"pathfinder second edition":     "Pathfinder",
	"pathfinder 2e":                 "Pathfinder",
	"call of cthulhu":               "Call of Cthulhu",
	"coc":                           "Call of Cthulhu",
	"shadowrun":                     "Shadowrun",
	"vampire: the masquerade":       "Vampire: The Masquerade",
	"vampire the masquerade":        "Vampire: The Masquerade",
	"vtm":                           "Vampire: The Masquerade",
	"warhammer fantasy roleplay":    "Warhammer Fantasy Roleplay",
	"warhammer fantasy":             "Warhammer Fantasy Roleplay",
	"wfrp":                          "Warhammer Fantasy Roleplay",
	"gurps":                         "GURPS",
	"cyberpunk 2020":                "Cyberpunk",
	"cyberpunk red":                 "Cyberpunk",
	"cyberpunk":                     "Cyberpunk",
	"traveller":                     "Traveller",
	"mongoose traveller":            "Traveller",
	"savage worlds":                 "Savage Worlds",
}

// CanonicalGame normalizes a game type to its archive spelling. Names with
// no known alias pass through trimmed; empty input maps to "Unknown".
func CanonicalGame(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "Unknown"
	}
	if canonical, ok := gameAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}
