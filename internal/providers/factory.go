package providers

import (
	"log/slog"
)

// Build assembles the fallback chain from configuration. Remote backends
// listed in the fallback order without an API key are skipped with a
// warning so the chain degrades rather than refusing to start. The
// vocabulary is returned alongside the chain for heuristic scoring.
func Build(cfg *Config, logger *slog.Logger) (*Chain, *Vocabulary, error) {
	vocab, err := LoadVocabulary()
	if err != nil {
		return nil, nil, err
	}

	offline := NewOffline(vocab)

	remote := make([]Client, 0, len(cfg.Fallback))
	for _, entry := range cfg.Fallback {
		name, err := ParseName(entry)
		if err != nil {
			return nil, nil, err
		}

		switch name {
		case NameAnthropic:
			if cfg.Anthropic.APIKey == "" {
				logger.Warn("provider skipped, no api key", "provider", name)
				continue
			}
			remote = append(remote, NewAnthropic(cfg.Anthropic, logger))
		case NameOpenAI:
			if cfg.OpenAI.APIKey == "" {
				logger.Warn("provider skipped, no api key", "provider", name)
				continue
			}
			remote = append(remote, NewOpenAI(cfg.OpenAI, logger))
		case NameOpenRouter:
			if cfg.OpenRouter.APIKey == "" {
				logger.Warn("provider skipped, no api key", "provider", name)
				continue
			}
			remote = append(remote, NewOpenRouter(cfg.OpenRouter, logger))
		case NameOffline:
			// implicit terminal element, never part of the remote order
		}
	}

	chain := NewChain(remote, offline, ChainConfig{
		Attempts: cfg.Attempts,
		Backoff:  cfg.BackoffDuration(),
	}, logger)

	return chain, vocab, nil
}
