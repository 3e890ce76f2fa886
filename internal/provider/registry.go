package provider

import (
	"github.com/rs/zerolog/log"

	"github.com/finprompt/refinery/internal/config"
	"github.com/finprompt/refinery/pkg/models"
)

// NewRegistry builds the three provider adapters from env credentials.
// A missing credential only degrades that provider; the registry always
// contains all three entries so unconfigured providers fail per-slot inside
// a fan-out instead of disappearing.
func NewRegistry(cfg *config.Config) Registry {
	reg := Registry{
		models.ProviderOpenAI:    NewOpenAI(config.OpenAIKey(), cfg.OpenAIModel),
		models.ProviderAnthropic: NewAnthropic(config.AnthropicKey(), cfg.AnthropicModel),
		models.ProviderGoogle:    NewGoogle(config.GoogleKey(), cfg.GoogleModel),
	}

	for _, check := range []struct {
		name string
		key  string
	}{
		{models.ProviderOpenAI, config.OpenAIKey()},
		{models.ProviderAnthropic, config.AnthropicKey()},
		{models.ProviderGoogle, config.GoogleKey()},
	} {
		if check.key == "" {
			log.Warn().Str("provider", check.name).Msg("Provider credential missing, calls will fail as not configured")
		}
	}

	return reg
}
