package pipeline

import (
	"strings"

	"condense/internal/chunk"
	"condense/internal/config"
)

// OptionsFromConfig resolves orchestrator options from configuration, loading
// header/footer files when configured.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	first := chunk.Config{
		Header:    cfg.Splitter.Header,
		Footer:    cfg.Splitter.Footer,
		MaxTokens: cfg.Splitter.MaxTokens,
	}
	if path := strings.TrimSpace(cfg.Splitter.ChunkConfig); path != "" {
		loaded, err := chunk.LoadConfig(path)
		if err != nil {
			return Options{}, err
		}
		first.Header, first.Footer = loaded.Header, loaded.Footer
	}

	final := chunk.Config{
		Header:     cfg.Splitter.FinalHeader,
		Footer:     cfg.Splitter.FinalFooter,
		SingleShot: true,
	}
	if path := strings.TrimSpace(cfg.Splitter.FinalChunkConfig); path != "" {
		loaded, err := chunk.LoadConfig(path)
		if err != nil {
			return Options{}, err
		}
		final.Header, final.Footer = loaded.Header, loaded.Footer
	}

	return Options{
		ScratchDir:      cfg.Paths.ScratchDir,
		StaleScratchAge: cfg.StaleScratchAge(),
		FirstPass:       first,
		FinalPass:       final,
		Separator:       cfg.Merge.Separator,
		Normalize:       cfg.Pipeline.NormalizeTranscript,
	}, nil
}
