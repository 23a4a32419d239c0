package config

const (
	defaultScratchFallback       = "~/.cache/condense/scratch"
	defaultLogDir                = "~/.local/share/condense/logs"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultMaxTokens             = 500
	defaultHeader                = "Summarize the following transcript excerpt in a few sentences:\n\n"
	defaultFooter                = "\n\nSummary:"
	defaultFinalHeader           = "The following are consecutive partial summaries of one transcript. Combine them into a single concise summary:\n\n"
	defaultFinalFooter           = "\n\nFinal summary:"
	defaultBackendKind           = "ollama"
	defaultBackendURL            = "http://localhost:11434"
	defaultBackendModel          = "phi3"
	defaultBackendTimeoutSeconds = 120
	defaultBackendRetryAttempts  = 3
	defaultBackendRetryBaseDelay = 1000
	defaultBackendRetryMaxDelay  = 10000
	defaultMergeSeparator        = "\n"
	defaultStaleScratchHours     = 24
	defaultWatchSettleMillis     = 500
)

var (
	defaultWatchExtensions = []string{".txt", ".srt", ".html", ".htm"}

	// backendKinds lists the adapters the backend client understands.
	backendKinds = map[string]string{
		"ollama":   "http://localhost:11434",
		"koboldai": "http://localhost:5001",
		"kobold":   "http://localhost:5001",
		"openai":   "http://localhost:8080",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir(),
			LogDir:     defaultLogDir,
		},
		Splitter: Splitter{
			MaxTokens:   defaultMaxTokens,
			Header:      defaultHeader,
			Footer:      defaultFooter,
			FinalHeader: defaultFinalHeader,
			FinalFooter: defaultFinalFooter,
		},
		Backend: Backend{
			Kind:             defaultBackendKind,
			URL:              defaultBackendURL,
			Model:            defaultBackendModel,
			TimeoutSeconds:   defaultBackendTimeoutSeconds,
			RetryAttempts:    defaultBackendRetryAttempts,
			RetryBaseDelayMS: defaultBackendRetryBaseDelay,
			RetryMaxDelayMS:  defaultBackendRetryMaxDelay,
		},
		Merge: Merge{
			Separator: defaultMergeSeparator,
		},
		Pipeline: Pipeline{
			NormalizeTranscript: true,
			StaleScratchHours:   defaultStaleScratchHours,
		},
		Watch: Watch{
			Extensions:   append([]string(nil), defaultWatchExtensions...),
			SettleMillis: defaultWatchSettleMillis,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
