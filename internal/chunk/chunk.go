package chunk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"condense/internal/services"
)

// Extension is the file extension of chunk files.
const Extension = ".txt"

// DefaultStem names chunk files when Config.Stem is empty.
const DefaultStem = "chunk"

// Config holds the immutable settings for one split.
type Config struct {
	Header string `json:"header"`
	Footer string `json:"footer"`
	// MaxTokens is the per-chunk word budget. Zero means unset.
	MaxTokens  int    `json:"-"`
	SingleShot bool   `json:"-"`
	Stem       string `json:"-"`
}

// Chunk is one slice of a document.
type Chunk struct {
	Index   int
	Text    string
	Wrapped bool
}

// LoadConfig reads a JSON {"header": ..., "footer": ...} file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, services.Wrap(services.ErrIO, "splitter", "load chunk config", fmt.Sprintf("Read %s", path), err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, services.Wrap(services.ErrConfig, "splitter", "load chunk config", fmt.Sprintf("Parse %s", path), err)
	}
	return cfg, nil
}

// Validate reports an ErrConfig failure when the budget is missing outside single-shot mode.
func (c Config) Validate() error {
	if c.SingleShot {
		return nil
	}
	if c.MaxTokens <= 0 {
		return services.Wrap(services.ErrConfig, "splitter", "validate", fmt.Sprintf("max_tokens must be a positive integer (got %d) unless single-shot is set", c.MaxTokens), nil)
	}
	return nil
}

func (c Config) stem() string {
	if stem := strings.TrimSpace(c.Stem); stem != "" {
		return stem
	}
	return DefaultStem
}

// Chunks partitions document without touching the filesystem.
func Chunks(document string, cfg Config) ([]Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SingleShot {
		return []Chunk{{Index: 0, Text: cfg.Header + document + cfg.Footer, Wrapped: true}}, nil
	}

	words := strings.Fields(document)
	chunks := make([]Chunk, 0, len(words)/cfg.MaxTokens+1)
	for start := 0; start < len(words); {
		end := start + cfg.MaxTokens
		if end > len(words) {
			end = len(words)
		}
		body := strings.Join(words[start:end], " ")
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Text:    cfg.Header + body + cfg.Footer,
			Wrapped: true,
		})
		start = end
	}
	return chunks, nil
}

// Split writes the chunks of document into outDir and returns their paths in index order.
// Existing files in outDir are left alone.
func Split(document string, cfg Config, outDir string) ([]string, error) {
	chunks, err := Chunks(document, cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "splitter", "create output dir", fmt.Sprintf("Create %s", outDir), err)
	}
	stem := cfg.stem()
	paths := make([]string, 0, len(chunks))
	for _, c := range chunks {
		path := filepath.Join(outDir, FileName(stem, c.Index, len(chunks)))
		if err := os.WriteFile(path, []byte(c.Text), 0o644); err != nil {
			return nil, services.Wrap(services.ErrIO, "splitter", "write chunk", fmt.Sprintf("Write %s", path), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SplitFile reads inputPath and splits it. An empty Stem becomes "<input stem>_part".
func SplitFile(inputPath string, cfg Config, outDir string) ([]string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "splitter", "read document", fmt.Sprintf("Read %s", inputPath), err)
	}
	if strings.TrimSpace(cfg.Stem) == "" {
		base := filepath.Base(inputPath)
		cfg.Stem = strings.TrimSuffix(base, filepath.Ext(base)) + "_part"
	}
	return Split(string(data), cfg, outDir)
}

// FileName formats the chunk file name for index out of total chunks.
func FileName(stem string, index, total int) string {
	width := 3
	if digits := len(strconv.Itoa(max(total-1, 0))); digits > width {
		width = digits
	}
	return fmt.Sprintf("%s_%0*d%s", stem, width, index, Extension)
}

// ParseIndex recovers the chunk index from a file name or source id.
// The last run of decimal digits in the name (extension excluded) is the index.
func ParseIndex(name string) (int, error) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	end := -1
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] >= '0' && base[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return 0, services.Wrap(services.ErrData, "chunk", "parse index", fmt.Sprintf("No numeric index in %q", name), nil)
	}
	start := end - 1
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	index, err := strconv.Atoi(base[start:end])
	if err != nil {
		return 0, services.Wrap(services.ErrData, "chunk", "parse index", fmt.Sprintf("Index in %q out of range", name), err)
	}
	return index, nil
}

// WordCount reports the number of whitespace-delimited words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
