// Package chunk partitions a document into numbered, prompt-wrapped chunk files.
//
// Words are whitespace-delimited and accumulated greedily: a chunk closes when
// the next word would push it past MaxTokens, and a single oversized word
// becomes a chunk of its own. Single-shot mode emits the whole document as one
// chunk. Every chunk is wrapped as Header + text + Footer.
//
// Chunk files are named <stem>_<NNN>.txt where NNN is the zero-padded 0-based
// index (at least three digits). ParseIndex recovers the index from any file
// name whose last digit run is the index, so results keyed by chunk file name
// can be re-sorted regardless of enumeration order.
package chunk
