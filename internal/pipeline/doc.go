// Package pipeline drives the two-pass summarization run: split the
// transcript under a token budget, summarize every chunk, merge the partial
// summaries, then summarize the merged document once more in single-shot mode.
//
// A run owns a scratch workspace guarded by an advisory lock on the scratch
// root. The workspace is removed when the run finishes, fails, or is
// cancelled, and the final output is only ever written by an atomic rename.
package pipeline
