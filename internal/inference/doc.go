// Package inference turns a directory of chunk files into a results artifact.
//
// Runner enumerates the .txt files in a chunk directory, sends each file's full
// text to a Generator one at a time, and writes the collected results
// atomically once every chunk has succeeded. The first chunk whose generation
// fails (after the backend client's own retries) aborts the run with a
// ChunkError and no artifact is written.
//
// Progress is reported through a Reporter: a terminal progress bar when
// stderr is a TTY, sampled structured log lines otherwise.
package inference
