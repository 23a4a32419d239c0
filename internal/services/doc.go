// Package services defines shared utilities consumed by the pipeline stages and
// the backend integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and chunk source IDs for
//     logging.
//   - Structured error markers (ErrConfig, ErrIO, ErrBackend, ErrData) plus the
//     Wrap helper so every failure carries its class and the stage that raised it.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// classification, observability) stays uniform across the pipeline.
package services
