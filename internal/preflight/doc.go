// Package preflight provides readiness checks for the generative backend
// and the filesystem paths condense depends on.
//
// These checks run in two contexts:
//   - The "condense doctor" command runs RunAll and renders every result.
//   - The watch loop calls RunAll once at startup so a missing backend or an
//     unwritable scratch root is reported before any transcript is consumed.
//
// Optional inputs (params file, chunk configs, watch directories) are only
// checked when configured.
package preflight
