// Package transcript converts subtitle and HTML transcripts into the plain
// text the splitter consumes, and normalizes the timestamped "Script:" form.
//
// ExtractSRT renders each subtitle cue as
//
//	Script: <text>
//	Start Time: <ms>
//	End Time: <ms>
//
// followed by a blank line. Normalize drops the timing lines, strips the
// "Script: " prefix, and joins the remaining lines with single spaces.
package transcript
