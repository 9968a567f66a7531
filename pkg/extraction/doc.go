// Package extraction turns arbitrary research backend payloads into
// validated compliance records.
//
// Backends answer in many shapes: a JSON object, JSON embedded in prose, JSON
// inside a fenced code block, or a list of message events whose most recent
// entry carries the answer. The Engine resolves these with an ordered chain:
//
//  1. A mapping that already carries a signature field is accepted directly.
//  2. Container fields (output, result, message, content, response, answer,
//     events) are searched, most recent list item first, for a text blob
//     longer than a short threshold.
//  3. The text is run through TextStrategies in order: whole-string parse,
//     json-tagged fenced block, any fenced block, balanced-brace scan.
//  4. Otherwise an *ExtractionFailure carrying a truncated preview is returned.
//
// Every successful parse passes through Decode, the validation gate that
// defaults missing fields, splits delimited strings into lists and coerces
// unknown approval statuses to REQUIRES_ATTENTION.
//
// The package performs no I/O and is deterministic for a given input.
package extraction
