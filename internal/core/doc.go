// Package core runs a single upload of a JSON document to a Realtime
// Database node.
//
// A run moves through four phases in strict order and stops at the first
// failure:
//
//	Preparing -> Parsing -> Uploading -> Done
//
// In detail:
//
//  1. Preparing builds the database writer through the configured factory.
//     A failure here is ErrDependencyUnavailable.
//  2. Parsing reads the file and parses exactly one JSON value. A failure is
//     ErrInputRead, and no network call is made.
//  3. Uploading overwrites the node with the file's bytes. Transport errors
//     and non-2xx answers are ErrUpload. With verification enabled the node
//     is read back and compared.
//  4. Done.
//
// Nothing is retried and nothing is rolled back.
//
// # Error Handling
//
// Every failure is a *StageError wrapping one of the three sentinel errors,
// so callers can branch with errors.Is. [MapError] turns any of them into a
// coded [UserMessage] for the console:
//
//   - DEP000-DEP099: the writer could not be prepared
//   - FILE000-FILE099: the input file could not be read or parsed
//   - UPL001-UPL099: the database rejected or never received the write
//
// # History
//
// Each run is handed to a [Recorder] when it finishes, whatever the outcome.
// Recording problems are logged and never change the result of the run.
package core
