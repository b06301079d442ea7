// Package synthesis drives the compliance correction loop: sanitize once,
// then repeatedly select snippets for the remaining failing gates, apply
// them, and re-validate until success, stagnation, or retry exhaustion.
//
// The loop is single-threaded and synchronous per session. It blocks on every
// call to the external validation engine and performs no internal
// parallelism; concurrent sessions each call Synthesize independently. There
// is no mid-iteration cancellation: once snippet application and
// re-validation begin for an iteration they run to completion, and the only
// built-in bound on execution is the retry limit.
//
// Synthesize does not fail under normal operation. Per-snippet problems
// degrade to "snippet not applied", validation problems terminate the session
// with a review report, and audit failures are swallowed.
package synthesis
