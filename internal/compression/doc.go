// Package compression implements the context-window compression engine.
//
// A compression attempt takes a Unit (the concatenated content of one
// or more blocks), renders a summarization prompt, invokes one of the
// configured backends, and validates the result against a hard ratio
// floor and a salient-token quality gate before it is accepted.
//
// Backends form a closed set selected per invocation by Strategy:
//
//   - StrategyLocal: streamed chat completion against a local
//     inference server, no authentication.
//   - StrategyGateway: streamed chat completion against a hosted
//     gateway with bearer-token authentication.
//   - StrategyAgent: a local CLI agent spawned as a subprocess with
//     the prompt on stdin and a hard wall-clock timeout.
//
// A backend failure is never retried inside the engine and no backend
// falls back to another; the caller decides whether to retry with a
// different strategy.
package compression
