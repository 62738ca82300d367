// Package generation produces campaign plans, social posts and tone profiles
// grounded in a tenant's stored memories.
//
// Every request follows the same path. The tenant's credits are checked
// before any external call. The goal is embedded and the closest memories
// are retrieved; a retrieval failure only means the prompt carries no
// context. The prompt is sent to a Chain of generators, each under the
// shared retry policy, and the first success wins. The output is parsed as
// JSON, and only then is a credit consumed and the artifact persisted.
//
// Tone analysis may run anonymously. Anonymous analyses consume no credits
// and persist nothing.
package generation
