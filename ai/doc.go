// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai defines the interfaces and shared policy for external AI services.
//
// # Interfaces
//
// Embedder turns text into vectors and Generator turns a prompt into model
// output. Provider bundles one Embedder with an ordered list of Generators.
// Implementations live in subpackages:
//
//   - ai/gemini: Gemini API via google.golang.org/genai
//   - ai/openai: OpenAI-compatible APIs via langchaingo
//   - ai/mock: deterministic test doubles
//
// # Errors and retries
//
// Implementations classify every failure as core.ErrTransientExternal
// (HTTP 429, 503, network errors) or core.ErrTerminalExternal (anything else)
// using ClassifyStatus and ClassifyError. RetryPolicy retries transient
// failures only, with linear backoff, and reports exhaustion as
// core.ErrServiceUnavailable.
//
// # Model output
//
// DecodeJSON strips code fences, applies a conservative repair pass, and
// returns *core.ParseError with the raw text when output cannot be decoded.
//
// # Configuration
//
// Config is built with NewConfig and functional options:
//
//	cfg := ai.NewConfig(
//	    ai.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    ai.WithFallback(ai.Endpoint{Backend: ai.BackendOpenAI, Host: "http://localhost:11434", Model: "qwen2.5:3b"}),
//	)
package ai
