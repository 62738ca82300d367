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


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// This package implements ai.Embedder, ai.Generator and ai.Provider using the
// langchaingo library to communicate with OpenAI or OpenAI-compatible services
// (such as Ollama, LocalAI, or vLLM). It is typically used as a generation
// fallback behind Gemini, or as a fully local stack.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbedding(ai.Endpoint{Backend: ai.BackendOpenAI, Host: "http://localhost:11434", Model: "embeddinggemma"}),
//	    ai.WithGeneration(ai.Endpoint{Backend: ai.BackendOpenAI, Host: "http://localhost:11434", Model: "qwen2.5:3b"}),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "sample text")
//	raw, err := provider.Generators()[0].Generate(ctx, "Return a JSON object ...")
//
// Errors are classified from the HTTP status langchaingo reports: 429 and 503
// are transient, other statuses are terminal.
package openai
