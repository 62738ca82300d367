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


// Package gemini implements ai.Embedder and ai.Generator on the Gemini API
// using google.golang.org/genai.
//
// Embedding batches are sent as one batchEmbedContents request whose items
// carry {model, content:{parts:[{text}]}}; the response order matches the
// request order. Generation asks for a JSON response MIME type but callers
// still decode the output with ai.DecodeJSON.
//
// Errors are classified for ai.RetryPolicy: API errors with status 429 or 503
// and network failures are transient, all others terminal.
//
// # Usage
//
//	cfg := ai.NewConfig(ai.WithAPIKey(key))
//	provider, err := gemini.NewProvider(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
package gemini
