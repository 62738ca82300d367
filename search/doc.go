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


// Package search retrieves a tenant's memories that are semantically close
// to a query.
//
// The Retriever embeds the query, keeping recent query vectors in an LRU
// cache, and asks the memory store for the nearest memories of that tenant
// above a similarity threshold. Results are ranked by cosine similarity only.
//
// MatchedTerms reports which query words appear verbatim in a result, for
// display; it never affects ranking.
package search
