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


package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem"
	"github.com/poiesic/brandmem/config"
	"github.com/poiesic/brandmem/core"
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// usage: searcher <tenant-id> [query...]
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: searcher <tenant-id> [query...]")
		os.Exit(2)
	}
	tenantID, err := uuid.Parse(os.Args[1])
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load(os.Getenv("BRANDMEM_CONFIG"), ".env")
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	svc, err := brandmem.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer svc.Close()

	query := "morning coffee"
	if len(os.Args) > 2 {
		query = strings.Join(os.Args[2:], " ")
	}
	var results []*core.SearchResult
	results, err = svc.Search(ctx, tenantID, query)
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' (%s %s)[%0.3f]\n", i, hit.Memory.Content, hit.Memory.SourceType, hit.Memory.Metadata.URL, hit.Score)
	}
}
