package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem"
	"github.com/poiesic/brandmem/ai/mock"
	"github.com/poiesic/brandmem/config"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/crawler"
	"github.com/poiesic/brandmem/storage"
	"github.com/poiesic/brandmem/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const planJSON = `{"title":"Harbor Spring","summary":"Launch","posts":[
{"date":"2025-03-01","platform":"instagram","topic":"teaser","caption":"Something is brewing","hashtags":["spring"]}]}`

type fakePages struct{}

func (fakePages) Crawl(_ context.Context, rawURL string, _ crawler.Options) (*crawler.Result, error) {
	page := crawler.Page{URL: rawURL, Title: "Harbor", Text: "Harbor Coffee roasts small batches of single origin beans every morning."}
	return &crawler.Result{
		Pages:  []crawler.Page{page},
		Report: []crawler.PageReport{{URL: rawURL, Status: crawler.StatusSuccess}},
	}, nil
}

// newStores returns in-memory stores that outlive the services opened over
// them, so state carries across commands of one test.
func newStores(t *testing.T) *storage.Stores {
	t.Helper()
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

// bootstrapTenant creates a brand in stores and returns its ID.
func bootstrapTenant(t *testing.T, stores *storage.Stores) string {
	t.Helper()
	ctx := context.Background()
	owner := uuid.New()
	_, err := stores.Brands.CreateProfile(ctx, owner)
	require.NoError(t, err)
	brand, err := stores.Brands.InsertBrand(ctx, &core.Brand{OwnerID: owner, Name: "Harbor Coffee"})
	require.NoError(t, err)
	return brand.ID.String()
}

// runApp runs the CLI against an in-memory service whose generator answers
// with response, returning stdout. A nil shared gets fresh stores per run.
func runApp(t *testing.T, shared *storage.Stores, response string, args ...string) (string, error) {
	t.Helper()
	orig := openService
	t.Cleanup(func() { openService = orig })

	openService = func(context.Context, *config.Config) (*brandmem.Service, error) {
		var stores *storage.Stores
		if shared != nil {
			view := *shared
			view.Closer = nil
			stores = &view
		} else {
			var err error
			if stores, err = badger.NewMemoryStores(); err != nil {
				return nil, err
			}
		}
		provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockGenerator("mock", response))
		return brandmem.New(stores, provider, brandmem.WithPageSource(fakePages{}))
	}

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	full := append([]string{"brandmem", "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...)
	err := app.Run(full)
	return out.String(), err
}

func TestCommands(t *testing.T) {
	stores := newStores(t)
	tenant := bootstrapTenant(t, stores)

	t.Run("credits grant", func(t *testing.T) {
		out, err := runApp(t, stores, "{}", "credits", "--tenant", tenant, "--grant", "scan", "--remaining", "7")
		require.NoError(t, err)
		assert.Contains(t, out, `"scan": 7`)
		assert.Contains(t, out, `"tone": 3`)
	})

	t.Run("credits rejects unknown capability", func(t *testing.T) {
		_, err := runApp(t, stores, "{}", "credits", "--tenant", tenant, "--grant", "yodel", "--remaining", "1")
		assert.ErrorIs(t, err, core.ErrInvalidCapability)
	})

	t.Run("brand save", func(t *testing.T) {
		out, err := runApp(t, stores, "{}", "brand", "--owner", uuid.NewString(),
			"--name", "Harbor Coffee", "--tone", "warm", "--value", "craft", "--value", "community")
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "Harbor Coffee"`)
		assert.Contains(t, out, `"tone": "warm"`)
		assert.Contains(t, out, `"community"`)
	})

	t.Run("brand rejects bad website", func(t *testing.T) {
		_, err := runApp(t, stores, "{}", "brand", "--owner", uuid.NewString(),
			"--name", "Harbor Coffee", "--website", "ftp://harbor.example")
		assert.ErrorIs(t, err, core.ErrInvalidURL)
	})

	t.Run("ingest rejects unknown tenant", func(t *testing.T) {
		_, err := runApp(t, stores, "{}", "ingest", "--tenant", uuid.NewString(), "https://harbor.example")
		assert.ErrorIs(t, err, core.ErrUnknownTenant)
	})

	t.Run("ingest", func(t *testing.T) {
		out, err := runApp(t, stores, "{}", "ingest", "--tenant", tenant, "https://harbor.example")
		require.NoError(t, err)
		assert.Contains(t, out, `"chunks_ingested": 1`)
	})

	t.Run("campaign", func(t *testing.T) {
		out, err := runApp(t, stores, planJSON, "campaign", "--tenant", tenant,
			"--goal", "spring launch", "--start", "2025-03-01", "--end", "2025-03-01")
		require.NoError(t, err)
		assert.Contains(t, out, "Harbor Spring")
	})

	t.Run("campaign rejects backwards dates", func(t *testing.T) {
		_, err := runApp(t, stores, planJSON, "campaign", "--tenant", tenant,
			"--goal", "spring launch", "--start", "2025-03-05", "--end", "2025-03-01")
		assert.ErrorIs(t, err, core.ErrInvalidDateRange)
	})

	t.Run("anonymous tone", func(t *testing.T) {
		out, err := runApp(t, stores, `{"tone":"Warm","adjectives":["friendly"],"description":"Neighborly","archetype":"Caregiver"}`,
			"tone", "harbor.example")
		require.NoError(t, err)
		assert.Contains(t, out, `"archetype": "Caregiver"`)
	})

	t.Run("search on empty store", func(t *testing.T) {
		out, err := runApp(t, stores, "{}", "search", "--tenant", uuid.NewString(), "single", "origin")
		require.NoError(t, err)
		assert.Contains(t, out, "Found 0 hits")
	})

	t.Run("invalid tenant", func(t *testing.T) {
		_, err := runApp(t, stores, "{}", "search", "--tenant", "nope", "coffee")
		assert.ErrorIs(t, err, core.ErrMissingTenant)
	})

	t.Run("tenant is required", func(t *testing.T) {
		_, err := runApp(t, stores, "{}", "content", "--topic", "roast", "--platform", "instagram")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tenant")
	})
}

func TestReembedCommandFlags(t *testing.T) {
	t.Run("embedding-model is required", func(t *testing.T) {
		_, err := runApp(t, nil, "{}", "reembed", "--from", "/tmp/a", "--to", "/tmp/b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})

	t.Run("batch-size must be positive", func(t *testing.T) {
		_, err := runApp(t, nil, "{}", "reembed", "--from", "/tmp/a", "--to", "/tmp/b",
			"--embedding-model", "nomic-embed-text", "--batch-size", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch-size must be greater than 0")
	})

	t.Run("defaults", func(t *testing.T) {
		cmd := reembedCommand()
		defaults := map[string]any{}
		for _, f := range cmd.Flags {
			switch fl := f.(type) {
			case *cli.IntFlag:
				defaults[fl.Name] = fl.Value
			case *cli.StringFlag:
				defaults[fl.Name] = fl.Value
			}
		}
		assert.Equal(t, 100, defaults["batch-size"])
		assert.Equal(t, 100, defaults["report-interval"])
		assert.Equal(t, 3, defaults["max-retries"])
		assert.Equal(t, config.StorageBadger, defaults["from-backend"])
	})
}

func TestReadJobs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	path := filepath.Join(t.TempDir(), "jobs.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nightly\n"+a.String()+" https://a.example\n\n"+b.String()+" https://b.example\n"), 0o600))

	jobs, err := readJobs(path, 5)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, a, jobs[0].TenantID)
	assert.Equal(t, "https://b.example", jobs[1].URL)
	assert.Equal(t, 5, jobs[1].Options.MaxPages)

	bad := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("https://a.example\n"), 0o600))
	_, err = readJobs(bad, 1)
	assert.ErrorContains(t, err, "line 1")

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = readJobs(empty, 1)
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	newTestApp := func(check func(c *cli.Context) error) *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: check,
		}
	}
	noop := func(*cli.Context) error { return nil }

	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
		t.Run(level, func(t *testing.T) {
			require.NoError(t, newTestApp(noop).Run([]string{"test", "--log-level", level}))
		})
	}

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newTestApp(noop).Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log-level flag has alias -l", func(t *testing.T) {
		err := newTestApp(func(c *cli.Context) error {
			assert.Equal(t, "debug", c.String("log-level"))
			return nil
		}).Run([]string{"test", "-l", "debug"})
		require.NoError(t, err)
	})
}
