package main

import (
	"context"
	"flag"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem"
	"github.com/poiesic/brandmem/config"
	"github.com/poiesic/brandmem/crawler"
)

// sampleBrandBook seeds a demo tenant when no source is given.
var sampleBrandBook = []crawler.Page{
	{
		URL:   "seed://harbor-coffee/about",
		Title: "About Harbor Coffee",
		Text: "Harbor Coffee started in 2016 as a single cart on the ferry pier, serving commuters before the 6:40 crossing.\n\n" +
			"We roast small batches of single origin beans every morning in a converted boathouse on the waterfront.\n\n" +
			"Every bag carries the name of the farm, the altitude and the week it was roasted, because our regulars ask.",
	},
	{
		URL:   "seed://harbor-coffee/voice",
		Title: "How we talk",
		Text: "We write the way we talk across the counter: short sentences, first names and no jargon about tasting notes.\n\n" +
			"Jokes are welcome when they are about the weather, the ferry schedule or ourselves, never about customers.\n\n" +
			"We avoid words like artisanal, curated and elevated; if a sentence would fit on any coffee shop's wall we cut it.",
	},
	{
		URL:   "seed://harbor-coffee/menu",
		Title: "Menu notes",
		Text: "The Morning Ferry is our house blend, a medium roast built to taste good with milk and in a paper cup on a cold deck.\n\n" +
			"Seasonal drinks change with the harbor calendar: a maple cortado for the regatta and iced cold brew once the swimmers return.",
	},
}

var (
	seedSource = flag.String("src", "", "file or directory of .md and .txt documents")
	tenantFlag = flag.String("tenant", "", "tenant id to seed; a new brand is bootstrapped when empty")
	configFile = flag.String("config", "", "YAML configuration file")
	batchSize  = flag.Int("batch", 5, "documents per seed call")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// pagesFromPath returns an iterator over the documents under root. Each file
// becomes one page whose URL is a file:// URL.
func pagesFromPath(root string) (iter.Seq[crawler.Page], error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	return func(yield func(crawler.Page) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".md" && ext != ".txt" {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Warn("skipping unreadable document", "path", path, "err", err)
				return nil
			}
			abs, _ := filepath.Abs(path)
			page := crawler.Page{
				URL:   "file://" + abs,
				Title: strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
				Text:  string(data),
			}
			if !yield(page) {
				return fs.SkipAll
			}
			return nil
		})
	}, nil
}

// pagesFromSlice returns an iterator over a slice of pages.
func pagesFromSlice(pages []crawler.Page) iter.Seq[crawler.Page] {
	return func(yield func(crawler.Page) bool) {
		for _, p := range pages {
			if !yield(p) {
				return
			}
		}
	}
}

// seedBatched reads pages from source and seeds them in batches. Embedding
// failures in one batch are logged and do not stop the run.
func seedBatched(ctx context.Context, svc *brandmem.Service, tenantID uuid.UUID, source iter.Seq[crawler.Page], batchSize int) (int, error) {
	batch := make([]crawler.Page, 0, batchSize)
	total := 0

	flush := func() error {
		n, err := svc.Seed(ctx, tenantID, batch)
		total += n
		if err != nil && n == 0 {
			return err
		}
		if err != nil {
			slog.Warn("some chunks were not seeded", "stored", n, "err", err)
		}
		batch = batch[:0]
		return nil
	}

	for page := range source {
		batch = append(batch, page)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile, ".env")
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	svc, err := brandmem.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer svc.Close()

	var tenantID uuid.UUID
	if *tenantFlag != "" {
		tenantID, err = uuid.Parse(*tenantFlag)
		if err != nil {
			panic(err)
		}
	} else {
		brand, err := svc.Bootstrap(ctx, uuid.New())
		if err != nil {
			panic(err)
		}
		tenantID = brand.ID
	}

	var source iter.Seq[crawler.Page]
	if *seedSource != "" {
		source, err = pagesFromPath(*seedSource)
		if err != nil {
			panic(err)
		}
	} else {
		source = pagesFromSlice(sampleBrandBook)
	}

	n, err := seedBatched(ctx, svc, tenantID, source, *batchSize)
	if err != nil {
		panic(err)
	}
	slog.Info("seeding complete", "tenant", tenantID, "memories", n)
}
