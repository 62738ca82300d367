package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem"
	"github.com/poiesic/brandmem/api"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/ingestion"
	"github.com/poiesic/brandmem/search"
	"github.com/urfave/cli/v2"
)

const dateLayout = "2006-01-02"

var tenantFlag = &cli.StringFlag{
	Name:     "tenant",
	Aliases:  []string{"t"},
	Usage:    "Tenant (brand) ID",
	Required: true,
}

func tenantID(c *cli.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.String("tenant"))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %q is not a tenant id", core.ErrMissingTenant, c.String("tenant"))
	}
	return id, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address; overrides server.address",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			addr := cfg.Server.Address
			if c.String("addr") != "" {
				addr = c.String("addr")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := openService(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open service: %w", err)
			}
			defer svc.Close()

			handler := api.NewHandler(svc, api.WithMetricsHandler(svc.Metrics().Handler()))
			return api.Serve(ctx, addr, handler.Router(), cfg.Server.ShutdownTimeout)
		},
	}
}

func bootstrapCommand() *cli.Command {
	return &cli.Command{
		Name:  "bootstrap",
		Usage: "Resolve an owner to their brand, creating it on first use",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "owner",
				Usage:    "Owner ID",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			owner, err := uuid.Parse(c.String("owner"))
			if err != nil {
				return fmt.Errorf("invalid owner id: %w", err)
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				brand, err := svc.Bootstrap(ctx, owner)
				if err != nil {
					return err
				}
				return printJSON(c, brand)
			})
		},
	}
}

func brandCommand() *cli.Command {
	return &cli.Command{
		Name:  "brand",
		Usage: "Save an owner's brand profile",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Usage: "Owner ID", Required: true},
			&cli.StringFlag{Name: "name", Usage: "Brand name", Required: true},
			&cli.StringFlag{Name: "website", Usage: "Brand website"},
			&cli.StringFlag{Name: "tone", Usage: "Free-text tone of voice"},
			&cli.StringFlag{Name: "audience", Usage: "Target audience"},
			&cli.StringSliceFlag{Name: "value", Usage: "Brand value (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			owner, err := uuid.Parse(c.String("owner"))
			if err != nil {
				return fmt.Errorf("invalid owner id: %w", err)
			}
			brand := &core.Brand{
				OwnerID:  owner,
				Name:     strings.TrimSpace(c.String("name")),
				Website:  strings.TrimSpace(c.String("website")),
				Tone:     core.NewUnstructuredTone(c.String("tone")),
				Audience: strings.TrimSpace(c.String("audience")),
				Values:   c.StringSlice("value"),
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				saved, err := svc.SaveBrand(ctx, brand)
				if err != nil {
					return err
				}
				return printJSON(c, saved)
			})
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Crawl a site into a tenant's memory",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			tenantFlag,
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Pages to visit including the root; 1 is a shallow scan",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "credential",
				Usage: "Reader service token for this crawl",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("exactly one url is required")
			}
			tenant, err := tenantID(c)
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				res, err := svc.Ingest(ctx, c.Args().First(), tenant, &ingestion.IngestOptions{
					MaxPages:   c.Int("max-pages"),
					Credential: c.String("credential"),
				})
				var se *ingestion.StageError
				if errors.As(err, &se) && len(se.Report) > 0 {
					_ = printJSON(c, se.Report)
				}
				if err != nil {
					return err
				}
				return printJSON(c, res)
			})
		},
	}
}

func ingestBatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest-batch",
		Usage: "Ingest many sites concurrently from a file of '<tenant-id> <url>' lines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Job file; '-' reads stdin",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "pool-size",
				Usage: "Concurrent ingestions; 0 picks a default",
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Pages per site including the root",
				Value: 1,
			},
		},
		Action: func(c *cli.Context) error {
			jobs, err := readJobs(c.String("file"), c.Int("max-pages"))
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				results, err := svc.IngestBatch(ctx, jobs, c.Int("pool-size"))
				if err != nil {
					return err
				}
				failed := 0
				for _, r := range results {
					if r.Err != nil {
						failed++
						fmt.Fprintf(c.App.Writer, "FAIL %s %s: %v\n", r.Job.TenantID, r.Job.URL, r.Err)
						continue
					}
					fmt.Fprintf(c.App.Writer, "OK   %s %s: %d chunks\n", r.Job.TenantID, r.Job.URL, r.Result.ChunksIngested)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d ingestions failed", failed, len(results))
				}
				return nil
			})
		},
	}
}

// readJobs parses a job file. Blank lines and lines starting with # are skipped.
func readJobs(path string, maxPages int) ([]ingestion.Job, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}

	var jobs []ingestion.Job
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected '<tenant-id> <url>'", line)
		}
		tenant, err := uuid.Parse(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		jobs = append(jobs, ingestion.Job{
			URL:      fields[1],
			TenantID: tenant,
			Options:  &ingestion.IngestOptions{MaxPages: maxPages},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, errors.New("no jobs found")
	}
	return jobs, nil
}

func campaignCommand() *cli.Command {
	return &cli.Command{
		Name:  "campaign",
		Usage: "Plan a campaign grounded in the tenant's memory",
		Flags: []cli.Flag{
			tenantFlag,
			&cli.StringFlag{Name: "goal", Usage: "Campaign goal", Required: true},
			&cli.StringFlag{Name: "start", Usage: "First day, YYYY-MM-DD", Required: true},
			&cli.StringFlag{Name: "end", Usage: "Last day, YYYY-MM-DD", Required: true},
		},
		Action: func(c *cli.Context) error {
			tenant, err := tenantID(c)
			if err != nil {
				return err
			}
			window, err := parseWindow(c.String("start"), c.String("end"))
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				res, err := svc.GenerateCampaign(ctx, tenant, c.String("goal"), window)
				if err != nil {
					return err
				}
				return printJSON(c, res)
			})
		},
	}
}

func parseWindow(start, end string) (core.DateRange, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("%w: start %q", core.ErrInvalidDateRange, start)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return core.DateRange{}, fmt.Errorf("%w: end %q", core.ErrInvalidDateRange, end)
	}
	window := core.DateRange{Start: s, End: e}
	return window, core.ValidateDateRange(window)
}

func contentCommand() *cli.Command {
	return &cli.Command{
		Name:  "content",
		Usage: "Write one post grounded in the tenant's memory",
		Flags: []cli.Flag{
			tenantFlag,
			&cli.StringFlag{Name: "topic", Usage: "Post topic", Required: true},
			&cli.StringFlag{Name: "platform", Usage: "Target platform, e.g. instagram or linkedin", Required: true},
		},
		Action: func(c *cli.Context) error {
			tenant, err := tenantID(c)
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				res, err := svc.GenerateContent(ctx, tenant, c.String("topic"), c.String("platform"))
				if err != nil {
					return err
				}
				return printJSON(c, res)
			})
		},
	}
}

func toneCommand() *cli.Command {
	return &cli.Command{
		Name:      "tone",
		Usage:     "Analyze the voice of a page; anonymous without --tenant",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Usage: "Tenant (brand) ID"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("exactly one url is required")
			}
			var tenant *uuid.UUID
			if c.String("tenant") != "" {
				id, err := tenantID(c)
				if err != nil {
					return err
				}
				tenant = &id
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				res, err := svc.AnalyzeTone(ctx, c.Args().First(), tenant)
				if err != nil {
					return err
				}
				return printJSON(c, res)
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Show the tenant's memories closest to a query",
		ArgsUsage: "<query...>",
		Flags:     []cli.Flag{tenantFlag},
		Action: func(c *cli.Context) error {
			tenant, err := tenantID(c)
			if err != nil {
				return err
			}
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return errors.New("a query is required")
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				results, err := svc.Search(ctx, tenant, query)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(results))
				for i, hit := range results {
					fmt.Fprintf(c.App.Writer, "%d: '%s' (%s)[%0.3f] %v\n", i, hit.Memory.Content, hit.Memory.Metadata.URL, hit.Score,
						search.MatchedTerms(hit.Memory.Content, query))
				}
				return nil
			})
		},
	}
}

func creditsCommand() *cli.Command {
	return &cli.Command{
		Name:  "credits",
		Usage: "Show or set a tenant's credit balances",
		Flags: []cli.Flag{
			tenantFlag,
			&cli.StringFlag{Name: "grant", Usage: "Capability to set (scan, campaign, content, tone)"},
			&cli.IntFlag{Name: "remaining", Usage: "Balance to set with --grant"},
		},
		Action: func(c *cli.Context) error {
			tenant, err := tenantID(c)
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *brandmem.Service) error {
				if capability := c.String("grant"); capability != "" {
					if _, err := svc.Grant(ctx, tenant, core.Capability(capability), c.Int("remaining")); err != nil {
						return err
					}
				}
				balances, err := svc.Credits(ctx, tenant)
				if err != nil {
					return err
				}
				return printJSON(c, balances)
			})
		},
	}
}
