// Package brandmem assembles the ingestion, retrieval and generation
// packages into a single Service.
//
// A Service owns its stores and AI provider and closes them on Close:
//
//	cfg, err := config.Load("brandmem.yaml", ".env")
//	svc, err := brandmem.Open(ctx, cfg)
//	defer svc.Close()
//
//	brand, err := svc.Bootstrap(ctx, ownerID)
//	res, err := svc.Ingest(ctx, "https://example.com", brand.ID, &ingestion.IngestOptions{MaxPages: 5})
//	plan, err := svc.GenerateCampaign(ctx, brand.ID, "spring launch", window)
package brandmem
