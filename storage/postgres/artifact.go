package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/poiesic/brandmem/core"
	"github.com/poiesic/brandmem/storage"
)

// ArtifactRepository implements storage.ArtifactRepository on Postgres.
type ArtifactRepository struct {
	db *sqlx.DB
}

var _ storage.ArtifactRepository = (*ArtifactRepository)(nil)

// NewArtifactRepository returns an artifact repository backed by db.
func NewArtifactRepository(db *sqlx.DB) storage.ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Close is a no-op; the Stores closer owns db.
func (r *ArtifactRepository) Close() error {
	return nil
}

type campaignRow struct {
	ID         uuid.UUID `db:"id"`
	TenantID   uuid.UUID `db:"tenant_id"`
	Goal       string    `db:"goal"`
	RangeStart time.Time `db:"range_start"`
	RangeEnd   time.Time `db:"range_end"`
	Plan       []byte    `db:"plan"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row *campaignRow) campaign() (*core.Campaign, error) {
	var plan core.CampaignPlan
	if err := json.Unmarshal(row.Plan, &plan); err != nil {
		return nil, fmt.Errorf("%w: campaign plan: %w", storage.ErrSerializationFailed, err)
	}
	return &core.Campaign{
		ID:        row.ID,
		TenantID:  row.TenantID,
		Goal:      row.Goal,
		Range:     core.DateRange{Start: row.RangeStart, End: row.RangeEnd},
		Plan:      plan,
		CreatedAt: row.CreatedAt,
	}, nil
}

const campaignColumns = `id, tenant_id, goal, range_start, range_end, plan, created_at`

func identity(id uuid.UUID, createdAt time.Time) (uuid.UUID, time.Time, error) {
	if id == uuid.Nil {
		v7, err := uuid.NewV7()
		if err != nil {
			return uuid.Nil, time.Time{}, err
		}
		id = v7
	}
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return id, createdAt, nil
}

func (r *ArtifactRepository) SaveCampaign(ctx context.Context, campaign *core.Campaign) (*core.Campaign, error) {
	if err := core.ValidateTenant(campaign.TenantID); err != nil {
		return nil, err
	}
	saved := *campaign
	var err error
	if saved.ID, saved.CreatedAt, err = identity(saved.ID, saved.CreatedAt); err != nil {
		return nil, err
	}
	plan, err := json.Marshal(saved.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		saved.ID, saved.TenantID, saved.Goal, saved.Range.Start, saved.Range.End, plan, saved.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *ArtifactRepository) GetCampaign(ctx context.Context, tenantID, id uuid.UUID) (*core.Campaign, error) {
	var row campaignRow
	err := r.db.GetContext(ctx, &row,
		`SELECT `+campaignColumns+` FROM campaigns WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return nil, translate(err)
	}
	return row.campaign()
}

func (r *ArtifactRepository) ListCampaigns(ctx context.Context, tenantID uuid.UUID) ([]*core.Campaign, error) {
	var rows []campaignRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+campaignColumns+` FROM campaigns WHERE tenant_id = $1 ORDER BY created_at, id`,
		tenantID,
	)
	if err != nil {
		return nil, translate(err)
	}

	out := make([]*core.Campaign, 0, len(rows))
	for i := range rows {
		c, err := rows[i].campaign()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type contentRow struct {
	ID        uuid.UUID      `db:"id"`
	TenantID  uuid.UUID      `db:"tenant_id"`
	Topic     string         `db:"topic"`
	Platform  string         `db:"platform"`
	Content   string         `db:"content"`
	Hashtags  pq.StringArray `db:"hashtags"`
	CreatedAt time.Time      `db:"created_at"`
}

const contentColumns = `id, tenant_id, topic, platform, content, hashtags, created_at`

func (r *ArtifactRepository) SaveContent(ctx context.Context, piece *core.ContentPiece) (*core.ContentPiece, error) {
	if err := core.ValidateTenant(piece.TenantID); err != nil {
		return nil, err
	}
	saved := *piece
	var err error
	if saved.ID, saved.CreatedAt, err = identity(saved.ID, saved.CreatedAt); err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO content_pieces (`+contentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		saved.ID, saved.TenantID, saved.Topic, saved.Platform, saved.Content,
		pq.Array(saved.Hashtags), saved.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}

func (r *ArtifactRepository) ListContent(ctx context.Context, tenantID uuid.UUID) ([]*core.ContentPiece, error) {
	var rows []contentRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+contentColumns+` FROM content_pieces WHERE tenant_id = $1 ORDER BY created_at, id`,
		tenantID,
	)
	if err != nil {
		return nil, translate(err)
	}

	out := make([]*core.ContentPiece, 0, len(rows))
	for _, row := range rows {
		out = append(out, &core.ContentPiece{
			ID:        row.ID,
			TenantID:  row.TenantID,
			Topic:     row.Topic,
			Platform:  row.Platform,
			Content:   row.Content,
			Hashtags:  []string(row.Hashtags),
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (r *ArtifactRepository) SaveToneProfile(ctx context.Context, profile *core.ToneProfile) (*core.ToneProfile, error) {
	if err := core.ValidateTenant(profile.TenantID); err != nil {
		return nil, err
	}
	saved := *profile
	var err error
	if saved.ID, saved.CreatedAt, err = identity(saved.ID, saved.CreatedAt); err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tone_profiles (id, tenant_id, url, tone, adjectives, description, archetype, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		saved.ID, saved.TenantID, saved.URL, saved.Tone, pq.Array(saved.Adjectives),
		saved.Description, saved.Archetype, saved.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &saved, nil
}
