package core

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidateMemory(t *testing.T) {
	tenant := uuid.New()

	tests := []struct {
		name    string
		memory  *Memory
		wantErr error
	}{
		{
			name: "valid memory",
			memory: &Memory{
				TenantID: tenant,
				Content:  "We roast coffee in small batches.",
				Vector:   []float32{0.1, 0.2},
			},
			wantErr: nil,
		},
		{
			name:    "nil memory",
			memory:  nil,
			wantErr: ErrInvalidMemory,
		},
		{
			name: "missing tenant",
			memory: &Memory{
				Content: "text",
				Vector:  []float32{1},
			},
			wantErr: ErrMissingTenant,
		},
		{
			name: "blank content",
			memory: &Memory{
				TenantID: tenant,
				Content:  "   ",
				Vector:   []float32{1},
			},
			wantErr: ErrMissingContent,
		},
		{
			name: "missing vector",
			memory: &Memory{
				TenantID: tenant,
				Content:  "text",
			},
			wantErr: ErrMissingVector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMemory(tt.memory)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMemory() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMemory() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidMemory) {
				t.Errorf("ValidateMemory() error = %v, should wrap ErrInvalidMemory", err)
			}
		})
	}
}

func TestValidateBrand(t *testing.T) {
	tests := []struct {
		name    string
		brand   *Brand
		wantErr error
	}{
		{"valid", &Brand{OwnerID: uuid.New(), Name: "Acme", Website: "https://acme.test"}, nil},
		{"no website", &Brand{OwnerID: uuid.New()}, nil},
		{"nil", nil, ErrInvalidBrand},
		{"missing owner", &Brand{Name: "Acme"}, ErrMissingTenant},
		{"bad website", &Brand{OwnerID: uuid.New(), Website: "ftp://acme.test"}, ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBrand(tt.brand)
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateBrand() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateBrand() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCapability(t *testing.T) {
	for _, c := range Capabilities {
		if err := ValidateCapability(c); err != nil {
			t.Errorf("ValidateCapability(%q) error = %v", c, err)
		}
	}
	if err := ValidateCapability("teleport"); !errors.Is(err, ErrInvalidCapability) {
		t.Errorf("ValidateCapability(teleport) error = %v, want ErrInvalidCapability", err)
	}
}

func TestValidateDateRange(t *testing.T) {
	now := time.Now()

	if err := ValidateDateRange(DateRange{Start: now, End: now.Add(48 * time.Hour)}); err != nil {
		t.Errorf("ValidateDateRange() error = %v, want nil", err)
	}
	if err := ValidateDateRange(DateRange{Start: now, End: now.Add(-time.Hour)}); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("ValidateDateRange() reversed range error = %v", err)
	}
	if err := ValidateDateRange(DateRange{Start: now}); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("ValidateDateRange() missing end error = %v", err)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"https://acme.test/about", "https://acme.test/about", false},
		{"acme.test", "https://acme.test", false},
		{"  http://acme.test  ", "http://acme.test", false},
		{"", "", true},
		{"ftp://acme.test/file", "", true},
		{"https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := ValidateURL(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("ValidateURL(%q) error = %v, want ErrInvalidURL", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateURL(%q) error = %v", tt.raw, err)
			}
			if u.String() != tt.want {
				t.Errorf("ValidateURL(%q) = %q, want %q", tt.raw, u.String(), tt.want)
			}
		})
	}
}
