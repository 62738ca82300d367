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


package core

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ValidateMemory validates a Memory before it is appended to the store.
//
// Validation rules:
//   - TenantID must be set
//   - Content must not be blank
//   - Vector must not be empty
//
// NOT validated (assigned by the store):
//   - ID
//   - CreatedAt
func ValidateMemory(m *Memory) error {
	if m == nil {
		return fmt.Errorf("%w: memory is nil", ErrInvalidMemory)
	}

	if m.TenantID == uuid.Nil {
		return fmt.Errorf("%w: %w", ErrInvalidMemory, ErrMissingTenant)
	}

	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMemory, ErrMissingContent)
	}

	if len(m.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMemory, ErrMissingVector)
	}

	return nil
}

// ValidateBrand validates a Brand before it is saved.
func ValidateBrand(b *Brand) error {
	if b == nil {
		return fmt.Errorf("%w: brand is nil", ErrInvalidBrand)
	}

	if b.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: %w", ErrInvalidBrand, ErrMissingTenant)
	}

	if b.Website != "" {
		if _, err := ValidateURL(b.Website); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBrand, err)
		}
	}

	return nil
}

// ValidateTenant checks that a tenant ID is set.
func ValidateTenant(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrMissingTenant
	}
	return nil
}

// ValidateCapability checks that c is a known capability.
func ValidateCapability(c Capability) error {
	for _, known := range Capabilities {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidCapability, c)
}

// ValidateDateRange checks that both ends are set and End is not before Start.
func ValidateDateRange(r DateRange) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidDateRange)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidDateRange,
			r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	return nil
}

// ValidateURL parses raw as an absolute http or https URL.
// A missing scheme defaults to https.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}
