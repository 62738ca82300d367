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
	"errors"
	"fmt"
)

// Validation errors.
var (
	// ErrInvalidMemory indicates a Memory failed validation.
	ErrInvalidMemory = errors.New("invalid memory")

	// ErrInvalidBrand indicates a Brand failed validation.
	ErrInvalidBrand = errors.New("invalid brand")

	// ErrMissingContent indicates a required text field is empty.
	ErrMissingContent = errors.New("content cannot be empty")

	// ErrMissingVector indicates a memory has no embedding.
	ErrMissingVector = errors.New("vector cannot be empty")

	// ErrMissingTenant indicates a tenant or owner ID is the zero UUID.
	ErrMissingTenant = errors.New("tenant id is required")

	// ErrInvalidCapability indicates an unknown metered capability.
	ErrInvalidCapability = errors.New("invalid capability")

	// ErrInvalidDateRange indicates a campaign window that ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidURL indicates a URL that is not absolute http(s).
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidTone indicates a tone payload of an unrecognized shape.
	ErrInvalidTone = errors.New("invalid tone descriptor")
)

// Pipeline error taxonomy. Every stage translates its failures into one of these
// before returning, so callers never see a raw transport error.
var (
	// ErrTransientExternal marks rate-limited, unavailable or network failures.
	// Calls failing with it are retried.
	ErrTransientExternal = errors.New("transient external failure")

	// ErrServiceUnavailable is returned once retries of a transient failure are exhausted.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTerminalExternal marks non-retryable external failures (4xx, malformed responses).
	ErrTerminalExternal = errors.New("external service failure")

	// ErrParse marks model output that could not be parsed. See ParseError.
	ErrParse = errors.New("unparseable model output")

	// ErrInsufficientCredits is returned when a capability has no credits left.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrBootstrapFailed is returned when a tenant could not be read or created.
	ErrBootstrapFailed = errors.New("tenant bootstrap failed")

	// ErrUnknownTenant is returned when a tenant-scoped operation names a
	// brand that was never bootstrapped.
	ErrUnknownTenant = errors.New("tenant not bootstrapped")

	// ErrCrawlUnreachable is returned when every page of a crawl failed.
	ErrCrawlUnreachable = errors.New("site unreachable")

	// ErrEmptyContent is returned when pages were fetched but held no usable text.
	ErrEmptyContent = errors.New("no extractable content")
)

// ParseError carries the raw model output that failed to parse.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %v", ErrParse, e.Err)
}

// Unwrap exposes both ErrParse and the underlying decoder error.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// NewParseError wraps a decode failure together with the text that caused it.
func NewParseError(raw string, err error) *ParseError {
	return &ParseError{Raw: raw, Err: err}
}

// ErrorKind is the taxonomy bucket of an error.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindTransient
	KindServiceUnavailable
	KindTerminal
	KindParse
	KindInsufficientCredits
	KindBootstrapFailed
	KindUnknownTenant
	KindCrawlUnreachable
	KindEmptyContent
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTransient:
		return "transient"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindTerminal:
		return "terminal"
	case KindParse:
		return "parse"
	case KindInsufficientCredits:
		return "insufficient_credits"
	case KindBootstrapFailed:
		return "bootstrap_failed"
	case KindUnknownTenant:
		return "unknown_tenant"
	case KindCrawlUnreachable:
		return "crawl_unreachable"
	case KindEmptyContent:
		return "empty_content"
	default:
		return "unknown"
	}
}

// kindOrder is checked first to last; ServiceUnavailable wraps the transient
// cause, so it must be matched before ErrTransientExternal.
var kindOrder = []struct {
	target error
	kind   ErrorKind
}{
	{ErrInsufficientCredits, KindInsufficientCredits},
	{ErrBootstrapFailed, KindBootstrapFailed},
	{ErrUnknownTenant, KindUnknownTenant},
	{ErrServiceUnavailable, KindServiceUnavailable},
	{ErrParse, KindParse},
	{ErrCrawlUnreachable, KindCrawlUnreachable},
	{ErrEmptyContent, KindEmptyContent},
	{ErrTerminalExternal, KindTerminal},
	{ErrTransientExternal, KindTransient},
	{ErrInvalidMemory, KindInvalidInput},
	{ErrInvalidBrand, KindInvalidInput},
	{ErrMissingContent, KindInvalidInput},
	{ErrMissingTenant, KindInvalidInput},
	{ErrInvalidCapability, KindInvalidInput},
	{ErrInvalidDateRange, KindInvalidInput},
	{ErrInvalidURL, KindInvalidInput},
	{ErrInvalidTone, KindInvalidInput},
}

// KindOf classifies err into exactly one taxonomy kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return KindUnknown
}
