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


package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
)

// memoryRecord is the stored form of a memory. The vector is packed as
// little-endian float32s, which JSON carries as base64.
type memoryRecord struct {
	ID         uuid.UUID           `json:"id"`
	TenantID   uuid.UUID           `json:"tenant_id"`
	Content    string              `json:"content"`
	Vector     []byte              `json:"vector"`
	SourceType core.SourceType     `json:"source_type"`
	Metadata   core.MemoryMetadata `json:"metadata"`
	CreatedAt  time.Time           `json:"created_at"`
}

// EncodeVector packs a vector as little-endian float32s.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks a vector written by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: vector of %d bytes", ErrTruncatedData, len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}

// MarshalMemory serializes a Memory to bytes.
func MarshalMemory(m *core.Memory) ([]byte, error) {
	data, err := json.Marshal(memoryRecord{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Content:    m.Content,
		Vector:     EncodeVector(m.Vector),
		SourceType: m.SourceType,
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalMemory deserializes a Memory from bytes.
func UnmarshalMemory(data []byte) (*core.Memory, error) {
	var rec memoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	vector, err := DecodeVector(rec.Vector)
	if err != nil {
		return nil, err
	}
	return &core.Memory{
		ID:         rec.ID,
		TenantID:   rec.TenantID,
		Content:    rec.Content,
		Vector:     vector,
		SourceType: rec.SourceType,
		Metadata:   rec.Metadata,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

// Marshal serializes any stored value as JSON.
func Marshal[T any](v *T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// Unmarshal deserializes a value written by Marshal.
func Unmarshal[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}
