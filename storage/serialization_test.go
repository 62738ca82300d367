package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalMemory(t *testing.T) {
	m := &core.Memory{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		Content:    "We roast small batches every Monday.",
		Vector:     []float32{0.25, -1.5, 3.0e-7, 0},
		SourceType: core.SourceTypeWebsite,
		Metadata:   core.MemoryMetadata{URL: "https://acme.test/", Title: "Acme"},
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	data, err := MarshalMemory(m)
	require.NoError(t, err)

	decoded, err := UnmarshalMemory(data)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestUnmarshalMemory_Invalid(t *testing.T) {
	_, err := UnmarshalMemory([]byte("not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestDecodeVector_Truncated(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestMarshalBrandKeepsTone(t *testing.T) {
	brand := &core.Brand{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Name:    "Acme",
		Tone:    core.NewStructuredTone(core.StructuredTone{Archetype: "Sage", Adjectives: []string{"calm"}}),
		Values:  []string{"craft"},
	}

	data, err := Marshal(brand)
	require.NoError(t, err)

	decoded, err := Unmarshal[core.Brand](data)
	require.NoError(t, err)
	assert.Equal(t, brand.Tone.String(), decoded.Tone.String())
	assert.Equal(t, core.ToneStructured, decoded.Tone.Kind())
	assert.Equal(t, brand.Values, decoded.Values)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestStoresClose(t *testing.T) {
	closed := false
	s := &Stores{Closer: func() error { closed = true; return nil }}
	require.NoError(t, s.Close())
	assert.True(t, closed)
}
