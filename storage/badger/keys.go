package badger

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/poiesic/brandmem/core"
)

// Key prefixes for different data types
const (
	memoryPrefix    = "mem:"
	memoryDimPrefix = "memdim:"
	memoryIDSeq     = "memseq"
	creditPrefix    = "cred:"
	profilePrefix   = "prof:"
	brandPrefix     = "brand:"
	brandOwnerIndex = "brandown:"
	campaignPrefix  = "camp:"
	contentPrefix   = "cont:"
	tonePrefix      = "tone:"
)

// join concatenates a prefix and binary parts into one key.
func join(prefix string, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

// makeMemoryKey generates a composite key for a memory.
// Format: prefix:tenant(16):seq(8). BigEndian so keys sort in insertion order.
func makeMemoryKey(tenantID uuid.UUID, seq uint64) []byte {
	var s [8]byte
	binary.BigEndian.PutUint64(s[:], seq)
	return join(memoryPrefix, tenantID[:], s[:])
}

// makeMemoryTenantPrefix generates the prefix of every memory key of a tenant.
func makeMemoryTenantPrefix(tenantID uuid.UUID) []byte {
	return join(memoryPrefix, tenantID[:])
}

// makeMemoryDimKey generates the key holding a tenant's vector dimension.
func makeMemoryDimKey(tenantID uuid.UUID) []byte {
	return join(memoryDimPrefix, tenantID[:])
}

// makeCreditKey generates a key for one ledger entry.
// Format: prefix:tenant(16):capability
func makeCreditKey(tenantID uuid.UUID, capability core.Capability) []byte {
	return join(creditPrefix, tenantID[:], []byte(capability))
}

func makeProfileKey(ownerID uuid.UUID) []byte {
	return join(profilePrefix, ownerID[:])
}

func makeBrandKey(id uuid.UUID) []byte {
	return join(brandPrefix, id[:])
}

// makeBrandOwnerKey generates the unique owner index entry, whose value is the brand ID.
func makeBrandOwnerKey(ownerID uuid.UUID) []byte {
	return join(brandOwnerIndex, ownerID[:])
}

// makeArtifactKey generates a key for a generated artifact.
// Format: prefix:tenant(16):id(16). Version 7 IDs keep tenant listings in creation order.
func makeArtifactKey(prefix string, tenantID, id uuid.UUID) []byte {
	return join(prefix, tenantID[:], id[:])
}
