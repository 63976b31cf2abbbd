package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildwise/api/internal/store"
)

type memoryPermits struct {
	seen map[string]bool
}

func (m *memoryPermits) InsertPermitSetIfMissing(_ context.Context, set store.PermitDocumentSet) (bool, error) {
	key := set.City + "/" + set.State + "/" + set.ProjectType
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func TestPermitSetsCoverCitiesAndTypes(t *testing.T) {
	sets, err := PermitSets()
	require.NoError(t, err)
	require.Len(t, sets, 28)

	var frisco []store.PermitDocumentSet
	for _, s := range sets {
		assert.Equal(t, "TX", s.State)
		if s.City == "Frisco" {
			frisco = append(frisco, s)
		}
	}
	require.Len(t, frisco, 2)
	assert.Equal(t, "new_home", frisco[0].ProjectType)
	assert.Equal(t, []string{"75034", "75035"}, frisco[0].ZipCodes.V)
	assert.Len(t, frisco[0].Documents.V, 3)
	assert.Equal(t, "pool", frisco[1].ProjectType)
	assert.Len(t, frisco[1].Documents.V, 2)
}

func TestSeedPermitsSkipsExisting(t *testing.T) {
	w := &memoryPermits{seen: map[string]bool{"Dallas/TX/pool": true}}
	inserted, skipped, err := SeedPermits(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, 27, inserted)
	assert.Equal(t, 1, skipped)

	inserted, skipped, err = SeedPermits(context.Background(), w)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.Equal(t, 28, skipped)
}
