package page_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpool/pkg/page"
	"ledgerpool/pkg/primitives"
)

func TestID_SerializeRoundTrips(t *testing.T) {
	tests := []struct {
		name       string
		tableID    int32
		pageNumber int32
	}{
		{"zero", 0, 0},
		{"small", 1, 2},
		{"large", 1 << 30, 1<<30 + 7},
		{"negative", -5, -9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := page.New(primitives.TableID(tt.tableID), primitives.PageNumber(tt.pageNumber))
			got, err := page.Deserialize(id.Serialize())
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}
}

func TestDeserialize_RejectsMalformedLength(t *testing.T) {
	_, err := page.Deserialize([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestID_UsableAsMapKey(t *testing.T) {
	a := page.New(1, 1)
	b := page.New(1, 1)
	c := page.New(1, 2)

	m := map[page.ID]string{a: "a"}
	assert.Equal(t, "a", m[b], "equal field values must be the same key")
	_, ok := m[c]
	assert.False(t, ok)
}

func TestID_HashCodeDistinguishesFields(t *testing.T) {
	a := page.New(1, 2)
	b := page.New(2, 1)
	assert.NotEqual(t, a.HashCode(), b.HashCode(),
		"swapped table and page number should hash differently")
	assert.Equal(t, a.HashCode(), page.New(1, 2).HashCode())
}

func TestSetSizeForTest_RoundTrips(t *testing.T) {
	page.SetSizeForTest(512)
	assert.Equal(t, 512, page.Size())
	page.ResetSize()
	assert.Equal(t, page.DefaultSize, page.Size())
}
