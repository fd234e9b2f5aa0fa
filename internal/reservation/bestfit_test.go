package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBestFitFeasible(t *testing.T) {
	tests := []struct {
		name   string
		groups []int
		tables []TableCapacity
		want   bool
	}{
		{
			name:   "single group fits smallest adequate table",
			groups: []int{2},
			tables: []TableCapacity{{ID: 1, Capacity: 2}, {ID: 2, Capacity: 4}},
			want:   true,
		},
		{
			name:   "two groups exactly fill two tables",
			groups: []int{4, 2},
			tables: []TableCapacity{{ID: 1, Capacity: 2}, {ID: 2, Capacity: 4}},
			want:   true,
		},
		{
			name:   "three groups exceed two tables",
			groups: []int{4, 2, 2},
			tables: []TableCapacity{{ID: 1, Capacity: 2}, {ID: 2, Capacity: 4}},
			want:   false,
		},
		{
			name:   "no table big enough",
			groups: []int{6},
			tables: []TableCapacity{{ID: 1, Capacity: 2}, {ID: 2, Capacity: 4}},
			want:   false,
		},
		{
			name:   "empty groups always feasible",
			groups: nil,
			tables: []TableCapacity{{ID: 1, Capacity: 2}},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BestFitFeasible(tt.groups, tt.tables))
		})
	}
}

func TestBestFitFeasible_Deterministic(t *testing.T) {
	groups := []int{4, 4, 2, 2}
	tables := []TableCapacity{{ID: 3, Capacity: 4}, {ID: 1, Capacity: 2}, {ID: 2, Capacity: 2}, {ID: 4, Capacity: 4}}

	first := BestFitFeasible(groups, tables)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BestFitFeasible(groups, tables))
	}
}

func TestMaxCapacity(t *testing.T) {
	assert.Equal(t, 0, MaxCapacity(nil))
	assert.Equal(t, 6, MaxCapacity([]TableCapacity{{ID: 1, Capacity: 2}, {ID: 2, Capacity: 6}, {ID: 3, Capacity: 4}}))
}

func TestOffsets_Order(t *testing.T) {
	// Property P8: alternatives must be tried/reported in exactly this order.
	assert.Equal(t, 4, len(Offsets))
	assert.True(t, Offsets[0] < 0)
	assert.True(t, Offsets[1] > 0 && Offsets[1] < Offsets[3])
	assert.Equal(t, -30*time.Minute, Offsets[0])
	assert.Equal(t, 30*time.Minute, Offsets[1])
	assert.Equal(t, -60*time.Minute, Offsets[2])
	assert.Equal(t, 60*time.Minute, Offsets[3])
}
