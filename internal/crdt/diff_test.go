package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/daybook/internal/models"
)

func TestDiff(t *testing.T) {
	base := []models.Record{
		rec("E1", 100, "title", "Lunch"),
		rec("E2", 100, "amount", 10),
	}

	tests := []struct {
		name        string
		before      []models.Record
		after       []models.Record
		wantUpserts []string
		wantDeletes []string
	}{
		{
			name:   "no change",
			before: base,
			after:  base,
		},
		{
			name:        "create",
			before:      base,
			after:       append(append([]models.Record{}, base...), models.Record{models.FieldID: "E3"}),
			wantUpserts: []string{"E3"},
		},
		{
			name:        "edit",
			before:      base,
			after:       []models.Record{base[0], rec("E2", 100, "amount", 20)},
			wantUpserts: []string{"E2"},
		},
		{
			name:        "delete",
			before:      base,
			after:       []models.Record{base[1]},
			wantDeletes: []string{"E1"},
		},
		{
			name:   "stamp only change is ignored",
			before: base,
			after: []models.Record{
				rec("E1", 999, "title", "Lunch", models.FieldOriginDevice, "other"),
				base[1],
			},
		},
		{
			name:        "from empty",
			before:      nil,
			after:       base,
			wantUpserts: []string{"E1", "E2"},
		},
		{
			name:        "to empty",
			before:      base,
			after:       nil,
			wantDeletes: []string{"E1", "E2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := Diff(tt.before, tt.after)
			require.NoError(t, err)

			var upserts []string
			for _, r := range ch.Upserts {
				upserts = append(upserts, r.ID())
			}
			assert.Equal(t, tt.wantUpserts, upserts)
			assert.Equal(t, tt.wantDeletes, ch.Deletes)
			assert.Equal(t, len(tt.wantUpserts) == 0 && len(tt.wantDeletes) == 0, ch.Empty())
		})
	}
}

func TestDiff_InvalidCollections(t *testing.T) {
	_, err := Diff([]models.Record{{models.FieldID: "E1"}, {models.FieldID: "E1"}}, nil)
	require.ErrorIs(t, err, models.ErrDuplicateRecordID)

	_, err = Diff(nil, []models.Record{{"title": "no id"}})
	require.ErrorIs(t, err, models.ErrRecordWithoutID)
}
