package crdt

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/daybook/internal/models"
)

func rec(id string, ts int64, fields ...any) models.Record {
	r := models.Record{models.FieldID: id, models.FieldUpdatedAtMs: ts}
	for i := 0; i+1 < len(fields); i += 2 {
		r[fields[i].(string)] = fields[i+1]
	}
	return r
}

func upsert(r models.Record, device string) models.Operation {
	return models.NewUpsert(r, r.UpdatedAtMs(), device)
}

func ids(records []models.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID())
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name       string
		remote     []models.Record
		ops        []models.Operation
		tombstones []models.Tombstone
		want       []models.Record
	}{
		{
			name:   "empty inputs",
			remote: nil,
			want:   []models.Record{},
		},
		{
			name:   "remote only",
			remote: []models.Record{rec("E2", 5), rec("E1", 3)},
			want:   []models.Record{rec("E1", 3), rec("E2", 5)},
		},
		{
			name:   "newer local upsert wins",
			remote: []models.Record{rec("E1", 100, "title", "old")},
			ops:    []models.Operation{upsert(rec("E1", 200, "title", "new"), "a")},
			want:   []models.Record{rec("E1", 200, "title", "new", models.FieldOriginDevice, "a")},
		},
		{
			name:   "older local upsert loses",
			remote: []models.Record{rec("E1", 300, "title", "remote")},
			ops:    []models.Operation{upsert(rec("E1", 200, "title", "local"), "a")},
			want:   []models.Record{rec("E1", 300, "title", "remote")},
		},
		{
			name:   "equal timestamp favours local operation",
			remote: []models.Record{rec("E1", 200, "title", "remote")},
			ops:    []models.Operation{upsert(rec("E1", 200, "title", "local"), "a")},
			want:   []models.Record{rec("E1", 200, "title", "local", models.FieldOriginDevice, "a")},
		},
		{
			name:   "delete removes remote record",
			remote: []models.Record{rec("E1", 100), rec("E2", 100)},
			ops:    []models.Operation{models.NewDelete("E1", 150, "a")},
			want:   []models.Record{rec("E2", 100)},
		},
		{
			name:       "tombstone beats newer upsert",
			remote:     []models.Record{rec("E1", 900, "title", "edited elsewhere")},
			tombstones: []models.Tombstone{{ID: "E1", DeletedAtMs: 100, Device: "a"}},
			want:       []models.Record{},
		},
		{
			name:   "upsert after delete in same pass is skipped",
			remote: nil,
			ops: []models.Operation{
				models.NewDelete("E1", 100, "a"),
				upsert(rec("E1", 200, "title", "again"), "a"),
			},
			want: []models.Record{},
		},
		{
			name: "ops re-sorted by timestamp",
			ops: []models.Operation{
				upsert(rec("E1", 300, "v", 3), "a"),
				upsert(rec("E1", 100, "v", 1), "a"),
				upsert(rec("E1", 200, "v", 2), "a"),
			},
			want: []models.Record{rec("E1", 300, "v", 3, models.FieldOriginDevice, "a")},
		},
		{
			name: "equal timestamps keep append order",
			ops: []models.Operation{
				upsert(rec("E1", 100, "v", "first"), "a"),
				upsert(rec("E1", 100, "v", "second"), "a"),
			},
			want: []models.Record{rec("E1", 100, "v", "second", models.FieldOriginDevice, "a")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.remote, tt.ops, tt.tombstones)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	remote := []models.Record{rec("E1", 100, "title", "r")}
	ops := []models.Operation{
		upsert(rec("E1", 300, "title", "b"), "a"),
		upsert(rec("E2", 200), "a"),
	}

	_ = Merge(remote, ops, nil)

	assert.Equal(t, "r", remote[0]["title"])
	assert.Equal(t, "E1", ops[0].ID, "caller order must be preserved")
	_, stamped := ops[1].Record[models.FieldOriginDevice]
	assert.False(t, stamped)
}

func TestMergeWithStats(t *testing.T) {
	res := MergeWithStats(
		[]models.Record{rec("E1", 500), rec("E3", 1)},
		[]models.Operation{
			upsert(rec("E1", 100), "a"),
			upsert(rec("E2", 100), "a"),
			upsert(rec("E3", 100), "a"),
		},
		[]models.Tombstone{{ID: "E3"}},
	)

	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, res.Stale)
	assert.Equal(t, 1, res.Suppressed)
	assert.Equal(t, 1, res.Deleted)
	assert.Equal(t, []string{"E1", "E2"}, ids(res.Records))
}

// Запись, воскрешенная у другого устройства, возвращается: у A нет надгробия E1.
func TestMerge_ScenarioRemoteDeleteLocalCreate(t *testing.T) {
	// B уже удалил E1 и записал снимок без него
	remoteAfterB := []models.Record{}

	opsA := []models.Operation{upsert(rec("E1", 1000, "title", "Lunch"), "device-a")}

	got := Merge(remoteAfterB, opsA, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "E1", got[0].ID())
	assert.Equal(t, "Lunch", got[0]["title"])
	assert.Equal(t, int64(1000), got[0].UpdatedAtMs())
}

func TestMerge_ScenarioSequentialEdit(t *testing.T) {
	ops := []models.Operation{
		upsert(rec("E2", 100, "amount", 10), "d"),
		upsert(rec("E2", 200, "amount", 20), "d"),
	}

	got := Merge(nil, ops, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "E2", got[0].ID())
	assert.Equal(t, 20, got[0]["amount"])
}

// Known tradeoff: a locally recorded delete removes a newer edit made elsewhere.
func TestMerge_TombstoneBeatsNewerRemoteEdit(t *testing.T) {
	remote := []models.Record{rec("E5", 5000, "title", "B edited")}
	ops := []models.Operation{models.NewDelete("E5", 1000, "device-a")}
	tombs := []models.Tombstone{{ID: "E5", DeletedAtMs: 1000, Device: "device-a"}}

	assert.Empty(t, Merge(remote, ops, tombs))
}

func randomOps(r *rand.Rand, device string, n int, tsBase int64, withDeletes bool) ([]models.Operation, []models.Tombstone) {
	var ops []models.Operation
	var tombs []models.Tombstone
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("E%d", r.Intn(8))
		ts := tsBase + int64(r.Intn(1000))*10
		if withDeletes && r.Intn(4) == 0 {
			ops = append(ops, models.NewDelete(id, ts, device))
			tombs = append(tombs, models.Tombstone{ID: id, DeletedAtMs: ts, Device: device})
			continue
		}
		ops = append(ops, upsert(rec(id, ts, "v", fmt.Sprintf("%s-%d", device, i)), device))
	}
	return ops, tombs
}

func TestMerge_NoResurrectionProperty(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		var remote []models.Record
		for i := 0; i < 8; i++ {
			if r.Intn(2) == 0 {
				remote = append(remote, rec(fmt.Sprintf("E%d", i), int64(r.Intn(20000))))
			}
		}
		ops, tombs := randomOps(r, "a", 12, 0, true)
		extra := models.Tombstone{ID: fmt.Sprintf("E%d", r.Intn(8))}
		tombs = append(tombs, extra)

		got := Merge(remote, ops, tombs)

		present := make(map[string]bool)
		for _, rr := range got {
			present[rr.ID()] = true
		}
		for _, tomb := range tombs {
			assert.False(t, present[tomb.ID], "iteration %d: tombstoned id %s survived", iter, tomb.ID)
		}
	}
}

func TestMerge_LWWDeterminismProperty(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for iter := 0; iter < 200; iter++ {
		t1 := int64(r.Intn(10000))
		t2 := t1 + 1 + int64(r.Intn(10000))
		older := upsert(rec("E1", t1, "v", "older"), "a")
		newer := upsert(rec("E1", t2, "v", "newer"), "b")

		for _, ops := range [][]models.Operation{{older, newer}, {newer, older}} {
			got := Merge(nil, ops, nil)
			require.Len(t, got, 1)
			assert.Equal(t, "newer", got[0]["v"])
		}

		// и когда одна из версий уже лежит в снимке
		got := Merge([]models.Record{newer.Record}, []models.Operation{older}, nil)
		assert.Equal(t, "newer", got[0]["v"])
		got = Merge([]models.Record{older.Record}, []models.Operation{newer}, nil)
		assert.Equal(t, "newer", got[0]["v"])
	}
}

func TestMerge_UpsertOnlyOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(99))

	for iter := 0; iter < 100; iter++ {
		// разные базы гарантируют различные метки у устройств
		opsA, _ := randomOps(r, "a", 10, 1, false)
		opsB, _ := randomOps(r, "b", 10, 5, false)
		var remote []models.Record

		ab := Merge(Merge(remote, opsA, nil), opsB, nil)
		ba := Merge(Merge(remote, opsB, nil), opsA, nil)

		if diff := cmp.Diff(ab, ba); diff != "" {
			t.Fatalf("iteration %d: merge order changed result (-ab +ba):\n%s", iter, diff)
		}
	}
}

// Два устройства независимо копят изменения, затем синхронизируются A, B, A.
// После этого локальные состояния обоих устройств совпадают со снимком.
func TestMerge_ConvergenceAcrossDevices(t *testing.T) {
	r := rand.New(rand.NewSource(2026))

	for iter := 0; iter < 100; iter++ {
		var shared []models.Record
		for i := 0; i < 4; i++ {
			shared = append(shared, rec(fmt.Sprintf("E%d", i), 1))
		}

		opsA, tombsA := randomOps(r, "a", 8, 1, true)
		opsB, tombsB := randomOps(r, "b", 8, 5, true)

		// A синхронизируется первым
		remote := Merge(shared, opsA, tombsA)
		localA := remote

		// B сливает свой журнал со снимком, уже содержащим изменения A
		remote = Merge(remote, opsB, tombsB)
		localB := remote

		// A синхронизируется повторно с пустым журналом
		localA = Merge(remote, nil, nil)

		assert.True(t, models.CollectionsEqual(localA, localB), "iteration %d: devices diverged", iter)
		assert.True(t, models.CollectionsEqual(localA, remote), "iteration %d: device A differs from snapshot", iter)

		// повторное слияние без изменений ничего не меняет
		assert.True(t, models.CollectionsEqual(Merge(remote, nil, nil), remote))
	}
}
