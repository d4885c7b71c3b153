package ledger

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderedMapPreservesInsertionOrderOnUpdate(t *testing.T) {
	m := newOrderedMap[string, int]()

	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	// Overwriting "a" must not move it to the end.
	m.Set("a", 100)

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(m.Keys(), want) {
		t.Fatalf("Keys() = %v, want %v", m.Keys(), want)
	}

	v, ok := m.Get("a")
	if !ok || v != 100 {
		t.Fatalf("Get(a) = (%d, %v), want (100, true)", v, ok)
	}
}

func TestOrderedMapDelete(t *testing.T) {
	m := newOrderedMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	if !m.Delete("b") {
		t.Fatal("Delete(b) = false, want true")
	}
	if m.Delete("b") {
		t.Fatal("second Delete(b) = true, want false")
	}

	want := []string{"a", "c"}
	if !reflect.DeepEqual(m.Keys(), want) {
		t.Fatalf("Keys() after delete = %v, want %v", m.Keys(), want)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestOrderedMapClear(t *testing.T) {
	m := newOrderedMap[string, int]()
	m.Set("a", 1)
	m.Clear()

	if m.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", m.Len())
	}
	if len(m.Keys()) != 0 {
		t.Fatalf("Keys() after Clear = %v, want empty", m.Keys())
	}
}

func TestEngineStagingOverwritePreservesPosition(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Upsert("L", []byte("a"), []byte("1")), "Upsert")
	require.NoError(t, e.Upsert("L", []byte("b"), []byte("2")), "Upsert")
	require.NoError(t, e.Upsert("L", []byte("a"), []byte("overwritten")), "Upsert")
	require.NoError(t, e.CommitBlock(), "CommitBlock")

	var keys []string
	for entry := range e.Iter("L") {
		keys = append(keys, string(entry.Key))
	}

	want := []string{"a", "b"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("Iter order = %v, want %v", keys, want)
	}

	got, err := e.Get("L", []byte("a"))
	if err != nil || string(got) != "overwritten" {
		t.Fatalf("Get(a) = (%q, %v), want (overwritten, nil)", got, err)
	}
}
