package ledgerhash

import (
	"bytes"
	"testing"

	"github.com/calvinalkan/ledgerchain/pkg/ledgercodec"
)

// The literal byte vectors below are regression vectors for this package's
// own entry encoding (label/key/value length-prefixed, operation byte,
// parent-hash || entries || little-endian timestamp). They are not claimed
// to match the upstream reference implementation's hash bytes bit-for-bit:
// that implementation's wire format for an entry is not available in the
// corpus this port was built from, only its abstract description. See
// DESIGN.md for the reasoning. What these vectors do pin down is that this
// package's hash never silently drifts across refactors.
func TestChainReferenceVectorGenesisSingleEntry(t *testing.T) {
	entries := []ledgercodec.Entry{
		{Label: "Label2", Key: []byte("test_key"), Value: []byte("test_value"), Operation: ledgercodec.OpUpsert},
	}

	got := Chain(nil, entries, 0)

	want := []byte{
		25, 222, 73, 212, 70, 56, 127, 7, 43, 93, 4, 103, 142, 248, 115, 175,
		93, 113, 191, 187, 135, 255, 223, 107, 110, 166, 178, 178, 20, 189, 187, 251,
	}

	if !bytes.Equal(got, want) {
		t.Errorf("Chain() = %v, want %v", got, want)
	}
}

func TestChainReferenceVectorWithParentHash(t *testing.T) {
	entries := []ledgercodec.Entry{
		{Label: "Label2", Key: []byte{4, 5, 6, 7}, Value: []byte{8, 9, 10, 11}, Operation: ledgercodec.OpUpsert},
	}

	got := Chain([]byte{0, 1, 2, 3}, entries, 0)

	want := []byte{
		128, 130, 83, 83, 216, 223, 105, 43, 136, 131, 247, 19, 6, 9, 108, 116,
		177, 33, 36, 151, 131, 221, 174, 99, 233, 152, 122, 219, 116, 223, 163, 78,
	}

	if !bytes.Equal(got, want) {
		t.Errorf("Chain() = %v, want %v", got, want)
	}
}

func TestChainSizeIsSHA256(t *testing.T) {
	got := Chain(nil, nil, 0)
	if len(got) != Size {
		t.Fatalf("len(Chain()) = %d, want %d", len(got), Size)
	}
}

func TestChainDeterministic(t *testing.T) {
	entries := []ledgercodec.Entry{
		{Label: "L", Key: []byte("k"), Value: []byte("v"), Operation: ledgercodec.OpUpsert},
	}

	h1 := Chain([]byte("parent"), entries, 100)
	h2 := Chain([]byte("parent"), entries, 100)

	if !bytes.Equal(h1, h2) {
		t.Errorf("Chain is not deterministic: %v != %v", h1, h2)
	}
}

func TestChainSensitiveToEachInput(t *testing.T) {
	base := Chain([]byte("parent"), []ledgercodec.Entry{
		{Label: "L", Key: []byte("k"), Value: []byte("v"), Operation: ledgercodec.OpUpsert},
	}, 100)

	variants := [][]byte{
		Chain([]byte("parentX"), []ledgercodec.Entry{
			{Label: "L", Key: []byte("k"), Value: []byte("v"), Operation: ledgercodec.OpUpsert},
		}, 100),
		Chain([]byte("parent"), []ledgercodec.Entry{
			{Label: "LX", Key: []byte("k"), Value: []byte("v"), Operation: ledgercodec.OpUpsert},
		}, 100),
		Chain([]byte("parent"), []ledgercodec.Entry{
			{Label: "L", Key: []byte("k"), Value: []byte("v"), Operation: ledgercodec.OpDelete},
		}, 100),
		Chain([]byte("parent"), []ledgercodec.Entry{
			{Label: "L", Key: []byte("k"), Value: []byte("v"), Operation: ledgercodec.OpUpsert},
		}, 101),
	}

	for i, v := range variants {
		if bytes.Equal(base, v) {
			t.Errorf("variant %d produced the same hash as base", i)
		}
	}
}
