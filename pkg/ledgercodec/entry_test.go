package ledgercodec

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEntryRoundTrip(t *testing.T) {
	cases := []Entry{
		{Label: "Label2", Key: []byte("test_key"), Value: []byte("test_value"), Operation: OpUpsert},
		{Label: "Label1", Key: []byte{1, 2, 3}, Value: nil, Operation: OpDelete},
		{Label: "x", Key: []byte{}, Value: []byte{}, Operation: OpUpsert},
	}

	for _, e := range cases {
		buf := EncodeEntry(e)

		got, n, err := DecodeEntry(buf)
		if err != nil {
			t.Fatalf("DecodeEntry: %v", err)
		}
		if n != len(buf) {
			t.Errorf("DecodeEntry consumed %d bytes, want %d", n, len(buf))
		}

		want := e
		if want.Key == nil {
			want.Key = []byte{}
		}
		if want.Value == nil {
			want.Value = []byte{}
		}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestEntryConcatenationDecodesEachInTurn(t *testing.T) {
	e1 := Entry{Label: "A", Key: []byte("k1"), Value: []byte("v1"), Operation: OpUpsert}
	e2 := Entry{Label: "B", Key: []byte("k2"), Value: []byte{}, Operation: OpDelete}

	buf := append(EncodeEntry(e1), EncodeEntry(e2)...)

	got1, n1, err := DecodeEntry(buf)
	if err != nil {
		t.Fatalf("decode first entry: %v", err)
	}
	if got1.Label != "A" || got1.Operation != OpUpsert {
		t.Fatalf("first entry mismatch: %+v", got1)
	}

	got2, n2, err := DecodeEntry(buf[n1:])
	if err != nil {
		t.Fatalf("decode second entry: %v", err)
	}
	if got2.Label != "B" || got2.Operation != OpDelete {
		t.Fatalf("second entry mismatch: %+v", got2)
	}
	if n1+n2 != len(buf) {
		t.Fatalf("consumed %d+%d bytes, want %d", n1, n2, len(buf))
	}
}

func TestDecodeEntryTruncated(t *testing.T) {
	e := Entry{Label: "Label2", Key: []byte("k"), Value: []byte("v"), Operation: OpUpsert}
	buf := EncodeEntry(e)

	for n := 0; n < len(buf); n++ {
		_, _, err := DecodeEntry(buf[:n])
		if !errors.Is(err, ErrBlockCorrupted) {
			t.Fatalf("DecodeEntry(buf[:%d]) = %v, want ErrBlockCorrupted", n, err)
		}
	}
}

func TestOperationString(t *testing.T) {
	if OpUpsert.String() != "Upsert" {
		t.Errorf("OpUpsert.String() = %q", OpUpsert.String())
	}
	if OpDelete.String() != "Delete" {
		t.Errorf("OpDelete.String() = %q", OpDelete.String())
	}
}
