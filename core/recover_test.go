package core

import (
	"testing"
)

func TestRebuildXRef(t *testing.T) {
	data := []byte("%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n" +
		"3 0 obj\n<< /Length 20 >>\nstream\n7 0 obj (fake) endobj\nendstream\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [] /Count 0 /Redefined true >>\nendobj\n" +
		"trailer\n<< /Root 1 0 R /Size 2 /Prev 999 >>\n" +
		"startxref\n123456\n%%EOF\n")

	table, err := RebuildXRef(data)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := table.Get(7); ok {
		t.Error("marker inside stream data was treated as an object")
	}
	for _, num := range []int{1, 2, 3} {
		if _, ok := table.Get(num); !ok {
			t.Errorf("object %d not found", num)
		}
	}

	obj := objectAt(t, data, table.Entries[2])
	if !obj.(Dict).Has("Redefined") {
		t.Error("object 2 should resolve to its last definition")
	}

	if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
		t.Error("trailer /Root not recovered")
	}
	if size, _ := table.Trailer.GetInt("Size"); size != 4 {
		t.Errorf("/Size = %d, want 4", size)
	}
	if table.Trailer.Has("Prev") {
		t.Error("/Prev should be dropped from a rebuilt trailer")
	}
}

func TestRebuildXRefWithoutTrailer(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n5 0 obj\n(x)\nendobj\n")
	table, err := RebuildXRef(data)
	if err != nil {
		t.Fatal(err)
	}
	if table.Trailer.Has("Root") {
		t.Error("no /Root should be invented without a trailer")
	}
	if size, _ := table.Trailer.GetInt("Size"); size != 6 {
		t.Errorf("/Size = %d, want 6", size)
	}
}

func TestRebuildXRefSkipsLexErrors(t *testing.T) {
	data := []byte("%PDF-1.4\n) ) > 1 0 obj (ok) endobj (unterminated")
	table, err := RebuildXRef(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := table.Get(1); !ok {
		t.Error("object 1 not found after lex errors")
	}
}

func TestRebuildXRefNoObjects(t *testing.T) {
	if _, err := RebuildXRef([]byte("%PDF-1.4\nnothing here\n")); err == nil {
		t.Error("expected error when no objects exist")
	}
}
