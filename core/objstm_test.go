package core

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func TestNewObjectStream(t *testing.T) {
	tests := []struct {
		name    string
		dict    Dict
		wantErr bool
	}{
		{"valid", Dict{"Type": Name("ObjStm"), "N": Int(3), "First": Int(20)}, false},
		{"with Extends", Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(4), "Extends": IndirectRef{Number: 10}}, false},
		{"missing Type", Dict{"N": Int(3), "First": Int(20)}, true},
		{"wrong Type", Dict{"Type": Name("XRef"), "N": Int(3), "First": Int(20)}, true},
		{"missing N", Dict{"Type": Name("ObjStm"), "First": Int(20)}, true},
		{"negative First", Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(-1)}, true},
		{"huge N", Dict{"Type": Name("ObjStm"), "N": Int(1 << 30), "First": Int(4)}, true},
		{"real N", Dict{"Type": Name("ObjStm"), "N": Real(2), "First": Int(4)}, true},
		{"bad Extends", Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(4), "Extends": Int(10)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObjectStream(&Stream{Dict: tt.dict})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewObjectStream() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewObjectStream(nil); err == nil {
		t.Error("expected error for nil stream")
	}
}

func TestObjectStreamObjects(t *testing.T) {
	header := "10 0 11 12 12 19 "
	body := "<</A 1>>" + "    " + "(text)" + " " + "[1 2 3]"
	// Offsets: dict at 0, string at 12, array at 19.
	data := deflate([]byte(header + body))
	stream := &Stream{
		Dict: Dict{
			"Type":    Name("ObjStm"),
			"N":       Int(3),
			"First":   Int(len(header)),
			"Filter":  Name("FlateDecode"),
			"Extends": IndirectRef{Number: 4},
		},
		Data: data,
	}

	os, err := NewObjectStream(stream)
	if err != nil {
		t.Fatal(err)
	}
	if ext := os.Extends(); ext == nil || ext.Number != 4 {
		t.Errorf("Extends() = %v", ext)
	}

	nums, err := os.ObjectNumbers()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{10, 11, 12}, nums); diff != "" {
		t.Errorf("ObjectNumbers() mismatch (-want +got):\n%s", diff)
	}

	want := map[int]Object{
		10: Dict{"A": Int(1)},
		11: String("text"),
		12: Array{Int(1), Int(2), Int(3)},
	}
	for i, num := range nums {
		obj, gotNum, err := os.GetObjectByIndex(i)
		if err != nil {
			t.Fatalf("GetObjectByIndex(%d): %v", i, err)
		}
		if gotNum != num {
			t.Errorf("index %d holds object %d, want %d", i, gotNum, num)
		}
		if diff := cmp.Diff(want[num], obj); diff != "" {
			t.Errorf("object %d mismatch (-want +got):\n%s", num, diff)
		}
	}

	obj, idx, err := os.GetObjectByNumber(11)
	if err != nil || idx != 1 || obj != String("text") {
		t.Errorf("GetObjectByNumber(11) = %v, %d, %v", obj, idx, err)
	}
	if _, _, err := os.GetObjectByNumber(99); err == nil {
		t.Error("expected error for missing object")
	}
	if ok, _ := os.ContainsObject(12); !ok {
		t.Error("ContainsObject(12) = false")
	}
	if _, _, err := os.GetObjectByIndex(3); err == nil {
		t.Error("expected error for index out of range")
	}
}

func TestObjectStreamHeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		first int
	}{
		{"first past end", "1 0 ", 50},
		{"non-integer header", "1 /X ", 5},
		{"short header", "1 ", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os, err := NewObjectStream(&Stream{
				Dict: Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(tt.first)},
				Data: []byte(tt.data),
			})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := os.ObjectNumbers(); err == nil {
				t.Error("expected header error")
			}
		})
	}
}
