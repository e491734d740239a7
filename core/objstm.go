package core

import (
	"errors"
	"fmt"
)

// maxObjStmEntries bounds /N so a corrupt header cannot force a huge
// allocation.
const maxObjStmEntries = 1 << 20

// ObjectStream is a stream of /Type /ObjStm, which packs several
// non-stream objects into one compressed body. The body starts with /N
// pairs "number offset"; offsets count from /First. The body is decoded
// and its header read on first use; parsed objects are cached.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	extends *IndirectRef

	data    []byte
	entries []objStmEntry
	index   map[int]int // object number to entry
	cache   map[int]Object
	err     error // sticky header error
}

type objStmEntry struct {
	num    int
	offset int // relative to first
}

// NewObjectStream checks the dictionary of an object stream. Nothing is
// decoded yet.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, errors.New("object stream is nil")
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "ObjStm" {
		return nil, fmt.Errorf("not an object stream: /Type %v", stream.Dict.Get("Type"))
	}
	n, err := objStmInt(stream.Dict, "N")
	if err != nil {
		return nil, err
	}
	if n > maxObjStmEntries {
		return nil, fmt.Errorf("object stream /N %d too large", n)
	}
	first, err := objStmInt(stream.Dict, "First")
	if err != nil {
		return nil, err
	}

	os := &ObjectStream{stream: stream, n: n, first: first}
	if ext := stream.Dict.Get("Extends"); ext != nil {
		ref, ok := ext.(IndirectRef)
		if !ok {
			return nil, fmt.Errorf("object stream /Extends is %T, want a reference", ext)
		}
		os.extends = &ref
	}
	return os, nil
}

func objStmInt(d Dict, key string) (int, error) {
	obj := d.Get(key)
	if obj == nil {
		return 0, fmt.Errorf("object stream missing /%s", key)
	}
	v, ok := obj.(Int)
	if !ok {
		return 0, fmt.Errorf("object stream /%s is %T", key, obj)
	}
	if v < 0 {
		return 0, fmt.Errorf("object stream /%s is negative: %d", key, v)
	}
	return int(v), nil
}

// N returns the declared number of objects.
func (os *ObjectStream) N() int { return os.n }

// First returns the offset of the first object in the decoded body.
func (os *ObjectStream) First() int { return os.first }

// Extends returns the object stream this one extends, or nil.
func (os *ObjectStream) Extends() *IndirectRef { return os.extends }

// load decodes the body and reads the header once.
func (os *ObjectStream) load() error {
	if os.entries != nil || os.err != nil {
		return os.err
	}
	data, err := os.stream.Decode()
	if err != nil {
		os.err = fmt.Errorf("decode object stream: %w", err)
		return os.err
	}
	if os.first > len(data) {
		os.err = fmt.Errorf("object stream /First %d beyond %d decoded bytes", os.first, len(data))
		return os.err
	}

	p := NewParser(data[:os.first])
	entries := make([]objStmEntry, 0, os.n)
	index := make(map[int]int, os.n)
	for i := 0; i < os.n; i++ {
		num, err1 := p.ParseObject()
		off, err2 := p.ParseObject()
		if err := errors.Join(err1, err2); err != nil {
			os.err = fmt.Errorf("object stream header entry %d: %w", i, err)
			return os.err
		}
		numInt, ok1 := num.(Int)
		offInt, ok2 := off.(Int)
		if !ok1 || !ok2 || numInt < 0 || offInt < 0 {
			os.err = fmt.Errorf("object stream header entry %d is not two integers", i)
			return os.err
		}
		if _, dup := index[int(numInt)]; !dup {
			index[int(numInt)] = len(entries)
		}
		entries = append(entries, objStmEntry{num: int(numInt), offset: int(offInt)})
	}

	os.data = data
	os.entries = entries
	os.index = index
	os.cache = make(map[int]Object)
	return nil
}

// ObjectNumbers returns the object numbers in header order.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.load(); err != nil {
		return nil, err
	}
	nums := make([]int, len(os.entries))
	for i, e := range os.entries {
		nums[i] = e.num
	}
	return nums, nil
}

// ContainsObject reports whether the header lists object num.
func (os *ObjectStream) ContainsObject(num int) (bool, error) {
	if err := os.load(); err != nil {
		return false, err
	}
	_, ok := os.index[num]
	return ok, nil
}

// GetObjectByIndex parses the object at position i of the header and
// returns it with its object number. An object ends where the next one
// starts.
func (os *ObjectStream) GetObjectByIndex(i int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	if i < 0 || i >= len(os.entries) {
		return nil, 0, fmt.Errorf("object stream index %d out of range [0, %d)", i, len(os.entries))
	}
	num := os.entries[i].num
	if obj, ok := os.cache[i]; ok {
		return obj, num, nil
	}

	start := os.first + os.entries[i].offset
	end := len(os.data)
	if i+1 < len(os.entries) {
		if next := os.first + os.entries[i+1].offset; next > start && next < end {
			end = next
		}
	}
	if start >= len(os.data) {
		return nil, num, fmt.Errorf("object %d starts at %d, beyond %d decoded bytes", num, start, len(os.data))
	}

	obj, err := NewParser(os.data[start:end]).ParseObject()
	if err != nil {
		return nil, num, fmt.Errorf("object %d in object stream: %w", num, err)
	}
	os.cache[i] = obj
	return obj, num, nil
}

// GetObjectByNumber returns object num and its position in the header.
// When the header lists num twice, the first entry is used.
func (os *ObjectStream) GetObjectByNumber(num int) (Object, int, error) {
	if err := os.load(); err != nil {
		return nil, 0, err
	}
	i, ok := os.index[num]
	if !ok {
		return nil, 0, fmt.Errorf("object %d not in object stream", num)
	}
	obj, _, err := os.GetObjectByIndex(i)
	return obj, i, err
}
