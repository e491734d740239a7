package reader

import (
	"fmt"
	"sort"

	"github.com/tsawler/pdfhtml/core"
	"github.com/tsawler/pdfhtml/internal/security"
)

// loader reads the objects named by one cross-reference table. Objects
// are loaded on demand so that an indirect /Length can be resolved while
// its stream is being parsed.
type loader struct {
	data    []byte
	xref    *core.XRefTable
	trailer core.Dict
	objects map[int]core.IndirectObject
	failed  map[int]error
	loading map[int]bool
	objStms map[int]*core.ObjectStream

	decrypt     *security.Handler
	encryptNum  int
	decryptErrs map[int]error
}

func newLoader(data []byte, xref *core.XRefTable) *loader {
	return &loader{
		data:    data,
		xref:    xref,
		trailer: xref.Trailer,
		objects: make(map[int]core.IndirectObject),
		failed:  make(map[int]error),
		loading: make(map[int]bool),
		objStms: make(map[int]*core.ObjectStream),

		decryptErrs: make(map[int]error),
	}
}

// ResolveReference lets the parser read indirect stream lengths.
func (l *loader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	if err := l.load(ref.Number); err != nil {
		return nil, err
	}
	return l.objects[ref.Number].Object, nil
}

// Lookup reports loaded objects only.
func (l *loader) Lookup(ref core.IndirectRef) (core.Object, bool) {
	obj, ok := l.objects[ref.Number]
	return obj.Object, ok
}

// loadAll loads every in-use entry in object number order.
func (l *loader) loadAll() {
	nums := make([]int, 0, len(l.xref.Entries))
	for num, entry := range l.xref.Entries {
		if entry.InUse {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)
	for _, num := range nums {
		l.load(num)
	}
}

func (l *loader) load(num int) error {
	if _, ok := l.objects[num]; ok {
		return nil
	}
	if err, ok := l.failed[num]; ok {
		return err
	}
	if l.loading[num] {
		return fmt.Errorf("object %d refers to itself while loading", num)
	}
	entry, ok := l.xref.Get(num)
	if !ok || !entry.InUse {
		return fmt.Errorf("object %d is not in use", num)
	}

	l.loading[num] = true
	obj, err := l.read(num, entry)
	delete(l.loading, num)
	if err != nil {
		l.failed[num] = err
		return err
	}
	l.objects[num] = *obj
	return nil
}

func (l *loader) read(num int, entry *core.XRefEntry) (*core.IndirectObject, error) {
	if entry.Compressed {
		return l.readCompressed(num, entry.StreamNumber)
	}
	return l.readAt(num, entry.Offset)
}

// readAt parses "num gen obj" at offset and checks the object number.
func (l *loader) readAt(num int, offset int64) (*core.IndirectObject, error) {
	if offset < 0 || offset >= int64(len(l.data)) {
		return nil, fmt.Errorf("object %d: offset %d outside file", num, offset)
	}
	p := core.NewParser(l.data)
	p.SetReferenceResolver(l)
	p.Seek(offset)
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d at offset %d: %w", num, offset, err)
	}
	if obj.Ref.Number != num {
		return nil, fmt.Errorf("object %d: offset %d holds object %d", num, offset, obj.Ref.Number)
	}
	// Objects inside object streams are covered by the stream's own
	// decryption.
	if l.decrypt != nil && num != l.encryptNum {
		var err error
		if obj.Object, err = l.decrypt.DecryptObject(obj.Object, obj.Ref); err != nil {
			l.decryptErrs[num] = err
		}
	}
	return obj, nil
}

func (l *loader) readCompressed(num, streamNum int) (*core.IndirectObject, error) {
	os, err := l.objectStream(streamNum)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	obj, _, err := os.GetObjectByNumber(num)
	if err != nil {
		return nil, fmt.Errorf("object %d in stream %d: %w", num, streamNum, err)
	}
	return &core.IndirectObject{Ref: core.IndirectRef{Number: num}, Object: obj}, nil
}

func (l *loader) objectStream(num int) (*core.ObjectStream, error) {
	if os, ok := l.objStms[num]; ok {
		return os, nil
	}
	if err := l.load(num); err != nil {
		return nil, fmt.Errorf("object stream %d: %w", num, err)
	}
	stream, ok := l.objects[num].Object.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", num)
	}
	os, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, err
	}
	l.objStms[num] = os
	return os, nil
}

func (l *loader) failedNumbers() []int {
	nums := make([]int, 0, len(l.failed))
	for num := range l.failed {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

// repair loads the given numbers from the offsets a file scan found and
// returns how many were recovered.
func (l *loader) repair(scan *core.XRefTable, nums []int) int {
	repaired := 0
	for _, num := range nums {
		if _, ok := l.objects[num]; ok {
			continue
		}
		entry, ok := scan.Get(num)
		if !ok {
			continue
		}
		obj, err := l.readAt(num, entry.Offset)
		if err != nil {
			continue
		}
		delete(l.failed, num)
		l.objects[num] = *obj
		repaired++
	}
	return repaired
}

// expandObjectStreams adds the objects held in object streams. A file
// scan only sees top-level "n g obj" markers. Top-level definitions win.
func (l *loader) expandObjectStreams() {
	var streams []int
	for num, obj := range l.objects {
		s, ok := obj.Object.(*core.Stream)
		if !ok {
			continue
		}
		if typ, _ := s.Dict.GetName("Type"); typ == "ObjStm" {
			streams = append(streams, num)
		}
	}
	sort.Ints(streams)

	for _, snum := range streams {
		os, err := l.objectStream(snum)
		if err != nil {
			continue
		}
		nums, err := os.ObjectNumbers()
		if err != nil {
			continue
		}
		for i, num := range nums {
			if _, ok := l.objects[num]; ok {
				continue
			}
			obj, _, err := os.GetObjectByIndex(i)
			if err != nil {
				continue
			}
			l.objects[num] = core.IndirectObject{Ref: core.IndirectRef{Number: num}, Object: obj}
		}
	}
}
