package browser

import (
	"errors"
	"testing"
)

type fakeGenSource struct {
	gen uint64
}

func (f *fakeGenSource) Generation() uint64 { return f.gen }

func TestElementRefResolvesAtSameGeneration(t *testing.T) {
	src := &fakeGenSource{gen: 7}
	ref := NewElementRef(src, nil)

	if ref.Stamp() != 7 {
		t.Errorf("expected stamp 7, got %d", ref.Stamp())
	}
	if _, err := ref.Resolve(); err != nil {
		t.Errorf("expected resolve to succeed at same generation: %v", err)
	}
	if ref.Stale() {
		t.Error("ref should not be stale at same generation")
	}
}

func TestElementRefFailsClosedAfterNavigation(t *testing.T) {
	src := &fakeGenSource{gen: 1}
	ref := NewElementRef(src, nil)

	src.gen++ // simulate navigation/reload

	_, err := ref.Resolve()
	if !errors.Is(err, ErrStaleRef) {
		t.Errorf("expected ErrStaleRef, got %v", err)
	}
	if !ref.Stale() {
		t.Error("ref should report stale after generation advance")
	}
}

func TestNilElementRefIsStale(t *testing.T) {
	var ref *ElementRef
	if _, err := ref.Resolve(); !errors.Is(err, ErrStaleRef) {
		t.Errorf("expected ErrStaleRef for nil ref, got %v", err)
	}
}
