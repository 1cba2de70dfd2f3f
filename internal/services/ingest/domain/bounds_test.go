package domain

import (
	"reflect"
	"testing"
)

func TestObserveWidens(t *testing.T) {
	t.Parallel()

	m := BoundsMap{}
	m.Observe("1:2", 100)
	if got := m["1:2"]; got != (Bounds{Min: 100, Max: 100}) {
		t.Fatalf("first observe = %+v, want degenerate [100,100]", got)
	}

	m.Observe("1:2", 50)
	m.Observe("1:2", 200)
	m.Observe("1:2", 150) // interior point must not move anything
	if got := m["1:2"]; got != (Bounds{Min: 50, Max: 200}) {
		t.Fatalf("after observes = %+v, want [50,200]", got)
	}
}

func TestMergeBoundsCommutative(t *testing.T) {
	t.Parallel()

	a := BoundsMap{
		"1:1": {Min: 10, Max: 20},
		"1:2": {Min: 5, Max: 6},
	}
	b := BoundsMap{
		"1:1": {Min: 15, Max: 40},
		"2:1": {Min: 100, Max: 100},
	}

	ab := MergeBounds(a, b)
	ba := MergeBounds(b, a)
	if !reflect.DeepEqual(ab, ba) {
		t.Fatalf("merge not commutative: %v vs %v", ab, ba)
	}

	want := BoundsMap{
		"1:1": {Min: 10, Max: 40},
		"1:2": {Min: 5, Max: 6},
		"2:1": {Min: 100, Max: 100},
	}
	if !reflect.DeepEqual(ab, want) {
		t.Fatalf("merge = %v, want %v", ab, want)
	}
}

func TestMergeBoundsIdempotent(t *testing.T) {
	t.Parallel()

	a := BoundsMap{"1:1": {Min: 10, Max: 20}}
	once := MergeBounds(a, a)
	if !reflect.DeepEqual(once, a) {
		t.Fatalf("self merge changed bounds: %v", once)
	}
}

func TestGroupOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code string
		want string
		ok   bool
	}{
		{"12:3", "12", true},
		{"1:1", "1", true},
		{"12", "", false},
		{"12:", "", false},
		{":3", "", false},
		{"1:2:3", "", false},
	}

	for _, c := range cases {
		got, ok := GroupOf(c.code)
		if got != c.want || ok != c.ok {
			t.Errorf("GroupOf(%q) = (%q,%v), want (%q,%v)", c.code, got, ok, c.want, c.ok)
		}
	}
}

func TestResolveCountries(t *testing.T) {
	t.Parallel()

	id := func(v int64) *int64 { return &v }
	events := []TransitEvent{
		{StationCode: "1:1", CountryID: id(7)},
		{StationCode: "1:1", CountryID: id(99)}, // unmapped
		{StationCode: "1:1"},                    // absent id
	}

	ResolveCountries(events, map[int64]string{7: "D"})

	if events[0].Country == nil || *events[0].Country != "D" {
		t.Fatalf("mapped id not resolved: %+v", events[0])
	}
	if events[1].Country != nil {
		t.Fatalf("unmapped id resolved: %+v", events[1])
	}
	if events[2].Country != nil {
		t.Fatalf("absent id resolved: %+v", events[2])
	}
}
