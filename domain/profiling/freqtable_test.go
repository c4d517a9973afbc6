package profiling

import (
	"math/rand"
	"testing"
)

func TestTableConservation(t *testing.T) {
	tbl := NewTable[string](StringLess)
	counts := map[string]int{"a": 3, "b": 5, "c": 2}
	for k, n := range counts {
		for i := 0; i < n; i++ {
			tbl.Add(k)
		}
	}
	tbl.Finalize()

	var want uint64
	for _, n := range counts {
		want += uint64(n)
	}
	if tbl.Total() != want {
		t.Fatalf("Total() = %d, want %d", tbl.Total(), want)
	}
	if len(tbl.cum) == 0 || tbl.cum[len(tbl.cum)-1] != tbl.Total() {
		t.Fatalf("cumulative array's last element = %v, want %d", tbl.cum, tbl.Total())
	}
}

func TestTableSampleEmptyFails(t *testing.T) {
	tbl := NewTable[string](StringLess)
	rng := rand.New(rand.NewSource(1))
	if _, err := tbl.Sample(rng); err == nil {
		t.Fatal("expected EmptyTable error from an empty table")
	}
}

func TestTableSampleDeterministic(t *testing.T) {
	build := func() *Table[string] {
		tbl := NewTable[string](StringLess)
		tbl.Add("x")
		tbl.Add("y")
		tbl.Add("y")
		tbl.Add("z")
		return tbl
	}

	t1 := build()
	t2 := build()
	rng1 := rand.New(rand.NewSource(99))
	rng2 := rand.New(rand.NewSource(99))

	for i := 0; i < 20; i++ {
		v1, err1 := t1.Sample(rng1)
		v2, err2 := t2.Sample(rng2)
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected sample error: %v, %v", err1, err2)
		}
		if v1 != v2 {
			t.Fatalf("draw %d diverged: %q != %q", i, v1, v2)
		}
	}
}

func TestTableMergeIsOrderIndependent(t *testing.T) {
	a := NewTable[string](StringLess)
	a.Add("x")
	a.Add("x")
	b := NewTable[string](StringLess)
	b.Add("y")

	merged1 := NewTable[string](StringLess)
	merged1.Merge(a)
	merged1.Merge(b)

	merged2 := NewTable[string](StringLess)
	merged2.Merge(b)
	merged2.Merge(a)

	if merged1.Total() != merged2.Total() {
		t.Fatalf("merge order affected total: %d != %d", merged1.Total(), merged2.Total())
	}
	if merged1.Count("x") != merged2.Count("x") || merged1.Count("y") != merged2.Count("y") {
		t.Fatal("merge order affected per-key counts")
	}
}

func TestIntLessNumericOrder(t *testing.T) {
	if !IntLess(9, 10) {
		t.Fatal("IntLess(9, 10) should be true under numeric order")
	}
	if IntLess(10, 9) {
		t.Fatal("IntLess(10, 9) should be false under numeric order")
	}
}

func TestStringLessCodePointOrder(t *testing.T) {
	if !StringLess("10", "9") {
		t.Fatal(`StringLess("10", "9") should be true: code-point order compares "1" < "9" lexically, unlike IntLess`)
	}
}
