package cascade

import (
	"errors"
	"fmt"
	"testing"
)

func TestReduceSumsLikeAddition(t *testing.T) {
	add := func(a, b int) (int, error) { return a + b, nil }

	for n := 1; n <= 33; n++ {
		items := make([]int, n)
		want := 0
		for i := range items {
			items[i] = i + 1
			want += i + 1
		}

		got, err := Reduce(add, items)
		if err != nil {
			t.Fatalf("Reduce(add, 1..%d) error = %v", n, err)
		}
		if got != want {
			t.Errorf("Reduce(add, 1..%d) = %d, want %d", n, got, want)
		}
	}
}

func TestReduceSingleElementSkipsCombine(t *testing.T) {
	combine := func(a, b int) (int, error) {
		t.Fatal("combine invoked for single-element input")
		return 0, nil
	}

	got, err := Reduce(combine, []int{41})
	if err != nil {
		t.Fatalf("Reduce error = %v", err)
	}
	if got != 41 {
		t.Errorf("Reduce = %d, want 41", got)
	}
}

func TestReduceEmpty(t *testing.T) {
	add := func(a, b int) (int, error) { return a + b, nil }

	_, err := Reduce(add, []int{})
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("Reduce(empty) error = %v, want ErrEmpty", err)
	}
}

func TestReducePairingOrder(t *testing.T) {
	// Parenthesized string concatenation exposes the exact pairing tree.
	concat := func(a, b string) (string, error) {
		return "(" + a + b + ")", nil
	}

	tests := []struct {
		items []string
		want  string
	}{
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "(ab)"},
		// Odd element c is deferred to the end of the next round.
		{[]string{"a", "b", "c"}, "((ab)c)"},
		{[]string{"a", "b", "c", "d"}, "((ab)(cd))"},
		{[]string{"a", "b", "c", "d", "e"}, "(((ab)(cd))e)"},
		{[]string{"a", "b", "c", "d", "e", "f", "g"}, "(((ab)(cd))((ef)g))"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", len(tt.items)), func(t *testing.T) {
			got, err := Reduce(concat, tt.items)
			if err != nil {
				t.Fatalf("Reduce error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Reduce = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReducePropagatesCombineError(t *testing.T) {
	boom := errors.New("merge failed")
	calls := 0
	combine := func(a, b int) (int, error) {
		calls++
		if calls == 2 {
			return 0, boom
		}
		return a + b, nil
	}

	_, err := Reduce(combine, []int{1, 2, 3, 4})
	if !errors.Is(err, boom) {
		t.Errorf("Reduce error = %v, want %v", err, boom)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	add := func(a, b int) (int, error) { return a + b, nil }
	items := []int{1, 2, 3, 4, 5}

	if _, err := Reduce(add, items); err != nil {
		t.Fatalf("Reduce error = %v", err)
	}
	for i, v := range []int{1, 2, 3, 4, 5} {
		if items[i] != v {
			t.Fatalf("input mutated: %v", items)
		}
	}
}
