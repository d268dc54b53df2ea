package pagerange_test

import (
	"reflect"
	"testing"

	"github.com/mfpkit/copyflow/pagerange"
)

func TestSelect(t *testing.T) {
	cases := []struct {
		name  string
		spec  string
		total int
		want  []int
	}{
		{"mixed parts", "1-3,5", 10, []int{0, 1, 2, 4}},
		{"all keyword", "all", 5, []int{0, 1, 2, 3, 4}},
		{"all uppercase", "ALL", 3, []int{0, 1, 2}},
		{"empty spec", "", 3, []int{0, 1, 2}},
		{"range clipped at length", "3-10", 5, []int{2, 3, 4}},
		{"single page", "4", 10, []int{3}},
		{"single page out of bounds", "11", 10, []int{}},
		{"zero page dropped", "0,2", 10, []int{1}},
		{"duplicates suppressed", "2,2,1-3", 10, []int{0, 1, 2}},
		{"unsorted input sorted", "5,1,3", 10, []int{0, 2, 4}},
		{"malformed part ignored", "1,x,3", 10, []int{0, 2}},
		{"malformed range ignored", "a-b,2", 10, []int{1}},
		{"whitespace tolerated", " 1 , 3 - 4 ", 10, []int{0, 2, 3}},
		{"empty document", "1-3", 0, []int{}},
		{"range entirely out of bounds", "20-30", 10, []int{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pagerange.Select(tc.spec, tc.total)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Select(%q, %d): got %v, want %v", tc.spec, tc.total, got, tc.want)
			}
		})
	}
}

func TestSelect_AlwaysSortedAndBounded(t *testing.T) {
	specs := []string{"9-3", "1,1,1", "5-5", "2-100", "100-2", "-1", "1-", ","}
	for _, spec := range specs {
		got := pagerange.Select(spec, 7)
		for i, idx := range got {
			if idx < 0 || idx >= 7 {
				t.Errorf("Select(%q): index %d out of bounds", spec, idx)
			}
			if i > 0 && got[i-1] >= idx {
				t.Errorf("Select(%q): not strictly ascending: %v", spec, got)
			}
		}
	}
}
