package matching

import (
	"reflect"
	"testing"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name       string
		a, b       map[string]Interest
		wantScore  float64
		wantCommon []string
		wantOK     bool
	}{
		{
			name:       "single shared interest",
			a:          map[string]Interest{"a": {"A", 8}, "b": {"B", 5}},
			b:          map[string]Interest{"a": {"A", 4}, "c": {"C", 9}},
			wantScore:  6.0,
			wantCommon: []string{"A"},
			wantOK:     true,
		},
		{
			name:       "mean over several",
			a:          map[string]Interest{"x": {"Music", 10}, "y": {"Art", 2}},
			b:          map[string]Interest{"x": {"Music", 6}, "y": {"Art", 4}},
			wantScore:  5.5,
			wantCommon: []string{"Art", "Music"},
			wantOK:     true,
		},
		{
			name: "no overlap",
			a:    map[string]Interest{"a": {"A", 8}},
			b:    map[string]Interest{"c": {"C", 9}},
		},
		{
			name: "empty requester",
			a:    nil,
			b:    map[string]Interest{"c": {"C", 9}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, common, ok := Score(tc.a, tc.b)
			if ok != tc.wantOK || score != tc.wantScore || !reflect.DeepEqual(common, tc.wantCommon) {
				t.Fatalf("Score = %v, %v, %v; want %v, %v, %v", score, common, ok, tc.wantScore, tc.wantCommon, tc.wantOK)
			}
		})
	}
}

func TestScoreIsSymmetric(t *testing.T) {
	a := map[string]Interest{"a": {"A", 3}, "b": {"B", 7}}
	b := map[string]Interest{"a": {"A", 9}, "b": {"B", 1}, "c": {"C", 2}}
	s1, c1, _ := Score(a, b)
	s2, c2, _ := Score(b, a)
	if s1 != s2 || !reflect.DeepEqual(c1, c2) {
		t.Fatalf("asymmetric: %v %v vs %v %v", s1, c1, s2, c2)
	}
}
