package decode

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
)

func TestEvaluatorValue(t *testing.T) {
	testCases := []struct {
		name    string
		values  []int
		source  string
		want    string
		wantErr string
	}{
		{"length", []int{1, 0, 1}, "function decode(bits){return bits.length;}", "3", ""},
		{"default decoder", []int{1, 0, 1}, groups.DefaultDecoder, "5", ""},
		{"default decoder empty", nil, groups.DefaultDecoder, "0", ""},
		{"string result", []int{1}, "function decode(b){return 'on';}", "on", ""},
		{"object result", []int{1}, "function decode(b){return {};}", "[object Object]", ""},
		{"undefined result", []int{1}, "function decode(b){}", "undefined", ""},
		{"missing decode", []int{1}, "var x = 1;", "", bverrors.ErrMissingDecode.Error()},
		{"thrown error", []int{1}, "function decode(b){throw new Error('boom');}", "", "boom"},
		{"thrown string", []int{1}, "function decode(b){throw 'bad';}", "", "bad"},
	}

	eval := NewEvaluator(0, testLogger("value_test"))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := eval.Value(tc.values, tc.source)
			if res.Text != tc.want || res.Error != tc.wantErr {
				t.Errorf("Value = %+v, want text %q error %q", res, tc.want, tc.wantErr)
			}
		})
	}
}

func TestEvaluatorSyntaxError(t *testing.T) {
	res := NewEvaluator(0, testLogger("value_test")).Value([]int{1}, "function decode(b){ return ( }")
	if res.Error == "" || res.Text != "" {
		t.Errorf("syntax error result = %+v", res)
	}
}

func TestEvaluatorCachesPrograms(t *testing.T) {
	eval := NewEvaluator(0, testLogger("value_test"))
	src := "function decode(b){return b[0];}"
	first := eval.Value([]int{1}, src)
	second := eval.Value([]int{0}, src)
	if first.Text != "1" || second.Text != "0" {
		t.Errorf("results = %q,%q", first.Text, second.Text)
	}
	if len(eval.programs) != 1 {
		t.Errorf("cached programs = %d, want 1", len(eval.programs))
	}
}

func TestEvaluatorBoundsCache(t *testing.T) {
	eval := NewEvaluator(0, testLogger("value_test"))
	first := "function decode(b){return 0;}"
	eval.Value(nil, first)
	for i := 1; i <= maxPrograms; i++ {
		src := fmt.Sprintf("function decode(b){return %d;}", i)
		if res := eval.Value(nil, src); res.Text != strconv.Itoa(i) {
			t.Fatalf("decoder %d = %+v", i, res)
		}
	}
	if len(eval.programs) != maxPrograms || len(eval.order) != maxPrograms {
		t.Errorf("cached programs = %d (order %d), want %d", len(eval.programs), len(eval.order), maxPrograms)
	}
	if _, ok := eval.programs[first]; ok {
		t.Error("oldest program was not evicted")
	}
	if res := eval.Value(nil, first); res.Text != "0" {
		t.Errorf("recompiled decoder = %+v", res)
	}
}

func TestEvaluatorIsolatesRuns(t *testing.T) {
	eval := NewEvaluator(0, testLogger("value_test"))
	src := "var n = (typeof n === 'number') ? n + 1 : 1; function decode(b){return n;}"
	for i := 0; i < 3; i++ {
		if res := eval.Value(nil, src); res.Text != "1" {
			t.Fatalf("run %d leaked state: %+v", i, res)
		}
	}
}

func TestEvaluatorTimeout(t *testing.T) {
	eval := NewEvaluator(50*time.Millisecond, testLogger("value_test"))
	start := time.Now()
	res := eval.Value([]int{1}, "function decode(b){ while (true) {} }")
	if res.Error != bverrors.ErrDecodeTimeout.Error() {
		t.Errorf("Error = %q, want timeout", res.Error)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("interrupt took %s", elapsed)
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Errorf("unexpected message %q", res.Error)
	}
}
