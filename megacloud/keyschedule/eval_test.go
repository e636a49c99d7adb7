package keyschedule

import (
	"reflect"
	"testing"
)

func TestOttoEvaluator(t *testing.T) {
	e := NewOttoEvaluator()

	tests := []struct {
		expr    string
		want    int
		wantErr bool
	}{
		{expr: "0x1f+-0x1d", want: 2},
		{expr: "(0x3*0x4)-1", want: 11},
		{expr: "0x10 % 3", want: 1},
		{expr: "-0x2+5", want: 3},
		{expr: "7/2", wantErr: true},
		{expr: "1/0", wantErr: true},
		{expr: "foo", wantErr: true},
		{expr: "alert(1)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Eval(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Eval(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Eval(%q) = %d, want %d", tt.expr, got, tt.want)
			}
		})
	}
}

func TestScannerWithOttoEvaluator(t *testing.T) {
	s := &Scanner{Evaluator: NewOttoEvaluator()}
	got, err := s.Scan(sampleScript)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	want := Schedule{{3, 2}, {3, 2}, {5, 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %v, want %v", got, want)
	}
}
