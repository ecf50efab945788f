package patch

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParamsNum(t *testing.T) {
	t.Parallel()

	p := Params{
		"f64":  0.25,
		"f32":  float32(2),
		"int":  3,
		"i64":  int64(4),
		"num":  json.Number("5.5"),
		"bad":  json.Number("x"),
		"bool": true,
		"nan":  math.NaN(),
		"inf":  math.Inf(1),
		"str":  "7",
	}

	tests := []struct {
		key  string
		want float64
	}{
		{"f64", 0.25},
		{"f32", 2},
		{"int", 3},
		{"i64", 4},
		{"num", 5.5},
		{"bad", -1},
		{"bool", 1},
		{"nan", -1},
		{"inf", -1},
		{"str", -1},
		{"missing", -1},
	}
	for _, tt := range tests {
		if got := p.Num(tt.key, -1); got != tt.want {
			t.Errorf("Num(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}

	var nilParams Params
	if got := nilParams.Num("x", 9); got != 9 {
		t.Errorf("nil params Num = %v, want 9", got)
	}
}

func TestParamsStrAndBool(t *testing.T) {
	t.Parallel()

	p := Params{"wave": "square", "empty": "", "mute": true, "one": 1.0, "zero": 0, "s": "true"}

	if got := p.Str("wave", "sine"); got != "square" {
		t.Errorf("Str(wave) = %q", got)
	}
	if got := p.Str("empty", "sine"); got != "sine" {
		t.Errorf("Str(empty) = %q, want default", got)
	}
	if got := p.Str("one", "sine"); got != "sine" {
		t.Errorf("Str on number = %q, want default", got)
	}
	if !p.Bool("mute") || !p.Bool("one") || !p.Bool("s") {
		t.Error("expected true booleans")
	}
	if p.Bool("zero") || p.Bool("missing") {
		t.Error("expected false booleans")
	}
}

func TestParamsSteps(t *testing.T) {
	t.Parallel()

	t.Run("decoded json pattern", func(t *testing.T) {
		t.Parallel()

		var p Params
		if err := json.Unmarshal([]byte(`{"steps":[true,false,true]}`), &p); err != nil {
			t.Fatal(err)
		}
		got := p.Steps("steps")
		if !got[0] || got[1] || !got[2] {
			t.Fatalf("unexpected head: %v", got[:3])
		}
		for i := 3; i < StepCount; i++ {
			if got[i] {
				t.Fatalf("step %d should be padded inactive", i)
			}
		}
	})

	t.Run("long pattern truncated", func(t *testing.T) {
		t.Parallel()

		long := make([]bool, 20)
		long[16] = true
		long[15] = true
		got := Params{"steps": long}.Steps("steps")
		if !got[15] {
			t.Fatal("step 15 lost")
		}
	})

	t.Run("missing pattern is silent", func(t *testing.T) {
		t.Parallel()

		got := Params{}.Steps("steps")
		if got != [StepCount]bool{} {
			t.Fatalf("expected all inactive, got %v", got)
		}
	})
}

func TestParamsCloneIsIndependent(t *testing.T) {
	t.Parallel()

	orig := Params{"steps": []bool{true, false}, "gain": 0.5}
	c := orig.Clone()
	c["gain"] = 1.0
	c["steps"].([]bool)[0] = false

	if orig.Num("gain", 0) != 0.5 {
		t.Error("clone shares scalar values")
	}
	if !orig.Steps("steps")[0] {
		t.Error("clone shares step slice")
	}
}
