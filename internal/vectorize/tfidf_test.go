package vectorize

import (
	"math"
	"testing"
)

func TestTFIDFWeights(t *testing.T) {
	tokens := []string{"milk", "milk", "egg", "bread"}
	docFreq := map[string]int{"milk": 9, "egg": 1, "bread": 1}

	weights := TFIDF(tokens, docFreq, 10)

	// tf(milk)=0.5, idf(milk)=ln(10/10)=0 — a term in every document
	// carries no weight.
	if weights["milk"] != 0 {
		t.Errorf("milk weight = %v, want 0", weights["milk"])
	}

	// tf(egg)=0.25, idf(egg)=ln(10/2)
	wantEgg := 0.25 * math.Log(5)
	if math.Abs(weights["egg"]-wantEgg) > 1e-12 {
		t.Errorf("egg weight = %v, want %v", weights["egg"], wantEgg)
	}

	// egg and bread have identical counts and document frequencies.
	if weights["egg"] != weights["bread"] {
		t.Errorf("egg %v != bread %v", weights["egg"], weights["bread"])
	}
}

func TestTFIDFUnseenTerm(t *testing.T) {
	// A term missing from docFreq gets df=0, so idf=ln(totalDocs/1).
	weights := TFIDF([]string{"novel"}, map[string]int{}, 4)
	want := 1.0 * math.Log(4)
	if math.Abs(weights["novel"]-want) > 1e-12 {
		t.Errorf("novel weight = %v, want %v", weights["novel"], want)
	}
}

func TestTFIDFEmptyInputs(t *testing.T) {
	if got := TFIDF(nil, nil, 10); len(got) != 0 {
		t.Errorf("nil tokens produced %v", got)
	}
	if got := TFIDF([]string{"x"}, nil, 0); len(got) != 0 {
		t.Errorf("zero corpus produced %v", got)
	}
	if got := TFIDF([]string{"x"}, nil, -3); len(got) != 0 {
		t.Errorf("negative corpus produced %v", got)
	}
}

func TestTopKeys(t *testing.T) {
	weights := map[string]float64{
		"low":  0.1,
		"high": 0.9,
		"mid":  0.5,
	}

	got := TopKeys(weights, 2)
	if len(got) != 2 || got[0] != "high" || got[1] != "mid" {
		t.Errorf("TopKeys = %v, want [high mid]", got)
	}

	// k larger than the map returns everything, still sorted.
	all := TopKeys(weights, 10)
	if len(all) != 3 || all[2] != "low" {
		t.Errorf("TopKeys overshoot = %v", all)
	}

	if got := TopKeys(weights, 0); len(got) != 0 {
		t.Errorf("TopKeys(0) = %v", got)
	}
}

func TestTopKeysTieBreak(t *testing.T) {
	weights := map[string]float64{"b": 0.5, "a": 0.5, "c": 0.5}
	got := TopKeys(weights, 3)
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TopKeys = %v, want %v", got, want)
		}
	}
}
