package classifier

import (
	"math"
	"testing"
)

// numeric-only mask helper
func mask(n int, catIdx ...int) []bool {
	m := make([]bool, n)
	for _, i := range catIdx {
		m[i] = true
	}
	return m
}

func TestBinaryModelSeparatesByThreshold(t *testing.T) {
	var x [][]float64
	var y []int
	for i := 0; i < 20; i++ {
		v := float64(i)
		x = append(x, []float64{v})
		if v >= 10 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	m := TrainModel(x, y, 2, mask(1), DefaultTrainConfig())
	if !m.Binary {
		t.Fatal("two classes should train the binary model")
	}
	for i, vec := range x {
		if got := m.Predict(vec); got != y[i] {
			t.Errorf("Predict(%v) = %d, want %d", vec, got, y[i])
		}
	}
}

func TestMulticlassModelSeparatesByCategory(t *testing.T) {
	// Class is fully determined by the categorical feature (indices 0..2).
	var x [][]float64
	var y []int
	for rep := 0; rep < 8; rep++ {
		for c := 0; c < 3; c++ {
			x = append(x, []float64{float64(rep), float64(c)})
			y = append(y, c)
		}
	}
	m := TrainModel(x, y, 3, mask(2, 1), DefaultTrainConfig())
	if m.Binary {
		t.Fatal("three classes should train the multiclass model")
	}
	for i, vec := range x {
		if got := m.Predict(vec); got != y[i] {
			t.Errorf("Predict(%v) = %d, want %d", vec, got, y[i])
		}
	}
}

func TestModelHandlesMissingValues(t *testing.T) {
	// Missing PV routes down the missing side; the model must still emit
	// a valid class.
	x := [][]float64{{1}, {2}, {30}, {40}}
	y := []int{0, 0, 1, 1}
	m := TrainModel(x, y, 2, mask(1), DefaultTrainConfig())

	got := m.Predict([]float64{math.NaN()})
	if got != 0 && got != 1 {
		t.Errorf("Predict on NaN = %d, want a trained class", got)
	}
}

func TestSingleClassModel(t *testing.T) {
	m := TrainModel([][]float64{{1}, {2}}, []int{0, 0}, 1, mask(1), DefaultTrainConfig())
	if got := m.Predict([]float64{99}); got != 0 {
		t.Errorf("single-class Predict = %d, want 0", got)
	}
}

func TestAbsentClassNeverPredicted(t *testing.T) {
	// Class 2 exists in the encoder world but has no training rows; its
	// prior stays low and argmax should never reach it on seen data.
	var x [][]float64
	var y []int
	for i := 0; i < 10; i++ {
		x = append(x, []float64{float64(i)})
		y = append(y, i%2)
	}
	m := TrainModel(x, y, 3, mask(1), DefaultTrainConfig())
	for _, vec := range x {
		if got := m.Predict(vec); got == 2 {
			t.Errorf("Predict(%v) chose the absent class", vec)
		}
	}
}

func TestTrainingIsDeterministic(t *testing.T) {
	var x [][]float64
	var y []int
	for i := 0; i < 12; i++ {
		x = append(x, []float64{float64(i % 5), float64(i % 3)})
		y = append(y, i%3)
	}
	a := TrainModel(x, y, 3, mask(2, 1), DefaultTrainConfig())
	b := TrainModel(x, y, 3, mask(2, 1), DefaultTrainConfig())
	for _, vec := range x {
		if a.Predict(vec) != b.Predict(vec) {
			t.Fatalf("two identical trainings disagree on %v", vec)
		}
	}
}
