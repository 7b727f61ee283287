package usecase

import (
	"math"
	"testing"

	"github.com/pricematch/backend/internal/domain"
)

func TestWeightTableValidate(t *testing.T) {
	t.Run("default table is valid", func(t *testing.T) {
		if err := DefaultWeights().Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		w := WeightTable{domain.AttrName: -5, domain.AttrBrand: 20}
		if err := w.Validate(); err == nil {
			t.Error("Validate() error = nil, want error for negative weight")
		}
	})

	t.Run("zero-sum table rejected", func(t *testing.T) {
		w := WeightTable{domain.AttrName: 0, domain.AttrBrand: 0}
		if err := w.Validate(); err == nil {
			t.Error("Validate() error = nil, want error for zero sum")
		}
	})
}

func TestAggregate(t *testing.T) {
	agg := NewWeightedAggregator(nil)

	t.Run("renormalizes over present attributes", func(t *testing.T) {
		scores := domain.ScoreSet{
			domain.AttrName:  80,
			domain.AttrBrand: 100,
		}
		got, ok := agg.Aggregate(scores)
		if !ok {
			t.Fatal("Aggregate() ok = false, want true")
		}
		// (25*80 + 20*100) / (25 + 20)
		want := 4000.0 / 45.0
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("Aggregate() = %v, want %v", got, want)
		}
	})

	t.Run("absent attribute changes nothing", func(t *testing.T) {
		with := domain.ScoreSet{domain.AttrName: 70, domain.AttrBrand: 90}
		base, _ := agg.Aggregate(with)

		// Same scores again; image and dimensions stay absent rather
		// than zero, so the aggregate must be identical.
		again, _ := agg.Aggregate(domain.ScoreSet{domain.AttrName: 70, domain.AttrBrand: 90})
		if base != again {
			t.Errorf("aggregate changed between identical score sets: %v vs %v", base, again)
		}
	})

	t.Run("zero score is not absent", func(t *testing.T) {
		withZero := domain.ScoreSet{domain.AttrName: 80, domain.AttrBrand: 0}
		without := domain.ScoreSet{domain.AttrName: 80}

		gotZero, _ := agg.Aggregate(withZero)
		gotAbsent, _ := agg.Aggregate(without)
		if gotZero >= gotAbsent {
			t.Errorf("zero-scored brand (%v) should drag the aggregate below absent brand (%v)", gotZero, gotAbsent)
		}
		if gotAbsent != 80 {
			t.Errorf("absent brand aggregate = %v, want 80", gotAbsent)
		}
	})

	t.Run("all absent excludes the pair", func(t *testing.T) {
		got, ok := agg.Aggregate(domain.ScoreSet{})
		if ok {
			t.Errorf("Aggregate(empty) = %v ok, want excluded", got)
		}
	})

	t.Run("unweighted attributes are ignored", func(t *testing.T) {
		scores := domain.ScoreSet{"unknown_attr": 100}
		if _, ok := agg.Aggregate(scores); ok {
			t.Error("Aggregate() ok = true for score set with no weighted attributes")
		}
	})

	t.Run("repeated aggregation is bit-identical", func(t *testing.T) {
		// Float addition is order-sensitive; summing in map iteration
		// order produced two distinct bit patterns for this exact set.
		scores := domain.ScoreSet{
			domain.AttrName:        7.5,
			domain.AttrBrand:       13.3,
			domain.AttrModel:       21.7,
			domain.AttrDimensions:  42.1,
			domain.AttrCategory:    5.9,
			domain.AttrMaterial:    33.3,
			domain.AttrColor:       66.6,
			domain.AttrDescription: 11.1,
			domain.AttrImage:       99.9,
		}
		first, ok := agg.Aggregate(scores)
		if !ok {
			t.Fatal("Aggregate() ok = false, want true")
		}
		for i := 0; i < 20000; i++ {
			got, _ := agg.Aggregate(scores)
			if got != first {
				t.Fatalf("Aggregate() = %v on iteration %d, want %v every time", got, i, first)
			}
		}
	})

	t.Run("result stays in range", func(t *testing.T) {
		scores := domain.ScoreSet{
			domain.AttrName:        100,
			domain.AttrBrand:       100,
			domain.AttrModel:       100,
			domain.AttrDimensions:  100,
			domain.AttrCategory:    100,
			domain.AttrMaterial:    100,
			domain.AttrColor:       100,
			domain.AttrDescription: 100,
			domain.AttrImage:       100,
		}
		got, _ := agg.Aggregate(scores)
		if math.Abs(got-100) > 1e-9 {
			t.Errorf("all-perfect aggregate = %v, want 100", got)
		}
	})
}
