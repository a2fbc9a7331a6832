package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateWithoutRules(t *testing.T) {
	rows := []Row{row("c1", 1, "c2", 2), row("c1", 3, "c2", 4)}
	serieses := []SeriesDefinition{{Name: "A", X: "c1", Y: "c2"}}

	result := Aggregate(rows, serieses, nil)

	require.Len(t, result.Series, 1)
	assert.Equal(t, "A", result.Series[0].Name)
	assert.Equal(t, ints(1, 2, 3, 4), result.Series[0].Points)
}

func TestAggregateFansOutToEverySeries(t *testing.T) {
	rows := []Row{row("a", 1, "b", 10, "c", 100), row("a", 2, "b", 20, "c", 200)}
	serieses := []SeriesDefinition{
		{Name: "ab", X: "a", Y: "b"},
		{Name: "ac", X: "a", Y: "c"},
		{Name: "bc", X: "b", Y: "c"},
	}

	result := Aggregate(rows, serieses, nil)

	require.Len(t, result.Series, 3)
	for _, s := range result.Series {
		assert.Len(t, s.Points, len(rows), s.Name)
	}
	assert.Equal(t, ints(1, 10, 2, 20), result.Series[0].Points)
	assert.Equal(t, ints(1, 100, 2, 200), result.Series[1].Points)
	assert.Equal(t, ints(10, 100, 20, 200), result.Series[2].Points)
	assert.Equal(t, 6, result.PointCount())
}

func TestAggregateWithRules(t *testing.T) {
	rows := []Row{row("c1", 1, "c2", 10), row("c1", 2, "c2", 20)}
	serieses := []SeriesDefinition{
		{Name: "even", X: "c1", Y: "c2"},
		{Name: "odd", X: "c1", Y: "c2"},
	}
	rules := []ClassificationRule{
		{Column: "c1", Value: "2", Series: "even"},
		{Column: "c1", Value: "1", Series: "odd"},
	}

	result := Aggregate(rows, serieses, rules)

	even, ok := result.Lookup("even")
	require.True(t, ok)
	assert.Equal(t, ints(2, 20), even.Points)

	odd, ok := result.Lookup("odd")
	require.True(t, ok)
	assert.Equal(t, ints(1, 10), odd.Points)
}

func TestAggregateRuleMatchesNumericForms(t *testing.T) {
	rows := []Row{row("k", 2.0, "v", 1), row("k", 2.5, "v", 2)}
	serieses := []SeriesDefinition{{Name: "two", X: "k", Y: "v"}}
	rules := []ClassificationRule{{Column: "k", Value: "2.0", Series: "two"}}

	result := Aggregate(rows, serieses, rules)

	two, ok := result.Lookup("two")
	require.True(t, ok)
	require.Len(t, two.Points, 1)
	assert.Equal(t, FloatValue(2), two.Points[0].X)
	assert.Equal(t, IntValue(1), two.Points[0].Y)
}

func TestAggregateRuleEdgeCases(t *testing.T) {
	serieses := []SeriesDefinition{
		{Name: "s1", X: "k", Y: "v"},
		{Name: "s2", X: "k", Y: "v"},
	}

	t.Run("unmatched rows are dropped", func(t *testing.T) {
		rows := []Row{row("k", "x", "v", 1), row("k", "y", "v", 2)}
		rules := []ClassificationRule{{Column: "k", Value: "x", Series: "s1"}}

		result := Aggregate(rows, serieses, rules)
		assert.Len(t, result.Series[0].Points, 1)
		assert.Empty(t, result.Series[1].Points)
		assert.NotNil(t, result.Series[1].Points)
	})

	t.Run("row matching two rules lands in both series", func(t *testing.T) {
		rows := []Row{row("k", "x", "v", 1)}
		rules := []ClassificationRule{
			{Column: "k", Value: "x", Series: "s1"},
			{Column: "v", Value: "1", Series: "s2"},
		}

		result := Aggregate(rows, serieses, rules)
		assert.Len(t, result.Series[0].Points, 1)
		assert.Len(t, result.Series[1].Points, 1)
	})

	t.Run("duplicate rules contribute twice", func(t *testing.T) {
		rows := []Row{row("k", "x", "v", 1)}
		rules := []ClassificationRule{
			{Column: "k", Value: "x", Series: "s1"},
			{Column: "k", Value: "x", Series: "s1"},
		}

		result := Aggregate(rows, serieses, rules)
		assert.Len(t, result.Series[0].Points, 2)
	})

	t.Run("absent rule column never matches", func(t *testing.T) {
		rows := []Row{row("v", 1)}
		rules := []ClassificationRule{{Column: "k", Value: "", Series: "s1"}}

		result := Aggregate(rows, serieses, rules)
		assert.Empty(t, result.Series[0].Points)
	})

	t.Run("float values match their canonical form", func(t *testing.T) {
		rows := []Row{row("k", 2.5, "v", 1), row("k", 3.0, "v", 2)}
		rules := []ClassificationRule{
			{Column: "k", Value: "2.5", Series: "s1"},
			{Column: "k", Value: "3", Series: "s2"},
		}

		result := Aggregate(rows, serieses, rules)
		assert.Len(t, result.Series[0].Points, 1)
		assert.Len(t, result.Series[1].Points, 1)
	})
}

func TestAggregatePreservesRowOrder(t *testing.T) {
	var rows []Row
	for i := 10; i > 0; i-- {
		rows = append(rows, row("x", i, "y", i*i))
	}

	result := Aggregate(rows, []SeriesDefinition{{Name: "sq", X: "x", Y: "y"}}, nil)

	points := result.Series[0].Points
	require.Len(t, points, 10)
	for i, p := range points {
		assert.Equal(t, IntValue(int64(10-i)), p.X)
	}
}

func TestAggregateIsRepeatable(t *testing.T) {
	rows := []Row{row("c1", 1, "c2", 10), row("c1", 2, "c2", 20)}
	serieses := []SeriesDefinition{{Name: "even", X: "c1", Y: "c2"}}
	rules := []ClassificationRule{{Column: "c1", Value: "2", Series: "even"}}

	first := Aggregate(rows, serieses, rules)
	second := Aggregate(rows, serieses, rules)

	assert.Equal(t, first.Series, second.Series)
	assert.Len(t, rows, 2)
}

func TestAggregateSingleColumnSeries(t *testing.T) {
	rows := []Row{row("v", 5), row("v", 7), row("v", 9)}

	result := Aggregate(rows, []SeriesDefinition{{Name: "v", Column: "v"}}, nil)

	assert.Equal(t, ints(1, 5, 2, 7, 3, 9), result.Series[0].Points)
}

func TestAggregateAbsentColumnYieldsDegradedPoint(t *testing.T) {
	rows := []Row{row("c1", 1)}

	result := Aggregate(rows, []SeriesDefinition{{Name: "A", X: "c1", Y: "c2"}}, nil)

	require.Len(t, result.Series[0].Points, 1)
	p := result.Series[0].Points[0]
	assert.Equal(t, IntValue(1), p.X)
	assert.True(t, p.Y.IsAbsent())
}

func TestAggregateEmptyInput(t *testing.T) {
	result := Aggregate(nil, []SeriesDefinition{{Name: "A", X: "c1", Y: "c2"}}, nil)

	require.Len(t, result.Series, 1)
	assert.NotNil(t, result.Series[0].Points)
	assert.Empty(t, result.Series[0].Points)
	assert.Zero(t, result.PointCount())
}

func TestAggregatePanicsOnUndeclaredSeries(t *testing.T) {
	rules := []ClassificationRule{{Column: "c1", Value: "1", Series: "missing"}}

	assert.Panics(t, func() {
		Aggregate([]Row{row("c1", 1)}, []SeriesDefinition{{Name: "A", X: "c1", Y: "c2"}}, rules)
	})
}

func TestResultLookup(t *testing.T) {
	result := Aggregate(nil, []SeriesDefinition{{Name: "A", Column: "a"}, {Name: "B", Column: "b"}}, nil)

	s, ok := result.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, "B", s.Name)

	_, ok = result.Lookup("C")
	assert.False(t, ok)
}
