package chart

import "fmt"

// Point is one plotted coordinate. Either component may be absent when the
// row lacked the column.
type Point struct {
	X Value `json:"x"`
	Y Value `json:"y"`
}

// Series is the ordered point sequence of one declared series
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Result holds the aggregated series in declaration order
type Result struct {
	Series []Series `json:"series"`
	index  map[string]int
}

// Lookup returns the series with the given name
func (r *Result) Lookup(name string) (*Series, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return &r.Series[i], true
}

// PointCount returns the number of points across all series
func (r *Result) PointCount() int {
	n := 0
	for _, s := range r.Series {
		n += len(s.Points)
	}
	return n
}

// Aggregate classifies every row into series and returns their points.
//
// Without rules every row contributes one point to every series. With
// rules each row is tested against every rule in declaration order and
// contributes one point to the rule's series per match. Rows are only
// read, so aggregating the same rows twice yields the same result.
//
// Rules must reference declared series; PluginTask.Validate guarantees it.
func Aggregate(rows []Row, serieses []SeriesDefinition, rules []ClassificationRule) *Result {
	result := &Result{
		Series: make([]Series, len(serieses)),
		index:  make(map[string]int, len(serieses)),
	}
	for i, def := range serieses {
		result.Series[i] = Series{Name: def.Name, Points: []Point{}}
		result.index[def.Name] = i
	}

	if len(rules) == 0 {
		for ordinal, row := range rows {
			for i, def := range serieses {
				result.Series[i].Points = append(result.Series[i].Points, pointOf(def, row, ordinal))
			}
		}
		return result
	}

	targets := make([]int, len(rules))
	for j, rule := range rules {
		i, ok := result.index[rule.Series]
		if !ok {
			panic(fmt.Sprintf("chart: rule %d references undeclared series %q", j, rule.Series))
		}
		targets[j] = i
	}

	for ordinal, row := range rows {
		for j, rule := range rules {
			if !row[rule.Column].Matches(rule.Value) {
				continue
			}
			i := targets[j]
			result.Series[i].Points = append(result.Series[i].Points, pointOf(serieses[i], row, ordinal))
		}
	}
	return result
}

// pointOf reads the coordinates of def from row. Single-column series use
// the 1-based row ordinal as x.
func pointOf(def SeriesDefinition, row Row, ordinal int) Point {
	if def.SingleColumn() {
		return Point{X: IntValue(int64(ordinal + 1)), Y: row[def.Column]}
	}
	return Point{X: row[def.X], Y: row[def.Y]}
}
