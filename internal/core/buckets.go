package core

import "math"

// PriceBucket is one bar of the price histogram. Min and Max are the
// labelled, inclusive integer bounds; the last bucket has no upper bound.
// Counting uses BucketRange, whose lower edge is exclusive at the previous
// bucket's Max, so a price between labels such as 100.5 lands in "101-200".
type PriceBucket struct {
	Label string
	Min   float64
	Max   float64
	Open  bool
}

var priceBuckets = [...]PriceBucket{
	{Label: "0-100", Min: 0, Max: 100},
	{Label: "101-200", Min: 101, Max: 200},
	{Label: "201-300", Min: 201, Max: 300},
	{Label: "301-400", Min: 301, Max: 400},
	{Label: "401-500", Min: 401, Max: 500},
	{Label: "501-600", Min: 501, Max: 600},
	{Label: "601-700", Min: 601, Max: 700},
	{Label: "701-800", Min: 701, Max: 800},
	{Label: "801-900", Min: 801, Max: 900},
	{Label: "901-above", Min: 901, Open: true},
}

// PriceBuckets returns the fixed histogram table in display order.
func PriceBuckets() []PriceBucket {
	out := make([]PriceBucket, len(priceBuckets))
	copy(out, priceBuckets[:])
	return out
}

// BucketRange returns the interval counted for bucket i.
//
// Bucket i starts just above the upper bound of bucket i-1, so integral
// prices fall exactly where the labels say (100 in "0-100", 101 in
// "101-200") and a fractional price such as 100.5 is counted in the next
// bucket instead of in none.
func BucketRange(i int) PriceRange {
	b := priceBuckets[i]
	r := PriceRange{Floor: b.Min, FloorInclusive: true, Ceiling: b.Max}
	if i > 0 {
		r.Floor = priceBuckets[i-1].Max
		r.FloorInclusive = false
	}
	if b.Open {
		r.Ceiling = math.MaxFloat64
	}
	return r
}

// BucketIndex returns the bucket a price is counted in, or -1 for prices
// below the first bucket.
func BucketIndex(price float64) int {
	for i := range priceBuckets {
		if BucketRange(i).Contains(price) {
			return i
		}
	}
	return -1
}
