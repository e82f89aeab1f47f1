package core

// Statistics summarises a month of sales.
type Statistics struct {
	TotalSaleAmount   float64 `json:"totalSaleAmount"`
	TotalSoldItems    int64   `json:"totalSoldItems"`
	TotalNotSoldItems int64   `json:"totalNotSoldItems"`
}

// BucketCount is one histogram bar.
type BucketCount struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// CategoryCount is one slice of the category breakdown. The wire name of the
// category keeps the grouping key name clients already consume.
type CategoryCount struct {
	Category string `json:"_id"`
	Count    int64  `json:"count"`
}

// Combined merges the three month reports in a fixed order.
type Combined struct {
	Statistics Statistics      `json:"statistics"`
	BarChart   []BucketCount   `json:"barChart"`
	PieChart   []CategoryCount `json:"pieChart"`
}
