package models

// MSymbolActivity aggregates fired alerts of one symbol over a date range.
type MSymbolActivity struct {
	Symbol       string  `json:"symbol"`
	Count        int     `json:"count"`
	TotalValueCr float64 `json:"total_value_cr"`
}

// AvgValueCr returns the average crore value per alert.
func (a MSymbolActivity) AvgValueCr() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.TotalValueCr / float64(a.Count)
}
