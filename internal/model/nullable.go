package model

// Float returns a pointer to v, for building optional numeric fields.
func Float(v float64) *float64 { return &v }

// Coalesce returns the first non-nil value.
func Coalesce(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
