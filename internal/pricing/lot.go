package pricing

// Price-per modes describing how a part's stored price is interpreted.
const (
	PerLot  = "lot"
	PerItem = "item"
)

// LotPrice normalises a stored price into the total for the whole lot.
// A missing or non-positive quantity is treated as 1 and any mode other
// than "item" falls back to "lot". No rounding is applied; currency
// formatting is a display concern.
func LotPrice(price float64, quantity int, pricePer string) float64 {
	if quantity < 1 {
		quantity = 1
	}
	if pricePer == PerItem {
		return price * float64(quantity)
	}
	return price
}

// ItemPrice derives the per-unit price regardless of storage mode.
func ItemPrice(price float64, quantity int, pricePer string) float64 {
	if quantity < 1 {
		quantity = 1
	}
	if pricePer == PerItem {
		return price
	}
	return price / float64(quantity)
}
