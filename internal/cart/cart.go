// Package cart implements the session shopping cart. The Cart type itself is
// pure state with replace-quantity semantics; the Service layers stock-aware
// mutation and session persistence on top.
package cart

import "github.com/shopspring/decimal"

// Line is one cart position. A cart holds at most one line per item code.
type Line struct {
	ItemCode string          `json:"item_code"`
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
}

// Subtotal is rate times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Rate.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the serialized session cart.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Set replaces the line for the item code. Quantity is absolute, not additive;
// setting zero or less removes the line.
func (c *Cart) Set(line Line) {
	if line.Quantity <= 0 {
		c.Remove(line.ItemCode)
		return
	}
	for i := range c.Lines {
		if c.Lines[i].ItemCode == line.ItemCode {
			c.Lines[i] = line
			return
		}
	}
	c.Lines = append(c.Lines, line)
}

// Add increments the existing quantity for the item code, inserting a new
// line when absent.
func (c *Cart) Add(line Line) {
	line.Quantity += c.Quantity(line.ItemCode)
	c.Set(line)
}

// Remove drops the line for the item code if present.
func (c *Cart) Remove(itemCode string) {
	for i := range c.Lines {
		if c.Lines[i].ItemCode == itemCode {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return
		}
	}
}

// Quantity reports the current quantity for an item code, zero when absent.
func (c *Cart) Quantity(itemCode string) int {
	for i := range c.Lines {
		if c.Lines[i].ItemCode == itemCode {
			return c.Lines[i].Quantity
		}
	}
	return 0
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	var n int
	for i := range c.Lines {
		n += c.Lines[i].Quantity
	}
	return n
}

// Total is the sum of all line subtotals, recomputed from state on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Lines {
		total = total.Add(c.Lines[i].Subtotal())
	}
	return total
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Clear drops every line.
func (c *Cart) Clear() { c.Lines = nil }
