package recommend

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// NotAvailable is the price marker used when no price rows exist
const NotAvailable = "N/A"

// Price is a price in rupees per kilogram that may be unknown. Unknown
// prices encode as the string "N/A".
type Price struct {
	Value float64
	Known bool
}

// KnownPrice returns a known price
func KnownPrice(v float64) Price { return Price{Value: v, Known: true} }

func (p Price) String() string {
	if !p.Known {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", p.Value)
}

// MarshalJSON implements json.Marshaler
func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Known {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(p.Value)
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Price) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = Price{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != NotAvailable {
			return fmt.Errorf("invalid price %q", s)
		}
		*p = Price{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = KnownPrice(v)
	return nil
}
