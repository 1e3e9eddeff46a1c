package canonical

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"reflect"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/rickb777/date/v2"
)

// scalarRule converts a single well-known concrete type to a scalar.
type scalarRule func(v any) (any, error)

// defaultRules maps well-known concrete types straight to a scalar form.
// The registry is consulted before any generic handling so that types like
// time.Time never fall through to struct field introspection.
func defaultRules() map[reflect.Type]scalarRule {
	return map[reflect.Type]scalarRule{
		reflect.TypeOf([]byte(nil)): func(v any) (any, error) {
			return string(v.([]byte)), nil
		},
		reflect.TypeOf(time.Time{}): func(v any) (any, error) {
			return v.(time.Time).Format(time.RFC3339Nano), nil
		},
		reflect.TypeOf(time.Duration(0)): func(v any) (any, error) {
			return v.(time.Duration).Seconds(), nil
		},
		reflect.TypeOf(date.Date(0)): func(v any) (any, error) {
			return v.(date.Date).String(), nil
		},
		reflect.TypeOf(decimal.Decimal{}): decimalRule,
		reflect.TypeOf(uuid.UUID{}): func(v any) (any, error) {
			return v.(uuid.UUID).String(), nil
		},
		reflect.TypeOf(netip.Addr{}): func(v any) (any, error) {
			return v.(netip.Addr).String(), nil
		},
		reflect.TypeOf(netip.Prefix{}): func(v any) (any, error) {
			return v.(netip.Prefix).String(), nil
		},
		reflect.TypeOf(netip.AddrPort{}): func(v any) (any, error) {
			return v.(netip.AddrPort).String(), nil
		},
		reflect.TypeOf(net.IP(nil)): func(v any) (any, error) {
			return v.(net.IP).String(), nil
		},
		reflect.TypeOf((*net.IPNet)(nil)): func(v any) (any, error) {
			if n := v.(*net.IPNet); n != nil {
				return n.String(), nil
			}
			return nil, nil
		},
		reflect.TypeOf((*regexp.Regexp)(nil)): func(v any) (any, error) {
			// The pattern source, not the compiled representation.
			if re := v.(*regexp.Regexp); re != nil {
				return re.String(), nil
			}
			return nil, nil
		},
		reflect.TypeOf(url.URL{}): func(v any) (any, error) {
			u := v.(url.URL)
			return u.String(), nil
		},
		reflect.TypeOf((*url.URL)(nil)): func(v any) (any, error) {
			if u := v.(*url.URL); u != nil {
				return u.String(), nil
			}
			return nil, nil
		},
		reflect.TypeOf(json.Number("")): jsonNumberRule,
	}
}

// decimalRule emits fixed-point decimals as an integer when the value has
// no fractional digits, otherwise as a float.
func decimalRule(v any) (any, error) {
	d := v.(decimal.Decimal)
	if d.Scale() == 0 {
		if whole, _, ok := d.Int64(0); ok {
			return whole, nil
		}
	}
	f, ok := d.Float64()
	if !ok {
		return nil, fmt.Errorf("decimal %s does not fit in float64", d)
	}
	return f, nil
}

// jsonNumberRule keeps integral JSON numbers as integers rather than
// collapsing everything to float64.
func jsonNumberRule(v any) (any, error) {
	n := v.(json.Number)
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid json.Number %q: %w", n.String(), err)
	}
	return f, nil
}
