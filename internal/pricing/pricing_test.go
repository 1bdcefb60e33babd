package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	cases := []struct {
		name string
		in   Inputs
		want int
	}{
		{
			name: "no capacity returns floor",
			in:   Inputs{TotalBoxes: 0, PriceMin: 3, PriceMax: 7},
			want: 3,
		},
		{
			name: "abundant supply ignores demand",
			in:   Inputs{TotalBoxes: 10, RemainingBoxes: 6, ReservedBoxes: 4, PriceMin: 2, PriceMax: 9},
			want: 2,
		},
		{
			name: "exactly half is not abundant",
			in:   Inputs{TotalBoxes: 10, RemainingBoxes: 5, ReservedBoxes: 5, PriceMin: 2, PriceMax: 6},
			// 2 + 4*0.5*0.5 = 3
			want: 3,
		},
		{
			name: "scarce and in demand hits ceiling",
			in:   Inputs{TotalBoxes: 10, RemainingBoxes: 1, ReservedBoxes: 9, PriceMin: 3, PriceMax: 5},
			want: 5,
		},
		{
			name: "interpolates between bounds",
			in:   Inputs{TotalBoxes: 10, RemainingBoxes: 3, ReservedBoxes: 7, PriceMin: 1, PriceMax: 10},
			// 1 + 9*0.7*0.7 = 5.41
			want: 5,
		},
		{
			name: "rounds half up",
			in:   Inputs{TotalBoxes: 4, RemainingBoxes: 2, ReservedBoxes: 2, PriceMin: 1, PriceMax: 3},
			// 1 + 2*0.5*0.5 = 1.5
			want: 2,
		},
		{
			name: "sold out with full demand",
			in:   Inputs{TotalBoxes: 1, RemainingBoxes: 0, ReservedBoxes: 1, PriceMin: 3, PriceMax: 5},
			want: 5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Price(tc.in))
		})
	}
}

func TestPriceStaysWithinBounds(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for reserved := 0; reserved <= total; reserved++ {
			for lo := 1; lo <= 10; lo += 3 {
				for hi := lo; hi <= 10; hi += 2 {
					in := Inputs{
						TotalBoxes:     total,
						RemainingBoxes: total - reserved,
						ReservedBoxes:  reserved,
						PriceMin:       lo,
						PriceMax:       hi,
					}
					got := Price(in)
					if got < lo || got > hi {
						t.Fatalf("price %d outside [%d,%d] for %+v", got, lo, hi, in)
					}
				}
			}
		}
	}
}
