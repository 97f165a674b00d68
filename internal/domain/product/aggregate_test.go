package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		wantErr error
	}{
		{"valid", Product{Name: "Lamp", MRP: decimal.NewFromInt(100), Quantity: 5}, nil},
		{"zero stock allowed", Product{Name: "Lamp", MRP: decimal.NewFromInt(100)}, nil},
		{"blank name", Product{Name: "   ", MRP: decimal.NewFromInt(100)}, ErrInvalidName},
		{"zero price", Product{Name: "Lamp", MRP: decimal.Zero}, ErrInvalidPrice},
		{"negative price", Product{Name: "Lamp", MRP: decimal.NewFromInt(-1)}, ErrInvalidPrice},
		{"negative stock", Product{Name: "Lamp", MRP: decimal.NewFromInt(1), Quantity: -1}, ErrInvalidStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.product
			err := p.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestProduct_Validate_TrimsName(t *testing.T) {
	p := Product{Name: "  Lamp ", MRP: decimal.NewFromInt(10)}
	assert.NoError(t, p.Validate())
	assert.Equal(t, "Lamp", p.Name)
}

func TestReview_Validate(t *testing.T) {
	for rating := 1; rating <= 5; rating++ {
		r := Review{Rating: rating}
		assert.NoError(t, r.Validate())
	}
	assert.ErrorIs(t, (&Review{Rating: 0}).Validate(), ErrInvalidRating)
	assert.ErrorIs(t, (&Review{Rating: 6}).Validate(), ErrInvalidRating)
}
