package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type topUp struct {
	Amount decimal.Decimal `validate:"gt=0"`
}

func TestDecimalFieldsUseNumericTags(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(topUp{Amount: decimal.RequireFromString("12.50")}))
	assert.Error(t, v.Struct(topUp{Amount: decimal.Zero}))
	assert.Error(t, v.Struct(topUp{Amount: decimal.RequireFromString("-3")}))
}
