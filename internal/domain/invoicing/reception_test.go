package invoicing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArticle(t *testing.T) {
	a, err := NewArticle("Tornillo", dec("3"), dec("12.50"))
	require.NoError(t, err)
	assert.True(t, a.Subtotal.Equal(dec("37.5")))
	assert.True(t, a.Tax.Equal(dec("6")))
	assert.True(t, a.Total.Equal(dec("43.5")))

	_, err = NewArticle("", dec("1"), dec("1"))
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	_, err = NewArticle("x", dec("0"), dec("1"))
	assert.Error(t, err)
	_, err = NewArticle("x", dec("1"), dec("-1"))
	assert.Error(t, err)
}

func TestArticleRecompute_IgnoresStoredAmounts(t *testing.T) {
	a := Article{Quantity: dec("2"), UnitPrice: dec("10"), Subtotal: dec("999"), Tax: dec("1"), Total: dec("5")}
	a.Recompute()
	assert.True(t, a.Subtotal.Equal(dec("20")))
	assert.True(t, a.Tax.Equal(dec("3.2")))
	assert.True(t, a.Total.Equal(a.Subtotal.Add(a.Tax)))

	first := a
	a.Recompute()
	assert.Equal(t, first, a)
}

func TestReceptionTotals(t *testing.T) {
	r := &Reception{Articles: []Article{
		{Quantity: dec("2"), UnitPrice: dec("100"), Total: dec("1")},
		{Quantity: dec("1"), UnitPrice: dec("50.25")},
	}}
	subtotal, total := r.Totals()
	assert.True(t, subtotal.Equal(dec("250.25")))
	assert.True(t, total.Equal(dec("290.29")))

	s2, t2 := r.Totals()
	assert.True(t, subtotal.Equal(s2))
	assert.True(t, total.Equal(t2))
}

func TestNewReception(t *testing.T) {
	art := mustArticle(t, "1", "1")
	_, err := NewReception(uuid.New(), "", time.Now(), []Article{art})
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	_, err = NewReception(uuid.New(), "R-1", time.Now(), nil)
	assert.ErrorIs(t, err, ErrMissingRequiredField)

	r, err := NewReception(uuid.New(), "R-1", time.Now(), []Article{art})
	require.NoError(t, err)
	assert.Equal(t, "R-1", r.Folio)
}
