package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeBalance_Identity(t *testing.T) {
	log := []CreditTransaction{
		{Kind: KindRecharge, Amount: d("300")},
		{Kind: KindRecharge, Amount: d("150.25")},
		{Kind: KindConsumption, Status: StatusBlocked, Amount: d("40")},
		{Kind: KindConsumption, Status: StatusBlocked, Amount: d("9.90")},
		{Kind: KindConsumption, Status: StatusConsumed, Amount: d("75.35")},
	}

	b := ComputeBalance("c1", log)

	assert.True(t, d("450.25").Equal(b.TotalRecharges))
	assert.True(t, d("49.90").Equal(b.Blocked))
	assert.True(t, d("75.35").Equal(b.Consumed))
	assert.True(t, d("325").Equal(b.Available), "got %s", b.Available)
	assert.True(t, b.TotalRecharges.Sub(b.Blocked).Sub(b.Consumed).Equal(b.Available))
}

func TestComputeBalance_EmptyLog(t *testing.T) {
	b := ComputeBalance("c1", nil)
	assert.True(t, b.Available.IsZero())
	assert.True(t, b.TotalRecharges.IsZero())
}

func TestComputeBalance_CanGoNegative(t *testing.T) {
	b := ComputeBalance("c1", []CreditTransaction{
		{Kind: KindRecharge, Amount: d("10")},
		{Kind: KindConsumption, Status: StatusBlocked, Amount: d("15")},
	})
	assert.True(t, d("-5").Equal(b.Available))
}

func TestHoldExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := now.Add(HoldWindow)
	tx := CreditTransaction{Kind: KindConsumption, Status: StatusBlocked, BlockedUntil: &until}

	assert.False(t, tx.HoldExpired(now))
	assert.False(t, tx.HoldExpired(until.Add(-time.Second)))
	assert.True(t, tx.HoldExpired(until))
	assert.False(t, CreditTransaction{}.HoldExpired(now))
}

func TestBalance_EncodesAmountsAsNumbers(t *testing.T) {
	b := ComputeBalance("c1", []CreditTransaction{
		{Kind: KindRecharge, Amount: d("500")},
		{Kind: KindConsumption, Status: StatusBlocked, Amount: d("49.90")},
	})

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"saldoDisponivel":450.1,"creditosBloqueados":49.9,"creditosConsumidos":0,"totalRecargas":500}`, string(out))
}

func TestCreditTransaction_EncodesAmountAsNumber(t *testing.T) {
	out, err := json.Marshal(CreditTransaction{ID: "t1", Kind: KindRecharge, Amount: d("12.5")})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"valor":12.5`)
	assert.Contains(t, string(out), `"tipo":"recarga"`)

	var back CreditTransaction
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, back.Amount.Equal(d("12.5")))
}
