package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPositioningRecord_DerivesNets(t *testing.T) {
	r, err := NewPositioningRecord(
		time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC),
		decimal.NewFromInt(1000),
		decimal.NewFromInt(500), decimal.NewFromInt(200),
		decimal.NewFromInt(300), decimal.NewFromInt(400))
	require.NoError(t, err)

	assert.Equal(t, "300", r.NonCommNet.String())
	assert.Equal(t, "-100", r.CommNet.String())
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), r.Date)
}

func TestPositioningRecord_ValidateNetInvariant(t *testing.T) {
	r := PositioningRecord{
		Date:         time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		OpenInterest: decimal.NewFromInt(1000),
		NonCommLong:  decimal.NewFromInt(500),
		NonCommShort: decimal.NewFromInt(200),
		NonCommNet:   decimal.NewFromInt(300),
		CommLong:     decimal.NewFromInt(300),
		CommShort:    decimal.NewFromInt(400),
		CommNet:      decimal.NewFromInt(-100),
	}
	require.NoError(t, r.Validate())

	// A drifted net column must be rejected, not silently accepted.
	r.NonCommNet = decimal.NewFromInt(299)
	err := r.Validate()
	require.Error(t, err)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "noncomm_net", fieldErr.Field)

	r.NonCommNet = decimal.NewFromInt(300)
	r.CommNet = decimal.NewFromInt(100)
	err = r.Validate()
	require.Error(t, err)
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "comm_net", fieldErr.Field)
}

func TestPositioningRecord_ValidateRejectsNegativeOpenInterest(t *testing.T) {
	r := PositioningRecord{
		Date:         time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC),
		OpenInterest: decimal.NewFromInt(-5),
	}
	err := r.Validate()
	require.Error(t, err)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "open_interest", fieldErr.Field)
}

func TestPositioningRecord_DeriveNetsOverwrites(t *testing.T) {
	r := PositioningRecord{
		NonCommLong:  decimal.NewFromInt(10),
		NonCommShort: decimal.NewFromInt(4),
		CommLong:     decimal.NewFromInt(7),
		CommShort:    decimal.NewFromInt(9),
		NonCommNet:   decimal.NewFromInt(999),
	}
	r.DeriveNets()
	assert.Equal(t, "6", r.NonCommNet.String())
	assert.Equal(t, "-2", r.CommNet.String())
}
