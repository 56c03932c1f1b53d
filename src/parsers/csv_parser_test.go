package parsers

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MapsColumnsByHeader(t *testing.T) {
	input := "\ufeffDriver_TIN,trip_id,trip_date,trip_time,base_fare,driver_name,commission_rate,payment_method,extra\n" +
		"0012345678,TRIP-1,2025-09-01,10:15:00,115.00,Abebe Kebede,0.2,Bank,ignored\n" +
		"\n" +
		"0012345679,TRIP-2,2025-09-01,11:00:00,80,Sara Tesfaye,,,\n"

	trips, rowErrs, err := NewCSVParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, trips, 2)

	first := trips[0]
	assert.Equal(t, "TRIP-1", first.TripID)
	assert.Equal(t, "0012345678", first.DriverTIN)
	assert.True(t, decimal.RequireFromString("115").Equal(first.BaseFare))
	require.NotNil(t, first.CommissionRate)
	assert.True(t, decimal.RequireFromString("0.2").Equal(*first.CommissionRate))
	assert.Equal(t, models.PaymentMethodBank, first.PaymentMethod)
	assert.Equal(t, "completed", first.Status)

	second := trips[1]
	assert.Nil(t, second.CommissionRate)
	assert.Equal(t, models.PaymentMethodCash, second.PaymentMethod)
}

func TestParse_ReportsBadRows(t *testing.T) {
	input := "trip_id,trip_date,trip_time,base_fare,driver_name,driver_tin\n" +
		"TRIP-1,2025-09-01,10:15:00,abc,Abebe,0012345678\n" +
		"TRIP-2,2025-09-01,10:20:00,50,Abebe,0012345678\n"

	trips, rowErrs, err := NewCSVParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, "TRIP-2", trips[0].TripID)

	require.Len(t, rowErrs, 1)
	assert.Equal(t, 2, rowErrs[0].Line)
	assert.Equal(t, "TRIP-1", rowErrs[0].TripID)
	assert.Contains(t, rowErrs[0].Message, "base_fare")
}

func TestParse_RejectsIncompleteHeader(t *testing.T) {
	_, _, err := NewCSVParser().Parse(strings.NewReader("trip_id,base_fare\nTRIP-1,10\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParsingFailed))
	assert.Contains(t, err.Error(), "driver_tin")

	_, _, err = NewCSVParser().Parse(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrParsingFailed))
}
