package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/entities"
	"parkingapp/internal/service"
)

func testLot(pricePerHour int) entities.ParkingLot {
	return entities.ParkingLot{
		ID:           1,
		Name:         "Central Garage",
		PricePerHour: pricePerHour,
	}
}

func TestBuildCatalog(t *testing.T) {
	catalog := service.BuildCatalog(testLot(2000))

	require.Len(t, catalog, 24)
	assert.Equal(t, "00:00~01:00", catalog[0].Label())
	assert.Equal(t, "09:00~10:00", catalog[9].Label())
	assert.Equal(t, "23:00~00:00", catalog[23].Label())
	for _, slot := range catalog {
		assert.Equal(t, 2000, slot.Price)
	}
}

func TestBuildCatalogPriceFixedAtGeneration(t *testing.T) {
	lot := testLot(2000)
	old := service.BuildCatalog(lot)

	lot.PricePerHour = 3000
	fresh := service.BuildCatalog(lot)

	assert.Equal(t, 2000, old[0].Price)
	assert.Equal(t, 3000, fresh[0].Price)
}

func TestSelectionSingleSlotIsContinuous(t *testing.T) {
	catalog := service.BuildCatalog(testLot(2000))
	sel := service.NewSelection(catalog, nil)

	require.NoError(t, sel.Toggle(catalog[8]))

	assert.True(t, sel.Continuous())
	assert.True(t, sel.Reservable())
	assert.NoError(t, sel.Validate())
	assert.Equal(t, 2000, sel.TotalPrice())
}

func TestSelectionEmptyIsNotReservable(t *testing.T) {
	sel := service.NewSelection(service.BuildCatalog(testLot(2000)), nil)

	assert.False(t, sel.Reservable())
	assert.ErrorIs(t, sel.Validate(), service.ErrEmptySelection)
	assert.Equal(t, 0, sel.TotalPrice())
}

func TestSelectionContinuousRun(t *testing.T) {
	catalog := service.BuildCatalog(testLot(1500))
	sel := service.NewSelection(catalog, nil)

	// Toggle out of order; catalog position decides temporal order.
	require.NoError(t, sel.Toggle(catalog[10]))
	require.NoError(t, sel.Toggle(catalog[8]))
	require.NoError(t, sel.Toggle(catalog[9]))

	assert.True(t, sel.Continuous())
	assert.True(t, sel.Reservable())
	assert.Equal(t, 4500, sel.TotalPrice())
	assert.Equal(t, []string{"08:00~09:00", "09:00~10:00", "10:00~11:00"}, sel.Labels())
}

func TestSelectionGapAroundReservedSlot(t *testing.T) {
	// Catalog 08-09, 09-10, 10-11 with 09:00~10:00 already reserved:
	// picking the two slots around it is not adjacent, so not reservable,
	// even though neither overlaps the reserved label.
	catalog := service.BuildCatalog(testLot(2000))
	reserved := map[string]struct{}{"09:00~10:00": {}}
	sel := service.NewSelection(catalog, reserved)

	require.NoError(t, sel.Toggle(catalog[8]))
	require.NoError(t, sel.Toggle(catalog[10]))

	assert.False(t, sel.Continuous())
	assert.False(t, sel.Reservable())
	assert.ErrorIs(t, sel.Validate(), service.ErrNotContinuous)
	assert.Equal(t, 4000, sel.TotalPrice())
}

func TestSelectionReservedSlotIsUnselectable(t *testing.T) {
	catalog := service.BuildCatalog(testLot(2000))
	reserved := map[string]struct{}{"09:00~10:00": {}}
	sel := service.NewSelection(catalog, reserved)

	assert.False(t, sel.Selectable(catalog[9]))
	assert.ErrorIs(t, sel.Toggle(catalog[9]), service.ErrSlotReserved)
	assert.False(t, sel.Reservable())
	assert.Empty(t, sel.Selected())
}

func TestSelectionToggleRemoves(t *testing.T) {
	catalog := service.BuildCatalog(testLot(2000))
	sel := service.NewSelection(catalog, nil)

	require.NoError(t, sel.Toggle(catalog[5]))
	require.NoError(t, sel.Toggle(catalog[5]))

	assert.Empty(t, sel.Selected())
	assert.False(t, sel.Reservable())
}

func TestSelectionUnknownSlot(t *testing.T) {
	sel := service.NewSelection(service.BuildCatalog(testLot(2000)), nil)

	odd := entities.TimeSlot{StartTime: "09:30", EndTime: "10:30", Price: 2000}
	assert.ErrorIs(t, sel.Toggle(odd), service.ErrSlotUnknown)
	assert.False(t, sel.Selectable(odd))
}

func TestSelectionClear(t *testing.T) {
	catalog := service.BuildCatalog(testLot(2000))
	sel := service.NewSelection(catalog, nil)

	require.NoError(t, sel.Toggle(catalog[3]))
	sel.Clear()

	assert.Empty(t, sel.Selected())
	assert.Equal(t, 0, sel.TotalPrice())
}

func TestSelectionWrapAroundIsNotContinuous(t *testing.T) {
	// 23:00~00:00 and 00:00~01:00 touch on the clock but sit at opposite
	// ends of the catalog, so the run is broken.
	catalog := service.BuildCatalog(testLot(2000))
	sel := service.NewSelection(catalog, nil)

	require.NoError(t, sel.Toggle(catalog[23]))
	require.NoError(t, sel.Toggle(catalog[0]))

	assert.False(t, sel.Continuous())
	assert.False(t, sel.Reservable())
}
