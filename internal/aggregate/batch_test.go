package aggregate

import (
	"testing"

	"live-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(id, address string) models.OrderView {
	return models.OrderView{ID: id, OrderNumber: "ORD-" + id, Address: address}
}

func TestExtractZone(t *testing.T) {
	cases := []struct {
		address string
		zone    string
		ok      bool
	}{
		{"Room 1, Nehru Hall", "Nehru Hall", true},
		{"Room 12, AZAD hall", "Azad Hall", true},
		{"Flat 3, Tagore Hostel", "Tagore Hostel", true},
		{"House 9, C Block", "C Block", true},
		{"14 MG Road", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		zone, ok := ExtractZone(tc.address)
		assert.Equal(t, tc.ok, ok, tc.address)
		assert.Equal(t, tc.zone, zone, tc.address)
	}
}

func TestBatchesGroupsSharedZones(t *testing.T) {
	active := []models.OrderView{
		order("1", "Room 1, Nehru Hall"),
		order("2", "Room 2, Nehru Hall"),
		order("3", "Room 5, Azad Hall"),
	}

	groups := Batches(active)

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "Nehru Hall Zone", g.ZoneLabel)
	assert.Equal(t, "nehru-hall", g.ZoneID)
	require.Len(t, g.Orders, 2)
	assert.Equal(t, 1, g.Orders[0].Sequence)
	assert.Equal(t, 2, g.Orders[1].Sequence)
	assert.Equal(t, "1", g.Orders[0].OrderID)
	assert.Equal(t, "2", g.Orders[1].OrderID)
}

func TestBatchesIgnoresSingletonsAndUnzoned(t *testing.T) {
	active := []models.OrderView{
		order("1", "Room 5, Azad Hall"),
		order("2", "14 MG Road"),
	}

	assert.Empty(t, Batches(active))
}

func TestBatchesEstimatesGrowWithSize(t *testing.T) {
	two := Batches([]models.OrderView{
		order("1", "Room 1, Nehru Hall"),
		order("2", "Room 2, Nehru Hall"),
	})
	three := Batches([]models.OrderView{
		order("1", "Room 1, Nehru Hall"),
		order("2", "Room 2, Nehru Hall"),
		order("3", "Room 3, Nehru Hall"),
	})

	require.Len(t, two, 1)
	require.Len(t, three, 1)
	assert.Greater(t, three[0].DistanceKm, two[0].DistanceKm)
	assert.Greater(t, three[0].DurationMinutes, two[0].DurationMinutes)
}

func TestBatchesLargestGroupFirst(t *testing.T) {
	groups := Batches([]models.OrderView{
		order("1", "Room 1, Azad Hall"),
		order("2", "Room 2, Azad Hall"),
		order("3", "Room 1, Nehru Hall"),
		order("4", "Room 2, Nehru Hall"),
		order("5", "Room 3, Nehru Hall"),
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "Nehru Hall Zone", groups[0].ZoneLabel)
	assert.Equal(t, "Azad Hall Zone", groups[1].ZoneLabel)
}
