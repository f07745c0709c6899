package aggregate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"live-sync/internal/models"
)

// zonePattern matches a named residence in a delivery address: the name
// token immediately before a hall/hostel/block keyword.
var zonePattern = regexp.MustCompile(`(?i)\b([A-Za-z]+)\s+(hall|hostel|block)\b`)

// ExtractZone pulls the zone label out of a delivery address, e.g.
// "Room 2, Nehru Hall" -> "Nehru Hall". ok is false when the address has no
// named residence.
func ExtractZone(address string) (string, bool) {
	m := zonePattern.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	return titleCase(m[1]) + " " + titleCase(m[2]), true
}

func titleCase(word string) string {
	word = strings.ToLower(word)
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// Batches groups the active orders by extracted zone and materializes every
// zone holding at least two orders as a delivery batch. Orders keep their
// incoming position inside a group and get 1-based sequence numbers. The
// distance and duration figures are synthetic display estimates that grow
// with group size; they are not routing output.
func Batches(active []models.OrderView) []models.BatchGroup {
	type zone struct {
		label  string
		orders []models.OrderView
	}
	byZone := map[string]*zone{}
	var order []string

	for _, o := range active {
		label, ok := ExtractZone(o.Address)
		if !ok {
			continue
		}
		id := zoneID(label)
		z, seen := byZone[id]
		if !seen {
			z = &zone{label: label}
			byZone[id] = z
			order = append(order, id)
		}
		z.orders = append(z.orders, o)
	}

	var groups []models.BatchGroup
	for _, id := range order {
		z := byZone[id]
		if len(z.orders) < 2 {
			continue
		}
		stops := make([]models.BatchOrder, 0, len(z.orders))
		for i, o := range z.orders {
			stops = append(stops, models.BatchOrder{
				OrderID:     o.ID,
				OrderNumber: o.OrderNumber,
				Sequence:    i + 1,
				Address:     o.Address,
				RiderStatus: o.RiderStatus,
			})
		}
		groups = append(groups, models.BatchGroup{
			ZoneID:          id,
			ZoneLabel:       z.label + " Zone",
			Orders:          stops,
			DistanceKm:      estimateDistanceKm(len(stops)),
			DurationMinutes: estimateDurationMinutes(len(stops)),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Orders) > len(groups[j].Orders)
	})
	return groups
}

func zoneID(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "-")
}

func estimateDistanceKm(stops int) float64 {
	return 1.2 + 0.6*float64(stops)
}

func estimateDurationMinutes(stops int) int {
	return 8 + 5*stops
}

// String renders a short batch summary for logs.
func String(g models.BatchGroup) string {
	return fmt.Sprintf("%s (%d stops, ~%.1fkm)", g.ZoneLabel, len(g.Orders), g.DistanceKm)
}
