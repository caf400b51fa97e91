package services

import "fmt"

// defaultSeatsPerRow matches the 2+2 coach layout used across the fleet.
const defaultSeatsPerRow = 4

// SeatCatalog derives the ordered set of seat labels for a trip from its bus
// capacity. Labels are stable: the same capacity always yields the same
// sequence, so they can be persisted and compared across processes.
type SeatCatalog struct {
	seatsPerRow int
}

// NewSeatCatalog creates a catalog with the standard 2+2 row layout
func NewSeatCatalog() *SeatCatalog {
	return &SeatCatalog{seatsPerRow: defaultSeatsPerRow}
}

// SeatsFor returns the ordered seat labels for a bus of the given capacity.
// len(result) == capacity; a non-positive capacity yields no seats.
// Labels are row letter + seat number, with a W suffix on the window seats
// (first and last seat of each row), e.g. A1W, A2, A3, A4W, B1W, ...
func (c *SeatCatalog) SeatsFor(capacity int) []string {
	if capacity <= 0 {
		return nil
	}

	labels := make([]string, 0, capacity)
	remaining := capacity
	for row := 1; remaining > 0; row++ {
		seatsInRow := c.seatsPerRow
		if remaining < seatsInRow {
			seatsInRow = remaining
		}
		rowLabel := rowLabel(row)
		for seat := 1; seat <= seatsInRow; seat++ {
			labels = append(labels, seatLabel(rowLabel, seat, seatsInRow))
		}
		remaining -= seatsInRow
	}
	return labels
}

// Unknown reports which of the requested labels fall outside the catalog for
// the given capacity. An empty result means every label is valid.
func (c *SeatCatalog) Unknown(capacity int, requested []string) []string {
	valid := make(map[string]struct{}, capacity)
	for _, label := range c.SeatsFor(capacity) {
		valid[label] = struct{}{}
	}

	var unknown []string
	for _, label := range requested {
		if _, ok := valid[label]; !ok {
			unknown = append(unknown, label)
		}
	}
	return unknown
}

// seatLabel builds a label like A1W, A2, B3W. The first and last seat of a
// row sit at the windows.
func seatLabel(rowLabel string, seatNumber, totalSeatsInRow int) string {
	if seatNumber == 1 || seatNumber == totalSeatsInRow {
		return fmt.Sprintf("%s%dW", rowLabel, seatNumber)
	}
	return fmt.Sprintf("%s%d", rowLabel, seatNumber)
}

// rowLabel converts a row number to an alphabetic label (1->A, 27->AA).
func rowLabel(rowNumber int) string {
	if rowNumber <= 0 {
		return "A"
	}
	if rowNumber <= 26 {
		return string(rune('A' + rowNumber - 1))
	}
	first := (rowNumber - 1) / 26
	second := (rowNumber - 1) % 26
	return string(rune('A'+first-1)) + string(rune('A'+second))
}
