package services

import "github.com/zatekoja/foodinspector/internal/domain/entities"

// AssignViolationIDs numbers the violations of each inspection visit 0, 1, 2, ...
// in row order. Rows without a serial number are their own visit and get 0.
// The input is not modified.
func AssignViolationIDs(rows []entities.InspectionRow) []entities.InspectionRow {
	out := make([]entities.InspectionRow, len(rows))
	next := make(map[string]int)

	for i, row := range rows {
		if row.InspectionSerialNum == "" {
			row.ID = 0
		} else {
			row.ID = next[row.InspectionSerialNum]
			next[row.InspectionSerialNum]++
		}
		out[i] = row
	}

	return out
}
