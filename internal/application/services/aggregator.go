package services

import "github.com/zatekoja/foodinspector/internal/domain/entities"

// rowGroup collects rows under one grouping key in input order.
type rowGroup struct {
	rows []entities.InspectionRow
}

// groupRows partitions rows by key, keeping groups in first-seen order.
func groupRows(rows []entities.InspectionRow, key func(entities.InspectionRow) string) []*rowGroup {
	index := make(map[string]*rowGroup)
	groups := make([]*rowGroup, 0)

	for _, row := range rows {
		k := key(row)
		g, ok := index[k]
		if !ok {
			g = &rowGroup{}
			index[k] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}

	return groups
}

func visitKey(row entities.InspectionRow) string {
	return row.ProgramIdentifier + "\x00" + row.InspectionDate.Key()
}

func establishmentKey(row entities.InspectionRow) string {
	return row.ProgramIdentifier
}

// latestIndex returns the position of the first row carrying the group's maximum date.
func latestIndex(rows []entities.InspectionRow) int {
	best := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].InspectionDate.After(rows[best].InspectionDate.Time) {
			best = i
		}
	}
	return best
}

func newAggregated(rep entities.InspectionRow) entities.AggregatedInspection {
	return entities.AggregatedInspection{
		ProgramIdentifier:        rep.ProgramIdentifier,
		Name:                     rep.Name,
		Description:              rep.Description,
		Address:                  rep.Address,
		City:                     rep.City,
		ZipCode:                  rep.ZipCode,
		InspectionBusinessName:   rep.InspectionBusinessName,
		InspectionType:           rep.InspectionType,
		InspectionScore:          rep.InspectionScore,
		InspectionResult:         rep.InspectionResult,
		InspectionClosedBusiness: rep.InspectionClosedBusiness,
		InspectionSerialNum:      rep.InspectionSerialNum,
		InspectionDate:           rep.InspectionDate,
		Violations:               []entities.Violation{},
	}
}

func violationOf(row entities.InspectionRow) (entities.Violation, bool) {
	if row.ViolationDescription == "" {
		return entities.Violation{}, false
	}
	return entities.Violation{
		ViolationType:        row.ViolationType,
		ViolationDescription: row.ViolationDescription,
		ViolationPoints:      row.ViolationPoints,
	}, true
}

// AggregateAll emits one record per (program identifier, inspection date) visit.
// Rows without violation text add no violation entry.
func AggregateAll(rows []entities.InspectionRow) []entities.AggregatedInspection {
	groups := groupRows(rows, visitKey)
	out := make([]entities.AggregatedInspection, 0, len(groups))

	for _, g := range groups {
		agg := newAggregated(g.rows[0])
		for _, row := range g.rows {
			if v, ok := violationOf(row); ok {
				agg.Violations = append(agg.Violations, v)
			}
		}
		out = append(out, agg)
	}

	return out
}

// AggregateLatest emits one record per establishment, dated at its most recent
// inspection, with only that date's violations.
func AggregateLatest(rows []entities.InspectionRow) []entities.AggregatedInspection {
	groups := groupRows(rows, establishmentKey)
	out := make([]entities.AggregatedInspection, 0, len(groups))

	for _, g := range groups {
		rep := g.rows[latestIndex(g.rows)]
		agg := newAggregated(rep)
		for _, row := range g.rows {
			if !row.InspectionDate.Equal(rep.InspectionDate.Time) {
				continue
			}
			if v, ok := violationOf(row); ok {
				agg.Violations = append(agg.Violations, v)
			}
		}
		out = append(out, agg)
	}

	return out
}

// LatestRows keeps, per establishment, only the raw rows at its most recent inspection date.
func LatestRows(rows []entities.InspectionRow) []entities.InspectionRow {
	groups := groupRows(rows, establishmentKey)
	out := make([]entities.InspectionRow, 0, len(rows))

	for _, g := range groups {
		latest := g.rows[latestIndex(g.rows)].InspectionDate
		for _, row := range g.rows {
			if row.InspectionDate.Equal(latest.Time) {
				out = append(out, row)
			}
		}
	}

	return out
}
