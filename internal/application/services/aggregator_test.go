package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/foodinspector/internal/application/services"
	"github.com/zatekoja/foodinspector/internal/domain/entities"
)

func row(pid, date, serial, violation string) entities.InspectionRow {
	return entities.InspectionRow{
		ProgramIdentifier:    pid,
		Name:                 pid + " name",
		City:                 "SEATTLE",
		InspectionSerialNum:  serial,
		InspectionDate:       entities.MustParseDate(date),
		ViolationDescription: violation,
	}
}

func TestAggregateLatest_PicksMostRecentVisit(t *testing.T) {
	rows := []entities.InspectionRow{
		row("A", "2021-01-01", "S1", ""),
		row("A", "2022-06-15", "S2", "Cold holding"),
	}

	out := services.AggregateLatest(rows)

	require.Len(t, out, 1)
	assert.Equal(t, entities.MustParseDate("2022-06-15"), out[0].InspectionDate)
	require.Len(t, out[0].Violations, 1)
	assert.Equal(t, "Cold holding", out[0].Violations[0].ViolationDescription)
	assert.Equal(t, "S2", out[0].InspectionSerialNum)
}

func TestAggregateAll_GroupsByVisit(t *testing.T) {
	rows := []entities.InspectionRow{
		row("A", "2021-01-01", "S1", "Handwashing"),
		row("A", "2021-01-01", "S1", "Cold holding"),
		row("A", "2022-06-15", "S2", ""),
	}

	out := services.AggregateAll(rows)

	require.Len(t, out, 2)
	assert.Equal(t, entities.MustParseDate("2021-01-01"), out[0].InspectionDate)
	require.Len(t, out[0].Violations, 2)
	assert.Equal(t, "Handwashing", out[0].Violations[0].ViolationDescription)
	assert.Equal(t, "Cold holding", out[0].Violations[1].ViolationDescription)
	assert.Equal(t, entities.MustParseDate("2022-06-15"), out[1].InspectionDate)
	assert.NotNil(t, out[1].Violations)
	assert.Empty(t, out[1].Violations)
}

func TestAggregate_EmptyInput(t *testing.T) {
	all := services.AggregateAll(nil)
	latest := services.AggregateLatest([]entities.InspectionRow{})

	assert.NotNil(t, all)
	assert.Empty(t, all)
	assert.NotNil(t, latest)
	assert.Empty(t, latest)
}

func TestAggregateAll_FirstSeenOrder(t *testing.T) {
	rows := []entities.InspectionRow{
		row("B", "2022-01-01", "S9", "x"),
		row("A", "2021-01-01", "S1", "y"),
		row("B", "2022-01-01", "S9", "z"),
		row("A", "2020-05-01", "S0", ""),
	}

	out := services.AggregateAll(rows)

	require.Len(t, out, 3)
	assert.Equal(t, "B", out[0].ProgramIdentifier)
	assert.Len(t, out[0].Violations, 2)
	assert.Equal(t, "A", out[1].ProgramIdentifier)
	assert.Equal(t, entities.MustParseDate("2021-01-01"), out[1].InspectionDate)
	assert.Equal(t, entities.MustParseDate("2020-05-01"), out[2].InspectionDate)
}

func TestAggregateLatest_NoCrossVisitLeakage(t *testing.T) {
	rows := []entities.InspectionRow{
		row("A", "2022-06-15", "S2", "latest violation"),
		row("A", "2021-01-01", "S1", "old violation"),
		row("B", "2020-02-02", "S3", "b violation"),
	}

	out := services.AggregateLatest(rows)

	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].ProgramIdentifier)
	require.Len(t, out[0].Violations, 1)
	assert.Equal(t, "latest violation", out[0].Violations[0].ViolationDescription)
	for _, agg := range out {
		for _, v := range agg.Violations {
			assert.NotEqual(t, "old violation", v.ViolationDescription)
		}
	}
}

func TestAggregateLatest_TieChoosesOneOfTiedRows(t *testing.T) {
	first := row("A", "2022-06-15", "S1", "v1")
	second := row("A", "2022-06-15", "S2", "v2")
	second.Name = "other name"
	rows := []entities.InspectionRow{row("A", "2021-01-01", "S0", "old"), first, second}

	out := services.AggregateLatest(rows)

	require.Len(t, out, 1)
	assert.Equal(t, entities.MustParseDate("2022-06-15"), out[0].InspectionDate)
	assert.Contains(t, []string{"S1", "S2"}, out[0].InspectionSerialNum)
	assert.Len(t, out[0].Violations, 2)
}

func TestLatestRows(t *testing.T) {
	rows := []entities.InspectionRow{
		row("A", "2021-01-01", "S1", "old"),
		row("B", "2020-01-01", "S3", ""),
		row("A", "2022-06-15", "S2", "new 1"),
		row("A", "2022-06-15", "S2", "new 2"),
	}

	out := services.LatestRows(rows)

	require.Len(t, out, 3)
	assert.Equal(t, "new 1", out[0].ViolationDescription)
	assert.Equal(t, "new 2", out[1].ViolationDescription)
	assert.Equal(t, "B", out[2].ProgramIdentifier)
	assert.Empty(t, services.LatestRows(nil))
}
