package services_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/foodinspector/internal/application/services"
)

func newBuilder() *services.QueryBuilder {
	return services.NewQueryBuilder("https://data.example.gov", "/resource/f29f-zza5.json")
}

func TestQueryBuilder_EscapesSingleQuotes(t *testing.T) {
	q := newBuilder().Build("O'Brien's", "Seattle", "2021-03-04")

	assert.Contains(t, q.Where, "upper(program_identifier)=upper('O''Brien''s')")
	assert.Contains(t, q.Where, "upper(city)=upper('Seattle')")
	assert.Contains(t, q.Where, "inspection_date > '2021-03-04T00:00:00.000'")

	parsed, err := url.Parse(q.URL)
	require.NoError(t, err)
	assert.Equal(t, "50000", parsed.Query().Get("$limit"))
	assert.Equal(t, q.Where, parsed.Query().Get("$where"))
	assert.NotContains(t, q.URL, "'")
	assert.True(t, strings.HasPrefix(q.URL, "https://data.example.gov/resource/f29f-zza5.json?$limit=50000&$where="))
}

func TestQueryBuilder_DefaultStartDate(t *testing.T) {
	q := newBuilder().Build("CAFE", "SEATTLE", "")

	assert.Equal(t, services.DefaultStartDate, q.StartDate)
	assert.True(t, strings.HasSuffix(q.Where, "inspection_date > '2020-01-01T00:00:00.000'"))
}

func TestQueryBuilder_EmptyInputsStillValid(t *testing.T) {
	q := newBuilder().Build("", "  ", "")

	assert.Equal(t, "inspection_date > '2020-01-01T00:00:00.000'", q.Where)
	parsed, err := url.Parse(q.URL)
	require.NoError(t, err)
	assert.Equal(t, q.Where, parsed.Query().Get("$where"))
}

func TestQueryBuilder_ClauseOrderAndJoin(t *testing.T) {
	q := newBuilder().Build("CAFE", "SEATTLE", "2022-01-01")

	assert.Equal(t,
		"upper(program_identifier)=upper('CAFE') AND upper(city)=upper('SEATTLE') AND inspection_date > '2022-01-01T00:00:00.000'",
		q.Where)
	assert.Equal(t, "CAFE", q.ProgramIdentifier)
	assert.Equal(t, "SEATTLE", q.City)
}

func TestQueryBuilder_QuoteInDateAndCity(t *testing.T) {
	q := newBuilder().Build("", "Coeur d'Alene", "2021-01-01' OR '1'='1")

	assert.Contains(t, q.Where, "upper(city)=upper('Coeur d''Alene')")
	assert.Contains(t, q.Where, "'2021-01-01'' OR ''1''=''1T00:00:00.000'")
}

func TestQueryBuilder_Deterministic(t *testing.T) {
	b := newBuilder()

	assert.Equal(t, b.Build("A", "B", "2021-01-01"), b.Build("A", "B", "2021-01-01"))
}
