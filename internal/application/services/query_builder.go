package services

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/zatekoja/foodinspector/internal/domain/entities"
)

const (
	// DefaultStartDate is the inspection date lower bound used when none is given.
	DefaultStartDate = "2020-01-01"

	// DefaultRowLimit is the $limit sent with every request.
	DefaultRowLimit = 50000
)

// QueryBuilder turns establishment filters into SoQL requests for the inspection API
type QueryBuilder struct {
	BaseURI     string
	RelativeURI string
	Limit       int
}

// NewQueryBuilder creates a query builder for the given endpoint
func NewQueryBuilder(baseURI, relativeURI string) *QueryBuilder {
	return &QueryBuilder{
		BaseURI:     baseURI,
		RelativeURI: relativeURI,
		Limit:       DefaultRowLimit,
	}
}

// EscapeLiteral doubles single quotes so the value is safe inside a quoted SoQL literal.
func EscapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// Build produces the where clause and the full request URL. The date bound
// is always present, so the result is valid even when every input is empty.
func (b *QueryBuilder) Build(identifier, city, startDate string) entities.InspectionQuery {
	identifier = strings.TrimSpace(identifier)
	city = strings.TrimSpace(city)
	startDate = strings.TrimSpace(startDate)

	clauses := make([]string, 0, 3)
	if identifier != "" {
		clauses = append(clauses, "upper(program_identifier)=upper('"+EscapeLiteral(identifier)+"')")
	}
	if city != "" {
		clauses = append(clauses, "upper(city)=upper('"+EscapeLiteral(city)+"')")
	}

	bound := startDate
	if bound == "" {
		bound = DefaultStartDate
	}
	clauses = append(clauses, "inspection_date > '"+EscapeLiteral(bound)+"T00:00:00.000'")

	where := strings.Join(clauses, " AND ")

	limit := b.Limit
	if limit <= 0 {
		limit = DefaultRowLimit
	}

	return entities.InspectionQuery{
		ProgramIdentifier: identifier,
		City:              city,
		StartDate:         bound,
		Where:             where,
		URL:               b.BaseURI + b.RelativeURI + "?$limit=" + strconv.Itoa(limit) + "&$where=" + url.QueryEscape(where),
	}
}
