package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/question"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindQuestionFilter reads the question list filters from the query string.
func bindQuestionFilter(ctx echo.Context, bankID int64) (question.QueryFilter, error) {
	filter := question.QueryFilter{
		BankID: bankID,
		Search: core.CleanString(ctx.QueryParam("search")),
		States: ctx.QueryParams()["state"],
		Types:  ctx.QueryParams()["type"],
	}
	if raw := ctx.QueryParam("include_deleted"); raw != "" {
		incl, err := strconv.ParseBool(raw)
		if err != nil {
			return question.QueryFilter{}, core.NewValidationError(nil, core.FieldError{Field: "include_deleted", Error: "must be a boolean"})
		}
		filter.IncludeDeleted = incl
	}
	return filter, nil
}

// idParam parses a numeric path parameter; anything else is a 404.
func idParam(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
