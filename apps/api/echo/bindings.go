package echoapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/stats"
)

var (
	orderingParam = "ordering"
	objectKey     = "object"

	errObjNotFoundInCtx = errors.New("object not found in echo.Context")
)

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
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// pathID reads a positive integer path parameter. Anything else is a 404.
func pathID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// queryInt reads an optional integer query parameter, returning def when it is absent.
func queryInt(ctx echo.Context, name string, def int) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be an integer"})
	}
	return n, nil
}

// queryMonths reads the "months" window, rejecting values outside 1..stats.MaxMonths.
func queryMonths(ctx echo.Context, def int) (int, error) {
	n, err := queryInt(ctx, "months", def)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > stats.MaxMonths {
		return 0, core.NewValidationError(nil, core.FieldError{
			Field: "months",
			Error: fmt.Sprintf("must be between 1 and %d", stats.MaxMonths),
		})
	}
	return n, nil
}
