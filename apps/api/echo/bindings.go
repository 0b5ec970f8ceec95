package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meryambn/mimiScaleUp-sub005/core"
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

// intParam parses the `name` path param as a positive id.
func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "invalid id"})
	}
	return id, nil
}

// bind decodes the request body into `v`. Malformed payloads are validation errors.
func bind(ctx echo.Context, v interface{}) error {
	if err := ctx.Bind(v); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok {
			if msg, ok := herr.Message.(string); ok {
				return core.NewValidationError(nil, core.FieldError{Field: "body", Error: msg})
			}
		}
		return core.NewValidationError(err)
	}
	return nil
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	MarkedResponse struct {
		Marked int `json:"marked"`
	}
)
