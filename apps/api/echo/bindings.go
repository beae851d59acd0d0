package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/projex/core"
	"github.com/trezcool/projex/core/project"
	"github.com/trezcool/projex/core/student"
	"github.com/trezcool/projex/core/teacher"
)

// bindPage reads the page & limit query params. Invalid values fall back to the defaults.
func bindPage(ctx echo.Context) core.Page {
	var page core.Page
	page.Number, _ = strconv.Atoi(ctx.QueryParam("page"))
	page.Limit, _ = strconv.Atoi(ctx.QueryParam("limit"))
	page.Clean()
	return page
}

func bindStudentFilter(ctx echo.Context) student.Filter {
	filter := student.Filter{
		Search:     ctx.QueryParam("search"),
		Department: ctx.QueryParam("department"),
	}
	if b, err := strconv.ParseBool(ctx.QueryParam("has_project")); err == nil {
		filter.HasProject = &b
	}
	filter.Clean()
	return filter
}

func bindTeacherFilter(ctx echo.Context) teacher.Filter {
	filter := teacher.Filter{Search: ctx.QueryParam("search")}
	filter.Clean()
	return filter
}

func bindProjectFilter(ctx echo.Context) project.Filter {
	filter := project.Filter{
		Search: ctx.QueryParam("search"),
		Status: project.Status(ctx.QueryParam("status")),
	}
	filter.Clean()
	return filter
}

type (
	// Paginated wraps a page of results.
	Paginated struct {
		Results    interface{}     `json:"results"`
		Pagination core.Pagination `json:"pagination"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)
