package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/tests"
)

func getGroup(t *testing.T, app testApp, id int) group.Group {
	t.Helper()
	g, err := app.grpRepo.GetGroup(context.Background(), id)
	if err != nil {
		t.Fatalf("getGroup() failed: %v", err)
	}
	return g
}

func Test_groupApi_query(t *testing.T) {
	app := setup(t)

	ada := testutil.CreateStudent(t, app.stdRepo, "Ada", 5)
	goGrp := getGroup(t, app, testutil.CreateGroup(t, app.grpRepo, "Go basics", "100", ada.ID).ID)
	rustGrp := getGroup(t, app, testutil.CreateGroup(t, app.grpRepo, "Rust", "80").ID)

	runHttpTests(t, app, []httpTest{
		{
			name:     "all",
			method:   http.MethodGet,
			path:     "/v1/groups",
			wantCode: http.StatusOK,
			wantData: marchallList(t, goGrp, rustGrp),
		},
		{
			name:     "search",
			method:   http.MethodGet,
			path:     "/v1/groups?search=BASIC",
			wantCode: http.StatusOK,
			wantData: marchallList(t, goGrp),
		},
		{
			name:     "student",
			method:   http.MethodGet,
			path:     "/v1/groups?student_id=" + itoa(ada.ID),
			wantCode: http.StatusOK,
			wantData: marchallList(t, goGrp),
		},
		{
			name:     "ordered by price",
			method:   http.MethodGet,
			path:     "/v1/groups?ordering=course_price",
			wantCode: http.StatusOK,
			wantData: marchallList(t, rustGrp, goGrp),
		},
	})
}

func Test_groupApi_create(t *testing.T) {
	app := setup(t)
	ada := testutil.CreateStudent(t, app.stdRepo, "Ada", 5)

	t.Run("valid", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/groups", []byte(
			`{"title": " Go ", "course_price": "120.50", "student_ids": [`+itoa(ada.ID)+`]}`,
		))
		if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
			return
		}
		var g group.Group
		unmarshal(t, rec, &g)
		assert.Equal(t, "Go", g.Title)
		assert.True(t, decimal.RequireFromString("120.5").Equal(g.CoursePrice))
		assert.Equal(t, 1, g.StudentsCount)
	})

	runHttpTests(t, app, []httpTest{
		{
			name:     "missing title",
			method:   http.MethodPost,
			path:     "/v1/groups",
			body:     []byte(`{"course_price": "10"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"title": "this field is required"}`),
		},
		{
			name:     "negative price",
			method:   http.MethodPost,
			path:     "/v1/groups",
			body:     []byte(`{"title": "Rust", "course_price": "-1"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"course_price": "must not be negative"}`),
		},
		{
			name:     "unknown student",
			method:   http.MethodPost,
			path:     "/v1/groups",
			body:     []byte(`{"title": "Rust", "course_price": "10", "student_ids": [999]}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"student_ids": "one or more students do not exist"}`),
		},
	})
}

func Test_groupApi_detail(t *testing.T) {
	app := setup(t)

	ada := testutil.CreateStudent(t, app.stdRepo, "Ada", 5)
	bob := testutil.CreateStudent(t, app.stdRepo, "Bob", 5)
	grp := getGroup(t, app, testutil.CreateGroup(t, app.grpRepo, "Go", "100", bob.ID).ID)
	path := "/v1/groups/" + itoa(grp.ID)

	runHttpTests(t, app, []httpTest{
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     path,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, grp),
		},
		{
			name:     "retrieve unknown",
			method:   http.MethodGet,
			path:     "/v1/groups/999",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "group not found"}),
		},
		{
			name:     "add student",
			method:   http.MethodPost,
			path:     path + "/students",
			body:     []byte(`{"student_id": ` + itoa(ada.ID) + `}`),
			wantCode: http.StatusNoContent,
		},
		{
			name:     "add student twice",
			method:   http.MethodPost,
			path:     path + "/students",
			body:     []byte(`{"student_id": ` + itoa(ada.ID) + `}`),
			wantCode: http.StatusNoContent,
		},
		{
			name:     "add unknown student",
			method:   http.MethodPost,
			path:     path + "/students",
			body:     []byte(`{"student_id": 999}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
		{
			name:     "add without student",
			method:   http.MethodPost,
			path:     path + "/students",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"student_id": "this field is required"}`),
		},
		{
			name:     "remove student",
			method:   http.MethodDelete,
			path:     path + "/students/" + itoa(bob.ID),
			wantCode: http.StatusNoContent,
		},
		{
			name:     "remove student not enrolled",
			method:   http.MethodDelete,
			path:     path + "/students/" + itoa(bob.ID),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "enrollment not found"}),
		},
	})

	t.Run("students", func(t *testing.T) {
		rec := app.do(http.MethodGet, path+"/students")
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, getStudent(t, app, ada.ID))}, rec)
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(http.MethodPut, path, []byte(`{"course_price": "150", "student_ids": []}`))
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var g group.Group
		unmarshal(t, rec, &g)
		assert.Equal(t, "Go", g.Title)
		assert.True(t, decimal.NewFromInt(150).Equal(g.CoursePrice))
		assert.Equal(t, 0, g.StudentsCount)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, path)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = app.do(http.MethodDelete, path)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
