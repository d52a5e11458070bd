package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/tuition/core/payment"
	"github.com/trezcool/tuition/tests"
)

func getPayment(t *testing.T, app testApp, id int) payment.Payment {
	t.Helper()
	p, err := app.payRepo.GetPayment(context.Background(), id)
	if err != nil {
		t.Fatalf("getPayment() failed: %v", err)
	}
	return p
}

func Test_paymentApi_query(t *testing.T) {
	app := setup(t)

	ada := testutil.CreateStudent(t, app.stdRepo, "Ada", 5)
	bob := testutil.CreateStudent(t, app.stdRepo, "Bob", 5)
	goGrp := testutil.CreateGroup(t, app.grpRepo, "Go", "100", ada.ID, bob.ID)
	rustGrp := testutil.CreateGroup(t, app.grpRepo, "Rust", "80", ada.ID)

	p1 := getPayment(t, app, testutil.CreatePayment(t, app.payRepo, ada.ID, goGrp, "2023-03-02", "100").ID)
	p2 := getPayment(t, app, testutil.CreatePayment(t, app.payRepo, ada.ID, rustGrp, "2023-04-01", "80").ID)
	p3 := getPayment(t, app, testutil.CreatePayment(t, app.payRepo, bob.ID, goGrp, "2023-03-30", "50", "2023-04").ID)

	runHttpTests(t, app, []httpTest{
		{
			name:     "all, newest first",
			method:   http.MethodGet,
			path:     "/v1/payments",
			wantCode: http.StatusOK,
			wantData: marchallList(t, p2, p3, p1),
		},
		{
			name:     "student",
			method:   http.MethodGet,
			path:     "/v1/payments?student_id=" + itoa(ada.ID),
			wantCode: http.StatusOK,
			wantData: marchallList(t, p2, p1),
		},
		{
			name:     "group",
			method:   http.MethodGet,
			path:     "/v1/payments?group_id=" + itoa(goGrp.ID),
			wantCode: http.StatusOK,
			wantData: marchallList(t, p3, p1),
		},
		{
			name:     "date range",
			method:   http.MethodGet,
			path:     "/v1/payments?date_from=2023-03-15&date_to=2023-04-01",
			wantCode: http.StatusOK,
			wantData: marchallList(t, p2, p3),
		},
		{
			name:     "period",
			method:   http.MethodGet,
			path:     "/v1/payments?period=2023-04",
			wantCode: http.StatusOK,
			wantData: marchallList(t, p2, p3),
		},
		{
			name:     "malformed date",
			method:   http.MethodGet,
			path:     "/v1/payments?date_from=yesterday",
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
	})
}

func Test_paymentApi_create(t *testing.T) {
	app := setup(t)

	ada := testutil.CreateStudent(t, app.stdRepo, "Ada", 5)
	grp := testutil.CreateGroup(t, app.grpRepo, "Go", "100", ada.ID)

	t.Run("valid", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/payments", []byte(
			`{"date": "2023-03-02", "amount": "60", "student_id": `+itoa(ada.ID)+`, "group_id": `+itoa(grp.ID)+`, "payment_type": " CARD "}`,
		))
		if !assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String()) {
			return
		}
		var p payment.Payment
		unmarshal(t, rec, &p)
		assert.NotZero(t, p.ID)
		assert.True(t, decimal.NewFromInt(60).Equal(p.Amount))
		assert.True(t, decimal.NewFromInt(100).Equal(p.CoursePriceAtPayment), "snapshots the group price")
		assert.Equal(t, "2023-03", p.PaymentPeriod.String())
		assert.Equal(t, payment.TypeCard, p.PaymentType)
	})

	runHttpTests(t, app, []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/v1/payments",
			body:     []byte(`{"amount": "10"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"date": "this field is required", "student_id": "this field is required", "group_id": "this field is required"}`),
		},
		{
			name:     "negative amount",
			method:   http.MethodPost,
			path:     "/v1/payments",
			body:     []byte(`{"date": "2023-03-02", "amount": "-1", "student_id": ` + itoa(ada.ID) + `, "group_id": ` + itoa(grp.ID) + `}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"amount": "must not be negative"}`),
		},
		{
			name:     "unknown student",
			method:   http.MethodPost,
			path:     "/v1/payments",
			body:     []byte(`{"date": "2023-03-02", "amount": "1", "student_id": 999, "group_id": ` + itoa(grp.ID) + `}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"student_id": "student not found"}`),
		},
		{
			name:     "unknown group",
			method:   http.MethodPost,
			path:     "/v1/payments",
			body:     []byte(`{"date": "2023-03-02", "amount": "1", "student_id": ` + itoa(ada.ID) + `, "group_id": 999}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"group_id": "group not found"}`),
		},
	})
}

func Test_paymentApi_detail(t *testing.T) {
	app := setup(t)

	ada := testutil.CreateStudent(t, app.stdRepo, "Ada", 5)
	grp := testutil.CreateGroup(t, app.grpRepo, "Go", "100", ada.ID)
	p := getPayment(t, app, testutil.CreatePayment(t, app.payRepo, ada.ID, grp, "2023-03-02", "100").ID)
	path := "/v1/payments/" + itoa(p.ID)

	runHttpTests(t, app, []httpTest{
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     path,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, p),
		},
		{
			name:     "retrieve unknown",
			method:   http.MethodGet,
			path:     "/v1/payments/999",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "payment not found"}),
		},
		{
			name:     "update unknown group",
			method:   http.MethodPut,
			path:     path,
			body:     []byte(`{"group_id": 999}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"group_id": "group not found"}`),
		},
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(http.MethodPut, path, []byte(`{"amount": "75.25", "payment_period": "2023-02", "notes": "late"}`))
		if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
			return
		}
		var upd payment.Payment
		unmarshal(t, rec, &upd)
		assert.True(t, decimal.RequireFromString("75.25").Equal(upd.Amount))
		assert.Equal(t, "2023-02", upd.PaymentPeriod.String())
		assert.Equal(t, "late", upd.Notes.String)
		assert.Equal(t, p.Date, upd.Date)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, path)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = app.do(http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
