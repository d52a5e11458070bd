package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	. "github.com/trezcool/tuition/apps/api/echo"
	"github.com/trezcool/tuition/core"
	"github.com/trezcool/tuition/core/debt"
	"github.com/trezcool/tuition/core/group"
	"github.com/trezcool/tuition/core/payment"
	"github.com/trezcool/tuition/core/stats"
	"github.com/trezcool/tuition/core/student"
	"github.com/trezcool/tuition/services/logger"
	"github.com/trezcool/tuition/storage/database/sqlx"
	"github.com/trezcool/tuition/tests"
)

type testApp struct {
	server  *Server
	stdRepo student.Repository
	grpRepo group.Repository
	payRepo payment.Repository
}

func setup(t *testing.T) testApp {
	// set up DB & repos
	db := testutil.PrepareDB(t)
	stdRepo := sqlxrepos.NewStudentRepository(db)
	grpRepo := sqlxrepos.NewGroupRepository(db)
	payRepo := sqlxrepos.NewPaymentRepository(db)
	store := sqlxrepos.NewLedgerStore(db)

	conf := &core.Config{AppName: "Tuition", TestMode: true, Timezone: "UTC"}
	logger := logsvc.NewRollbarLogger(zaptest.NewLogger(t), conf)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)

	// set up server
	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		StudentSvc:     student.NewService(db, stdRepo),
		GroupSvc:       group.NewService(db, grpRepo, stdRepo),
		PaymentSvc:     payment.NewService(db, payRepo, stdRepo, grpRepo),
		DebtSvc:        debt.NewService(store, logger, conf),
		StatsSvc:       stats.NewService(store, logger, conf),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = server.Close() })

	return testApp{server: server, stdRepo: stdRepo, grpRepo: grpRepo, payRepo: payRepo}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

// do serves the request and returns the recorded response.
func (app testApp) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		assert.Empty(t, rec.Body.Bytes())
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHttpTests(t *testing.T, app testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
