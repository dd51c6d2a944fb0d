package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/campusgpt/admission/internal/app/controllers"
	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/app/repositories/memory"
	"github.com/campusgpt/admission/internal/app/routes"
	"github.com/campusgpt/admission/internal/app/services"
	"github.com/campusgpt/admission/internal/config"
	"github.com/campusgpt/admission/internal/middleware"
	"github.com/campusgpt/admission/internal/pkg/auth"
	"github.com/campusgpt/admission/internal/pkg/email"
	"github.com/campusgpt/admission/internal/pkg/filestorage"
	"github.com/campusgpt/admission/internal/pkg/payment"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *dto.ErrorDetail `json:"error"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	repos  *repositories.Repositories
	jwt    *auth.JWTService
}

type nopNotifier struct{}

func (nopNotifier) NotifyEligible(context.Context, email.EligibilityNotice) {}
func (nopNotifier) NotifyAdmitted(context.Context, email.AdmissionNotice)   {}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	repos := memory.NewRepositories()
	require.NoError(t, repos.Reference.UpsertProgram(ctx, &models.Program{Code: "BSCS", Name: "BS Computer Science", DurationSemesters: 8}))
	require.NoError(t, repos.Reference.UpsertProgram(ctx, &models.Program{Code: "BSDS", Name: "BS Data Science", DurationSemesters: 8}))
	require.NoError(t, repos.Reference.UpsertCriteria(ctx, &models.AdmissionCriteria{Program: "BSCS", MinFscPercentage: 60, MinMatricPercentage: 50}))
	require.NoError(t, repos.Reference.UpsertCriteria(ctx, &models.AdmissionCriteria{Program: "BSDS", MinFscPercentage: 90, MinMatricPercentage: 50}))

	hash, err := auth.HashPassword("Admin123!")
	require.NoError(t, err)
	require.NoError(t, repos.Staff.Create(ctx, &models.StaffUser{Email: "admin@superior.edu.pk", PasswordHash: hash, Role: models.RoleAdmin, IsActive: true}))
	require.NoError(t, repos.Staff.Create(ctx, &models.StaffUser{Email: "officer@superior.edu.pk", PasswordHash: hash, Role: models.RoleOfficer, IsActive: true}))

	storage, err := filestorage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	jwt := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "admission.test"})

	svcs := services.NewServices(services.Dependencies{
		Repos:    repos,
		Notifier: nopNotifier{},
		Gateway:  payment.NewSimulatedGateway(),
		Storage:  storage,
		JWT:      jwt,
		Settings: services.AdmissionSettings{
			SiteURL:   "http://localhost:8080",
			PortalURL: "http://localhost:8080",
			Fees: config.FeesConfig{
				AdmissionFee: 15000, SemesterFee: 75000, StudentCardFee: 5000, TransportFee: 10000,
				DurationSemesters: 8, TotalCredits: 120,
			},
			MaxUploadBytes: 1 << 20,
		},
		EmailDomain: "superior.edu.pk",
		Logger:      zerolog.Nop(),
	})

	router := gin.New()
	router.Use(middleware.RequestID())
	routes.SetupRouter(router,
		controllers.NewAdmissionController(svcs.Admission, svcs.Reference),
		controllers.NewStaffController(svcs.Staff),
		middleware.NewAuthMiddleware(jwt, repos.Staff),
	)
	return &testServer{t: t, router: router, repos: repos, jwt: jwt}
}

func (s *testServer) do(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *testServer) json(method, path string, body interface{}, header ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(s.t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return s.do(req)
}

func (s *testServer) form(path string, values url.Values) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *testServer) multipart(path string, values url.Values, files map[string][]byte) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(s.t, w.WriteField(k, v))
		}
	}
	for name, content := range files {
		part, err := w.CreateFormFile(name, name+".pdf")
		require.NoError(s.t, err)
		_, err = part.Write(content)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(req)
}

func (s *testServer) get(path string, header ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return s.do(req)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func personalInfoForm(cnic string) url.Values {
	return url.Values{
		"full_name":     {"Ayesha Khan"},
		"father_name":   {"Imran Khan"},
		"date_of_birth": {"2006-04-12"},
		"gender":        {"F"},
		"cnic":          {cnic},
		"phone":         {"+923001234567"},
		"address":       {"12 Main Boulevard, Lahore"},
	}
}

func educationForm() url.Values {
	return url.Values{
		"fsc_board":         {"BISE Lahore"},
		"fsc_year":          {"2025"},
		"fsc_marks":         {"880"},
		"fsc_percentage":    {"80"},
		"matric_board":      {"BISE Lahore"},
		"matric_year":       {"2023"},
		"matric_marks":      {"945"},
		"matric_percentage": {"90"},
	}
}

// startApplication opens an application and returns its id
func (s *testServer) startApplication(addr string) string {
	s.t.Helper()
	w, env := s.json(http.MethodPost, "/admission/start/", map[string]string{"email": addr})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.StageResult](s.t, env).ApplicationID
}
