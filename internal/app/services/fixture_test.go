package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/app/repositories"
	"github.com/campusgpt/admission/internal/app/repositories/memory"
	"github.com/campusgpt/admission/internal/config"
	"github.com/campusgpt/admission/internal/pkg/email"
	"github.com/campusgpt/admission/internal/pkg/filestorage"
	"github.com/campusgpt/admission/internal/pkg/payment"
)

var fixedNow = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type recordingNotifier struct {
	mu       sync.Mutex
	eligible []email.EligibilityNotice
	admitted []email.AdmissionNotice
}

func (n *recordingNotifier) NotifyEligible(_ context.Context, notice email.EligibilityNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.eligible = append(n.eligible, notice)
}

func (n *recordingNotifier) NotifyAdmitted(_ context.Context, notice email.AdmissionNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admitted = append(n.admitted, notice)
}

type failingSender struct{ calls atomic.Int32 }

func (s *failingSender) Send(context.Context, email.Message) error {
	s.calls.Add(1)
	return errors.New("smtp: connection refused")
}

// stubGateway answers every charge with a fixed status and lets tests change
// the status reported later.
type stubGateway struct {
	mu      sync.Mutex
	answer  payment.Status
	orders  map[string]payment.Status
	charges int
}

func newStubGateway(answer payment.Status) *stubGateway {
	return &stubGateway{answer: answer, orders: make(map[string]payment.Status)}
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Charge(_ context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges++
	g.orders[req.OrderID] = g.answer
	return g.result(req.OrderID, g.answer), nil
}

func (g *stubGateway) Status(_ context.Context, orderID string) (*payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.orders[orderID]
	if !ok {
		return nil, payment.ErrOrderNotFound
	}
	return g.result(orderID, st), nil
}

func (g *stubGateway) set(orderID string, st payment.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders[orderID] = st
}

func (g *stubGateway) result(orderID string, st payment.Status) *payment.ChargeResult {
	res := &payment.ChargeResult{Status: st, TransactionID: "TX-" + orderID}
	switch st {
	case payment.StatusProcessing:
		res.RedirectURL = "https://pay.example.com/" + orderID
	case payment.StatusFailed:
		res.Reason = "card declined"
	}
	return res
}

// hookGateway runs onCharge once, before the first charge reaches the stub.
type hookGateway struct {
	*stubGateway
	onCharge func()
}

func (g *hookGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	if hook := g.onCharge; hook != nil {
		g.onCharge = nil
		hook()
	}
	return g.stubGateway.Charge(ctx, req)
}

type fixture struct {
	svc      AdmissionService
	staff    StaffService
	repos    *repositories.Repositories
	notifier *recordingNotifier
}

type fixtureOption func(*Dependencies)

func withGateway(g payment.Gateway) fixtureOption {
	return func(d *Dependencies) { d.Gateway = g }
}

func withNotifier(n Notifier) fixtureOption {
	return func(d *Dependencies) { d.Notifier = n }
}

func testFees() config.FeesConfig {
	return config.FeesConfig{
		AdmissionFee:      15000,
		SemesterFee:       75000,
		StudentCardFee:    5000,
		TransportFee:      10000,
		DurationSemesters: 8,
		TotalCredits:      120,
	}
}

func seedReference(t *testing.T, repo repositories.IReferenceRepository) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []models.Program{
		{Code: "BSCS", Name: "BS Computer Science", DurationSemesters: 8},
		{Code: "BSDS", Name: "BS Data Science", DurationSemesters: 8},
		{Code: "BSAI", Name: "BS Artificial Intelligence", DurationSemesters: 8},
	} {
		require.NoError(t, repo.UpsertProgram(ctx, &p))
	}
	for _, c := range []models.AdmissionCriteria{
		{Program: "BSCS", MinFscMarks: 600, MinFscPercentage: 65, MinMatricPercentage: 50, MinAggregate: 70},
		{Program: "BSDS", MinFscMarks: 650, MinFscPercentage: 75, MinMatricPercentage: 60, MinAggregate: 75},
	} {
		require.NoError(t, repo.UpsertCriteria(ctx, &c))
	}
	for _, e := range []models.CurriculumEntry{
		{Program: "BSCS", Semester: 1, CourseCode: "CS101", CourseTitle: "Programming Fundamentals", Credits: 4},
		{Program: "BSCS", Semester: 1, CourseCode: "MT101", CourseTitle: "Calculus", Credits: 3},
		{Program: "BSCS", Semester: 2, CourseCode: "CS102", CourseTitle: "Object Oriented Programming", Credits: 4},
	} {
		require.NoError(t, repo.UpsertCurriculumEntry(ctx, &e))
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	repos := memory.NewRepositories()
	seedReference(t, repos.Reference)

	storage, err := filestorage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	deps := Dependencies{
		Repos:    repos,
		Notifier: notifier,
		Gateway:  payment.NewSimulatedGateway(),
		Storage:  storage,
		Settings: AdmissionSettings{
			SiteURL:        "http://localhost:8080/",
			PortalURL:      "http://portal.example.com",
			Fees:           testFees(),
			MaxUploadBytes: 1 << 20,
		},
		EmailDomain: "superior.edu.pk",
		Clock:       fixedClock,
		Logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	svcs := NewServices(deps)
	return &fixture{svc: svcs.Admission, staff: svcs.Staff, repos: repos, notifier: notifier}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) start(t *testing.T, addr string) string {
	t.Helper()
	res, err := f.svc.Start(context.Background(), &dto.StartApplicationRequest{Email: addr})
	require.NoError(t, err)
	return res.ApplicationID
}

func (f *fixture) personalInfo(t *testing.T, id, cnic string) {
	t.Helper()
	_, err := f.svc.SubmitPersonalInfo(context.Background(), id, &dto.PersonalInfoRequest{
		FullName:    "Ayesha Khan",
		FatherName:  "Imran Khan",
		DateOfBirth: "2006-04-12",
		Gender:      "F",
		CNIC:        cnic,
		Phone:       "+923001234567",
		Address:     "12 Main Boulevard, Lahore",
	})
	require.NoError(t, err)
}

func educationRequest(fsc, matric float64) *dto.EducationRequest {
	return &dto.EducationRequest{
		FscBoard:         "BISE Lahore",
		FscYear:          ptr(2025),
		FscMarks:         ptr(fsc * 11),
		FscPercentage:    ptr(fsc),
		MatricBoard:      "BISE Lahore",
		MatricYear:       ptr(2023),
		MatricMarks:      ptr(matric * 10.5),
		MatricPercentage: ptr(matric),
	}
}

func (f *fixture) education(t *testing.T, id string, fsc, matric float64) {
	t.Helper()
	_, err := f.svc.SubmitEducation(context.Background(), id, educationRequest(fsc, matric), EducationDocuments{})
	require.NoError(t, err)
}

func (f *fixture) selectProgram(t *testing.T, id, program string) *dto.StageResult {
	t.Helper()
	res, err := f.svc.SubmitProgramSelection(context.Background(), id, &dto.ProgramSelectionRequest{Program: program, Intake: "fall"})
	require.NoError(t, err)
	return res
}

func (f *fixture) confirm(t *testing.T, id string) {
	t.Helper()
	_, err := f.svc.SubmitProgramConfirmation(context.Background(), id, &dto.ProgramConfirmationRequest{AgreeTerms: true})
	require.NoError(t, err)
}

// readyForPayment walks a new eligible BSCS applicant to stage 5.
func (f *fixture) readyForPayment(t *testing.T, n int) string {
	t.Helper()
	id := f.start(t, fmt.Sprintf("applicant%03d@example.com", n))
	f.personalInfo(t, id, fmt.Sprintf("35202-%07d-1", n))
	f.education(t, id, 70, 60)
	f.selectProgram(t, id, "BSCS")
	f.confirm(t, id)
	return id
}

func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}
