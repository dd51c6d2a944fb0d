package services

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/pkg/apperrors"
	"github.com/campusgpt/admission/internal/pkg/payment"
)

func customMessage(t *testing.T, err error) string {
	t.Helper()
	ce, ok := apperrors.AsCustom(err)
	require.True(t, ok, "expected a CustomError, got %v", err)
	return ce.Message
}

func TestAdmission_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, &dto.StartApplicationRequest{Email: "  Ayesha.Khan@Example.com "})
	require.NoError(t, err)
	assert.Regexp(t, `^APP-[0-9A-F]{8}$`, start.ApplicationID)
	assert.Equal(t, models.StagePersonalInfo, start.CurrentStage)
	assert.Equal(t, models.AdmissionPending, start.AdmissionStatus)
	assert.Equal(t, models.PaymentPending, start.PaymentStatus)
	id := start.ApplicationID

	f.personalInfo(t, id, "35202-1234567-1")
	f.education(t, id, 70, 60)

	sel := f.selectProgram(t, id, "BSCS")
	require.NotNil(t, sel.MeetsCriteria)
	assert.True(t, *sel.MeetsCriteria)
	assert.Equal(t, 65.0, *sel.EligibilityScore)
	assert.Equal(t, models.StageProgramConfirmation, sel.CurrentStage)
	assert.Equal(t, models.AdmissionEligible, sel.AdmissionStatus)

	require.Len(t, f.notifier.eligible, 1)
	notice := f.notifier.eligible[0]
	assert.Equal(t, "ayesha.khan@example.com", notice.Email)
	assert.Equal(t, "Ayesha Khan", notice.ApplicantName)
	assert.Equal(t, "BS Computer Science", notice.Program)
	assert.Equal(t, fmt.Sprintf("http://localhost:8080/admission/stage4/%s/", id), notice.ContinueURL)

	f.confirm(t, id)

	view, err := f.svc.ViewStage(ctx, id, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 57500, view.Fees.TotalWithoutTransport)
	assert.EqualValues(t, 67500, view.Fees.TotalWithTransport)
	assert.Equal(t, models.PaymentMethods, view.PaymentMethods)

	paid, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, paid.CurrentStage)
	assert.Equal(t, models.AdmissionApproved, paid.AdmissionStatus)
	assert.Equal(t, models.PaymentCompleted, paid.PaymentStatus)
	assert.Equal(t, "26-bscs-f26-001", paid.RollNumber)
	assert.Equal(t, "student.26-bscs-f26-001@superior.edu.pk", paid.InstitutionalEmail)
	assert.Regexp(t, `^PSID-[0-9A-F]{12}$`, paid.PSID)
	assert.Equal(t, fmt.Sprintf("/admission/confirmation/%s/", id), paid.NextURL)

	conf, err := f.svc.Confirmation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "http://portal.example.com/login/", conf.LoginURL)
	require.NotNil(t, conf.Payment)
	assert.EqualValues(t, 57500, conf.Payment.TotalAmount)
	assert.EqualValues(t, 37500, conf.Payment.FirstSemesterFee)
	assert.Zero(t, conf.Payment.TransportFee)
	require.NotNil(t, conf.Application.ApprovedAt)
	assert.True(t, conf.Application.ApprovedAt.Equal(fixedNow))
	assert.NotNil(t, conf.Application.SubmittedAt)

	require.Len(t, f.notifier.admitted, 1)
	admitted := f.notifier.admitted[0]
	assert.Equal(t, "26-bscs-f26-001", admitted.RollNumber)
	assert.Equal(t, "fall", admitted.Intake)
	assert.Equal(t, "http://portal.example.com/login/", admitted.LoginURL)

	_, err = f.svc.SubmitProgramConfirmation(ctx, id, &dto.ProgramConfirmationRequest{AgreeTerms: true})
	assert.ErrorIs(t, err, apperrors.ErrApplicationClosed)
}

func TestAdmission_PaymentWithTransport(t *testing.T) {
	f := newFixture(t)
	id := f.readyForPayment(t, 1)

	_, err := f.svc.SubmitPayment(context.Background(), id, &dto.PaymentRequest{PaymentMethod: "bank_transfer", TransportOption: true})
	require.NoError(t, err)

	app, err := f.repos.Admission.GetByApplicationID(context.Background(), id)
	require.NoError(t, err)
	pay, err := f.repos.Admission.GetPayment(context.Background(), app.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 67500, pay.TotalAmount)
	assert.EqualValues(t, 10000, pay.TransportFee)
	assert.Equal(t, models.PaymentBankTransfer, pay.PaymentMethod)
}

func TestAdmission_IneligibleLoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "loop@example.com")
	f.personalInfo(t, id, "35202-7654321-1")
	f.education(t, id, 70, 60)

	// BSDS needs 75% FSc.
	res := f.selectProgram(t, id, "BSDS")
	assert.False(t, *res.MeetsCriteria)
	assert.Equal(t, models.AdmissionIneligible, res.AdmissionStatus)
	assert.Equal(t, models.StageProgramSelection, res.CurrentStage)
	assert.Empty(t, f.notifier.eligible)

	_, err := f.svc.SubmitProgramConfirmation(ctx, id, &dto.ProgramConfirmationRequest{AgreeTerms: true})
	assert.ErrorIs(t, err, apperrors.ErrStageLocked)

	res = f.selectProgram(t, id, "BSCS")
	assert.True(t, *res.MeetsCriteria)
	assert.Equal(t, models.StageProgramConfirmation, res.CurrentStage)

	f.confirm(t, id)

	// Going back to an ineligible choice from stage 5 pins the application to stage 3.
	res = f.selectProgram(t, id, "BSDS")
	assert.Equal(t, models.StageProgramSelection, res.CurrentStage)
	assert.Equal(t, models.AdmissionIneligible, res.AdmissionStatus)
}

func TestAdmission_ProgramWithoutCriteriaIsIneligible(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "nocriteria@example.com")
	f.personalInfo(t, id, "35202-1111111-1")
	f.education(t, id, 99, 99)

	res := f.selectProgram(t, id, "BSAI")
	assert.False(t, *res.MeetsCriteria)
	assert.Zero(t, *res.EligibilityScore)
}

func TestAdmission_StageGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "gate@example.com")

	_, err := f.svc.SubmitEducation(ctx, id, educationRequest(70, 60), EducationDocuments{})
	require.ErrorIs(t, err, apperrors.ErrStageLocked)

	ce, ok := apperrors.AsCustom(err)
	require.True(t, ok)
	assert.Equal(t, models.StagePersonalInfo, ce.Details["currentStage"])
	assert.Equal(t, fmt.Sprintf("/admission/stage1/%s/", id), ce.Details["url"])

	_, err = f.svc.ViewStage(ctx, id, 3)
	assert.ErrorIs(t, err, apperrors.ErrStageLocked)

	_, err = f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	assert.ErrorIs(t, err, apperrors.ErrStageLocked)

	_, err = f.svc.Confirmation(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrStageLocked)

	_, err = f.svc.ViewStage(ctx, "APP-DEADBEEF", 1)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
}

func TestAdmission_MonotonicAdvance(t *testing.T) {
	f := newFixture(t)
	id := f.readyForPayment(t, 7)

	// Editing stage 1 from stage 5 keeps the application at stage 5.
	f.personalInfo(t, id, "35202-0000007-1")
	app, err := f.repos.Admission.GetByApplicationID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StagePayment, app.CurrentStage)
}

func TestAdmission_UpsertIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "upsert@example.com")

	f.personalInfo(t, id, "35202-2222222-1")
	f.personalInfo(t, id, "35202-2222222-1")

	view, err := f.svc.ViewStage(ctx, id, 1)
	require.NoError(t, err)
	require.NotNil(t, view.PersonalInfo)
	assert.Equal(t, "Ayesha Khan", view.PersonalInfo.FullName)
	assert.Equal(t, models.StageEducation, view.Application.CurrentStage)
}

func TestAdmission_DuplicateStart(t *testing.T) {
	f := newFixture(t)
	f.start(t, "dup@example.com")

	_, err := f.svc.Start(context.Background(), &dto.StartApplicationRequest{Email: "DUP@example.com"})
	require.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
	ce, ok := apperrors.AsCustom(err)
	require.True(t, ok)
	assert.Equal(t, "/admission/login/", ce.Details["redirect"])
}

func TestAdmission_StartRemembersPreferredProgram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	form, err := f.svc.StartForm(ctx, "BSDS")
	require.NoError(t, err)
	assert.Equal(t, "BSDS", form.Program)
	assert.Len(t, form.Programs, 3)

	res, err := f.svc.Start(ctx, &dto.StartApplicationRequest{Email: "pref@example.com", Program: "bsds"})
	require.NoError(t, err)
	app, err := f.repos.Admission.GetByApplicationID(ctx, res.ApplicationID)
	require.NoError(t, err)
	require.NotNil(t, app.PreferredProgram)
	assert.Equal(t, "BSDS", *app.PreferredProgram)
}

func TestAdmission_StartValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Start(context.Background(), &dto.StartApplicationRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestAdmission_Resume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "resume@example.com")
	f.personalInfo(t, id, "35202-3333333-1")

	res, err := f.svc.Resume(ctx, &dto.ResumeRequest{Email: " Resume@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, id, res.ApplicationID)
	assert.Equal(t, fmt.Sprintf("/admission/stage2/%s/", id), res.RedirectURL)

	_, err = f.svc.Resume(ctx, &dto.ResumeRequest{Email: "nobody@example.com"})
	require.ErrorIs(t, err, apperrors.ErrResourceNotFound)
	assert.Equal(t, MsgNoApplication, customMessage(t, err))
}

func TestAdmission_EducationValidationMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "edu@example.com")
	f.personalInfo(t, id, "35202-4444444-1")

	req := educationRequest(70, 60)
	req.FscPercentage = nil
	_, err := f.svc.SubmitEducation(ctx, id, req, EducationDocuments{})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Equal(t, MsgRequiredFields, customMessage(t, err))

	req = educationRequest(70, 60)
	req.FscMarks = ptr(1200.0)
	_, err = f.svc.SubmitEducation(ctx, id, req, EducationDocuments{})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	ce, _ := apperrors.AsCustom(err)
	assert.Contains(t, ce.Details, "fsc_marks")
}

func TestAdmission_EducationDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "docs@example.com")
	f.personalInfo(t, id, "35202-5555555-1")

	_, err := f.svc.SubmitEducation(ctx, id, educationRequest(70, 60), EducationDocuments{
		CNICScan: fileHeader(t, "cnic_scan", "cnic.exe", []byte("MZ")),
	})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.svc.SubmitEducation(ctx, id, educationRequest(70, 60), EducationDocuments{
		FscCertificate: fileHeader(t, "fsc_certificate", "fsc.pdf", []byte("%PDF-1.4")),
	})
	require.NoError(t, err)

	view, err := f.svc.ViewStage(ctx, id, 2)
	require.NoError(t, err)
	require.NotNil(t, view.Education.FscCertificate)
	assert.Regexp(t, fmt.Sprintf(`^/uploads/%s/.+\.pdf$`, id), *view.Education.FscCertificate)
	stored := *view.Education.FscCertificate

	// A resubmission without files keeps the stored document.
	f.education(t, id, 72, 60)
	view, err = f.svc.ViewStage(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, stored, *view.Education.FscCertificate)
	assert.Equal(t, 72.0, view.Education.FscPercentage)
}

func TestAdmission_ConfirmationRequiresTerms(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "terms@example.com")
	f.personalInfo(t, id, "35202-6666666-1")
	f.education(t, id, 70, 60)
	f.selectProgram(t, id, "BSCS")

	_, err := f.svc.SubmitProgramConfirmation(context.Background(), id, &dto.ProgramConfirmationRequest{AgreeTerms: false})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Equal(t, MsgAgreeTerms, customMessage(t, err))
}

func TestAdmission_ConfirmationSnapshotsRoadmap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyForPayment(t, 3)

	view, err := f.svc.ViewStage(ctx, id, 4)
	require.NoError(t, err)
	require.NotNil(t, view.Confirmation)
	assert.Equal(t, 8, view.Confirmation.DurationSemesters)
	assert.Equal(t, 120, view.Confirmation.TotalCredits)
	require.Len(t, view.Confirmation.Roadmap, 2)
	assert.Equal(t, 7, view.Confirmation.Roadmap[0].Credits)
	assert.Equal(t, "CS101", view.Confirmation.Roadmap[0].Courses[0].Code)
	require.NotNil(t, view.Criteria)
	assert.Equal(t, 65.0, view.Criteria.MinFscPercentage)
}

func TestAdmission_PaymentRequiresMatchingConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Lower the BSDS bar so the applicant can switch programs after confirming.
	require.NoError(t, f.repos.Reference.UpsertCriteria(ctx, &models.AdmissionCriteria{Program: "BSDS", MinFscPercentage: 50, MinMatricPercentage: 50}))
	id := f.readyForPayment(t, 4)
	f.selectProgram(t, id, "BSDS")

	// Back at stage 4 after an eligible re-selection: current stays at stage 5.
	_, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Equal(t, MsgReconfirm, customMessage(t, err))

	f.confirm(t, id)
	res, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, "26-bsds-f26-001", res.RollNumber)
}

func TestAdmission_PaymentDeclined(t *testing.T) {
	gw := newStubGateway(payment.StatusFailed)
	f := newFixture(t, withGateway(gw))
	ctx := context.Background()
	id := f.readyForPayment(t, 5)

	_, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "cheque"})
	require.ErrorIs(t, err, apperrors.ErrPaymentDeclined)

	app, err := f.repos.Admission.GetByApplicationID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StagePayment, app.CurrentStage)
	assert.Equal(t, models.PaymentFailed, app.PaymentStatus)
	assert.False(t, app.HasCredentials())
	assert.Empty(t, f.notifier.admitted)
}

func TestAdmission_ProcessingPaymentFinalizedByNotification(t *testing.T) {
	gw := newStubGateway(payment.StatusProcessing)
	f := newFixture(t, withGateway(gw))
	ctx := context.Background()
	id := f.readyForPayment(t, 6)

	res, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, models.StagePayment, res.CurrentStage)
	assert.Equal(t, models.PaymentProcessing, res.PaymentStatus)
	assert.Equal(t, "https://pay.example.com/"+res.PSID, res.CheckoutURL)
	psid := res.PSID

	// A repeated submit while processing does not charge again.
	again, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, psid, again.PSID)
	assert.Equal(t, 1, gw.charges)

	// The request body is not trusted; the gateway still says processing.
	res, err = f.svc.HandlePaymentNotification(ctx, &dto.PaymentNotificationRequest{OrderID: psid, TransactionStatus: "settlement"})
	require.NoError(t, err)
	assert.Equal(t, models.StagePayment, res.CurrentStage)

	gw.set(psid, payment.StatusCompleted)
	res, err = f.svc.HandlePaymentNotification(ctx, &dto.PaymentNotificationRequest{OrderID: psid})
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, res.CurrentStage)
	assert.Equal(t, "26-bscs-f26-001", res.RollNumber)

	res, err = f.svc.HandlePaymentNotification(ctx, &dto.PaymentNotificationRequest{OrderID: psid})
	require.NoError(t, err)
	assert.Equal(t, "26-bscs-f26-001", res.RollNumber)
	assert.Len(t, f.notifier.admitted, 1)

	_, err = f.svc.HandlePaymentNotification(ctx, &dto.PaymentNotificationRequest{OrderID: "PSID-000000000000"})
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
}

func TestAdmission_NotificationFailureDoesNotChangeState(t *testing.T) {
	sender := &failingSender{}
	notifier := NewNotificationService(sender, 50*time.Millisecond, "Superior University", zerolog.Nop())
	f := newFixture(t, withNotifier(notifier))
	ctx := context.Background()

	id := f.readyForPayment(t, 8)
	res, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, res.CurrentStage)
	assert.Equal(t, int32(2), sender.calls.Load())

	app, err := f.repos.Admission.GetByApplicationID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionApproved, app.AdmissionStatus)
}

func TestAdmission_ConcurrentApprovalsGetSequentialRollNumbers(t *testing.T) {
	f := newFixture(t)
	const n = 25

	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.readyForPayment(t, i+100)
	}

	rolls := make([]string, n)
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			res, err := f.svc.SubmitPayment(context.Background(), id, &dto.PaymentRequest{PaymentMethod: "online"})
			if err != nil {
				return err
			}
			rolls[i] = res.RollNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(rolls)
	for i, roll := range rolls {
		assert.Equal(t, fmt.Sprintf("26-bscs-f26-%03d", i+1), roll)
	}
}

func TestAdmission_PersonalInfoDuplicateCNIC(t *testing.T) {
	f := newFixture(t)
	a := f.start(t, "a@example.com")
	b := f.start(t, "b@example.com")
	f.personalInfo(t, a, "35202-9999999-1")

	_, err := f.svc.SubmitPersonalInfo(context.Background(), b, &dto.PersonalInfoRequest{
		FullName: "Bilal Ahmed", FatherName: "Ahmed Ali", DateOfBirth: "2005-01-01", Gender: "M",
		CNIC: "35202-9999999-1", Phone: "03001234567", Address: "Lahore",
	})
	assert.ErrorIs(t, err, apperrors.ErrCNICAlreadyUsed)

	app, err := f.repos.Admission.GetByApplicationID(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, models.StagePersonalInfo, app.CurrentStage)
}

func TestAdmission_ConcurrentSubmitDoesNotChargeTwice(t *testing.T) {
	gw := &hookGateway{stubGateway: newStubGateway(payment.StatusCompleted)}
	f := newFixture(t, withGateway(gw))
	ctx := context.Background()
	id := f.readyForPayment(t, 9)

	var inner *dto.StageResult
	gw.onCharge = func() {
		var err error
		inner, err = f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
		require.NoError(t, err)
	}

	res, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, res.CurrentStage)

	// The second submit saw the reservation and waited on it.
	require.NotNil(t, inner)
	assert.Equal(t, models.StagePayment, inner.CurrentStage)
	assert.Equal(t, models.PaymentPending, inner.PaymentStatus)
	assert.Equal(t, res.PSID, inner.PSID)
	assert.Equal(t, 1, gw.charges)
	assert.Len(t, f.notifier.admitted, 1)
}

func TestAdmission_SelectionChangedDuringChargeHoldsAdmission(t *testing.T) {
	gw := &hookGateway{stubGateway: newStubGateway(payment.StatusCompleted)}
	f := newFixture(t, withGateway(gw))
	ctx := context.Background()
	id := f.readyForPayment(t, 10)

	// BSDS needs 75% FSc, so the applicant drops back to stage 3 mid-charge.
	gw.onCharge = func() { f.selectProgram(t, id, "BSDS") }

	_, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Equal(t, MsgNotEligible, customMessage(t, err))

	app, err := f.repos.Admission.GetByApplicationID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StageProgramSelection, app.CurrentStage)
	assert.Equal(t, models.AdmissionIneligible, app.AdmissionStatus)
	assert.Equal(t, models.PaymentCompleted, app.PaymentStatus)
	assert.False(t, app.HasCredentials())
	assert.Empty(t, f.notifier.admitted)

	// The money already taken is applied once the applicant is eligible again.
	f.selectProgram(t, id, "BSCS")
	f.confirm(t, id)
	res, err := f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, res.CurrentStage)
	assert.Equal(t, "26-bscs-f26-001", res.RollNumber)
	assert.Equal(t, 1, gw.charges)
}

func TestAdmission_EducationEditRescoresSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.readyForPayment(t, 11)

	// 60% FSc is below the BSCS minimum of 65%.
	res, err := f.svc.SubmitEducation(ctx, id, educationRequest(60, 60), EducationDocuments{})
	require.NoError(t, err)
	assert.Equal(t, models.StageProgramSelection, res.CurrentStage)
	assert.Equal(t, models.AdmissionIneligible, res.AdmissionStatus)

	app, err := f.repos.Admission.GetByApplicationID(ctx, id)
	require.NoError(t, err)
	sel, err := f.repos.Admission.GetSelection(ctx, app.ID)
	require.NoError(t, err)
	assert.False(t, sel.MeetsCriteria)
	assert.InDelta(t, 60.0, sel.EligibilityScore, 0.001)

	_, err = f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	assert.ErrorIs(t, err, apperrors.ErrStageLocked)
	_, err = f.svc.SubmitProgramConfirmation(ctx, id, &dto.ProgramConfirmationRequest{AgreeTerms: true})
	assert.ErrorIs(t, err, apperrors.ErrStageLocked)

	// Restoring the marks reopens stage 4 for the same selection.
	res, err = f.svc.SubmitEducation(ctx, id, educationRequest(70, 60), EducationDocuments{})
	require.NoError(t, err)
	assert.Equal(t, models.StageProgramConfirmation, res.CurrentStage)
	assert.Equal(t, models.AdmissionEligible, res.AdmissionStatus)

	f.confirm(t, id)
	res, err = f.svc.SubmitPayment(ctx, id, &dto.PaymentRequest{PaymentMethod: "online"})
	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, res.CurrentStage)
}
