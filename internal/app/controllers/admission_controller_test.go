package controllers_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgpt/admission/internal/app/models"
	"github.com/campusgpt/admission/internal/app/models/dto"
	"github.com/campusgpt/admission/internal/app/services"
)

func TestAdmissionController_FullPipeline(t *testing.T) {
	s := newTestServer(t)
	id := s.startApplication("ayesha@example.com")
	stage := func(n int) string { return fmt.Sprintf("/admission/stage%d/%s/", n, id) }

	w, env := s.form(stage(1), personalInfoForm("35202-1234567-1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StageEducation, decode[dto.StageResult](t, env).CurrentStage)

	w, env = s.multipart(stage(2), educationForm(), map[string][]byte{"fsc_certificate": []byte("%PDF-1.4")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StageProgramSelection, decode[dto.StageResult](t, env).CurrentStage)

	w, env = s.get(stage(2))
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[dto.StageView](t, env)
	require.NotNil(t, view.Education)
	require.NotNil(t, view.Education.FscCertificate)
	assert.Contains(t, *view.Education.FscCertificate, "/uploads/"+id+"/")

	// BSDS needs 90% FSc: the applicant is told and stays on stage 3.
	w, env = s.form(stage(3), url.Values{"program": {"BSDS"}, "intake": {"fall"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, services.MsgIneligible, env.Message)
	res := decode[dto.StageResult](t, env)
	assert.Equal(t, models.StageProgramSelection, res.CurrentStage)
	assert.False(t, *res.MeetsCriteria)

	w, env = s.form(stage(3), url.Values{"program": {"bscs"}, "intake": {"fall"}})
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[dto.StageResult](t, env)
	assert.Equal(t, models.StageProgramConfirmation, res.CurrentStage)
	assert.Equal(t, 85.0, *res.EligibilityScore)

	w, _ = s.form(stage(4), url.Values{"agree_terms": {"true"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = s.get(stage(5))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 57500, decode[dto.StageView](t, env).Fees.TotalWithoutTransport)

	w, env = s.form(stage(5), url.Values{"payment_method": {"online"}, "transport_option": {"true"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = decode[dto.StageResult](t, env)
	assert.Equal(t, models.StageCompleted, res.CurrentStage)
	assert.Regexp(t, `^\d{2}-bscs-f\d{2}-001$`, res.RollNumber)

	w, env = s.get("/admission/confirmation/" + id + "/")
	require.Equal(t, http.StatusOK, w.Code)
	conf := decode[dto.ConfirmationView](t, env)
	assert.EqualValues(t, 67500, conf.Payment.TotalAmount)

	w, env = s.json(http.MethodPost, "/admission/login/", map[string]string{"email": "AYESHA@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/admission/confirmation/"+id+"/", decode[dto.ResumeResult](t, env).RedirectURL)

	// Completed applications reject further edits.
	w, env = s.form(stage(1), personalInfoForm("35202-1234567-1"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrorCodeApplicationClosed, env.Error.Code)
}

func TestAdmissionController_InvalidNumber(t *testing.T) {
	s := newTestServer(t)
	id := s.startApplication("numbers@example.com")
	w, _ := s.form("/admission/stage1/"+id+"/", personalInfoForm("35202-1111111-1"))
	require.Equal(t, http.StatusOK, w.Code)

	form := educationForm()
	form.Set("fsc_marks", "eight hundred")
	w, env := s.form("/admission/stage2/"+id+"/", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, services.MsgInvalidNumber, env.Error.Message)

	form = educationForm()
	form.Del("matric_percentage")
	w, env = s.form("/admission/stage2/"+id+"/", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrorCodeValidationFailed, env.Error.Code)
	assert.Equal(t, services.MsgRequiredFields, env.Error.Message)
}

func TestAdmissionController_StageLocked(t *testing.T) {
	s := newTestServer(t)
	id := s.startApplication("locked@example.com")

	w, env := s.get("/admission/stage3/" + id + "/")
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrorCodeStageLocked, env.Error.Code)
	details, ok := env.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/admission/stage1/"+id+"/", details["url"])
	assert.Equal(t, "stage_1", details["currentStage"])

	w, env = s.get("/admission/confirmation/" + id + "/")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrorCodeStageLocked, env.Error.Code)
}

func TestAdmissionController_DuplicateStart(t *testing.T) {
	s := newTestServer(t)
	s.startApplication("twice@example.com")

	w, env := s.form("/admission/start/", url.Values{"email": {"twice@example.com"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrorCodeDuplicateApplication, env.Error.Code)
	details := env.Error.Details.(map[string]interface{})
	assert.Equal(t, services.ResumeURL, details["redirect"])
}

func TestAdmissionController_NotFound(t *testing.T) {
	s := newTestServer(t)

	w, env := s.json(http.MethodPost, "/admission/login/", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.MsgNoApplication, env.Error.Message)

	w, env = s.get("/admission/stage1/APP-00000000/")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, env.Error.Code)

	w, _ = s.json(http.MethodPost, "/admission/payment/notify/", map[string]string{"order_id": "PSID-000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmissionController_CatalogAndStartForm(t *testing.T) {
	s := newTestServer(t)

	w, env := s.get("/admission/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Program](t, env), 2)

	w, env = s.get("/admission/start/?program=BSDS")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BSDS", decode[dto.StartForm](t, env).Program)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
