package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	appreports "github.com/bryanwahyu/healthmate/internal/application/reports"
	appvitals "github.com/bryanwahyu/healthmate/internal/application/vitals"
	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	"github.com/bryanwahyu/healthmate/internal/domain/reports"
	"github.com/bryanwahyu/healthmate/internal/domain/vitals"
	"github.com/bryanwahyu/healthmate/internal/infra/httpserver"
	"github.com/bryanwahyu/healthmate/internal/middleware"
)

const reportID = "3f2b8c1e-5d4a-4b7e-9c2d-1a2b3c4d5e6f"

type fakeReports struct {
	uploaded  *appreports.UploadCommand
	uploadErr error
	filter    reports.Filter
	outcome   *analysis.Outcome
	updated   *appreports.UpdateCommand
	deleted   reports.ID
}

func (f *fakeReports) Upload(_ context.Context, cmd appreports.UploadCommand) (*reports.Report, error) {
	f.uploaded = &cmd
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &reports.Report{ID: reportID, OwnerID: cmd.OwnerID, Title: cmd.Title}, nil
}

func (f *fakeReports) List(_ context.Context, _ string, flt reports.Filter) (*reports.PaginatedResult, error) {
	f.filter = flt
	return &reports.PaginatedResult{Data: []*reports.Report{}, Page: flt.Page, PageSize: flt.PageSize}, nil
}

func (f *fakeReports) Get(_ context.Context, owner string, id reports.ID) (*reports.Report, error) {
	if owner != "u1" {
		return nil, reports.ErrNotFound
	}
	return &reports.Report{ID: id, OwnerID: owner}, nil
}

func (f *fakeReports) Reanalyze(_ context.Context, _ string, id reports.ID, wait bool) (*appreports.ReanalyzeResult, error) {
	res := &appreports.ReanalyzeResult{Report: &reports.Report{ID: id}}
	if wait {
		res.Outcome = f.outcome
	}
	return res, nil
}

func (f *fakeReports) Stats(context.Context, string) (*reports.Stats, error) {
	return nil, errors.New("db exploded")
}

func (f *fakeReports) Update(_ context.Context, owner string, id reports.ID, cmd appreports.UpdateCommand) (*reports.Report, error) {
	f.updated = &cmd
	if cmd.Type != nil && *cmd.Type == "horoscope" {
		return nil, reports.ErrInvalid
	}
	return &reports.Report{ID: id, OwnerID: owner}, nil
}

func (f *fakeReports) Delete(_ context.Context, owner string, id reports.ID) error {
	if owner != "u1" {
		return reports.ErrNotFound
	}
	f.deleted = id
	return nil
}

type fakeVitals struct {
	added   *vitals.Reading
	addErr  error
	asked   vitals.ID
	outcome analysis.Outcome
	patch   *appvitals.Patch
	deleted vitals.ID
}

func (f *fakeVitals) Add(_ context.Context, owner string, r vitals.Reading) (*vitals.Entry, error) {
	f.added = &r
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &vitals.Entry{ID: "v1", OwnerID: owner, Reading: r}, nil
}

func (f *fakeVitals) List(_ context.Context, _ string, flt vitals.Filter) (*vitals.PaginatedResult, error) {
	return &vitals.PaginatedResult{Data: []*vitals.Entry{}, Page: flt.Page, PageSize: flt.PageSize}, nil
}

func (f *fakeVitals) Get(context.Context, string, vitals.ID) (*vitals.Entry, error) {
	return nil, vitals.ErrNotFound
}

func (f *fakeVitals) Insights(_ context.Context, _ string, id vitals.ID) (*appvitals.Insights, error) {
	f.asked = id
	return &appvitals.Insights{Entry: &vitals.Entry{ID: "v1"}, Outcome: f.outcome}, nil
}

func (f *fakeVitals) Stats(context.Context, string) (*vitals.Stats, error) {
	return &vitals.Stats{TotalRecords: 2}, nil
}

func (f *fakeVitals) Update(_ context.Context, owner string, id vitals.ID, p appvitals.Patch) (*vitals.Entry, error) {
	f.patch = &p
	return &vitals.Entry{ID: id, OwnerID: owner}, nil
}

func (f *fakeVitals) Delete(_ context.Context, _ string, id vitals.ID) error {
	if id != reportID {
		return vitals.ErrNotFound
	}
	f.deleted = id
	return nil
}

func send(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	r, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	r.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func newServer(t *testing.T, rep *fakeReports, vit *fakeVitals, keys map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(httpserver.NewRouter(httpserver.Options{
		Reports:  rep,
		Vitals:   vit,
		Checkers: map[string]middleware.HealthChecker{},
		APIKeys:  keys,
		Logger:   zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func multipartUpload(t *testing.T, fields map[string]string, file string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", "scan.pdf")
		require.NoError(t, err)
		_, err = fw.Write([]byte(file))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRouter_Reports(t *testing.T) {
	t.Run("upload returns 201 with the created report", func(t *testing.T) {
		req := require.New(t)
		rep := &fakeReports{}
		srv := newServer(t, rep, &fakeVitals{}, nil)

		body, ct := multipartUpload(t, map[string]string{
			"title": "CBC", "reportType": "blood-test", "reportDate": "2024-05-10", "notes": "fasting",
		}, "%PDF-1.4 test")
		resp, err := http.Post(srv.URL+"/v1/u1/reports", ct, body)
		req.NoError(err)
		defer resp.Body.Close()

		req.Equal(http.StatusCreated, resp.StatusCode)
		req.Equal("u1", rep.uploaded.OwnerID)
		req.Equal(reports.TypeBloodTest, rep.uploaded.Type)
		req.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), rep.uploaded.ReportDate)
		req.Equal(int64(len("%PDF-1.4 test")), rep.uploaded.Size)
	})

	t.Run("upload errors map to status codes", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
		}{
			{reports.ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
			{reports.ErrTooLarge, http.StatusRequestEntityTooLarge},
			{reports.ErrInvalid, http.StatusBadRequest},
			{errors.New("minio down"), http.StatusInternalServerError},
		}
		for _, tc := range cases {
			srv := newServer(t, &fakeReports{uploadErr: tc.err}, &fakeVitals{}, nil)
			body, ct := multipartUpload(t, map[string]string{"title": "x", "reportDate": "2024-05-10"}, "data")
			resp, err := http.Post(srv.URL+"/v1/u1/reports", ct, body)
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
		}
	})

	t.Run("upload without a file or date is a bad request", func(t *testing.T) {
		req := require.New(t)
		srv := newServer(t, &fakeReports{}, &fakeVitals{}, nil)

		body, ct := multipartUpload(t, map[string]string{"title": "x", "reportDate": "2024-05-10"}, "")
		resp, err := http.Post(srv.URL+"/v1/u1/reports", ct, body)
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusBadRequest, resp.StatusCode)

		body, ct = multipartUpload(t, map[string]string{"title": "x"}, "data")
		resp, err = http.Post(srv.URL+"/v1/u1/reports", ct, body)
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list parses filters", func(t *testing.T) {
		req := require.New(t)
		rep := &fakeReports{}
		srv := newServer(t, rep, &fakeVitals{}, nil)

		resp, err := http.Get(srv.URL + "/v1/u1/reports?type=mri&from=2024-01-01&page=2&limit=500")
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusOK, resp.StatusCode)
		req.Equal(reports.TypeMRI, rep.filter.Type)
		req.Equal(2, rep.filter.Page)
		req.Equal(100, rep.filter.PageSize)
		req.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *rep.filter.From)

		resp, err = http.Get(srv.URL + "/v1/u1/reports?from=yesterday")
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("get validates the id and maps not found", func(t *testing.T) {
		req := require.New(t)
		srv := newServer(t, &fakeReports{}, &fakeVitals{}, nil)

		resp, err := http.Get(srv.URL + "/v1/u1/reports/not-a-uuid")
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusBadRequest, resp.StatusCode)

		resp, err = http.Get(srv.URL + "/v1/u2/reports/" + reportID)
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusNotFound, resp.StatusCode)
	})

	t.Run("reanalyze answers by mode and outcome", func(t *testing.T) {
		req := require.New(t)
		failed := analysis.Failure("backend timeout")
		srv := newServer(t, &fakeReports{outcome: &failed}, &fakeVitals{}, nil)

		resp, err := http.Post(srv.URL+"/v1/u1/reports/"+reportID+"/analyze", "", nil)
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusAccepted, resp.StatusCode)

		resp, err = http.Post(srv.URL+"/v1/u1/reports/"+reportID+"/analyze?wait=true", "", nil)
		req.NoError(err)
		defer resp.Body.Close()
		req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
		var got map[string]any
		req.NoError(json.NewDecoder(resp.Body).Decode(&got))
		req.Equal("analysis temporarily unavailable", got["message"])
	})

	t.Run("update passes only the provided fields", func(t *testing.T) {
		req := require.New(t)
		rep := &fakeReports{}
		srv := newServer(t, rep, &fakeVitals{}, nil)

		resp := send(t, http.MethodPut, srv.URL+"/v1/u1/reports/"+reportID, `{"title":"Lipid panel","reportDate":"2024-05-12"}`)
		req.Equal(http.StatusOK, resp.StatusCode)
		req.Equal("Lipid panel", *rep.updated.Title)
		req.Equal(time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC), *rep.updated.ReportDate)
		req.Nil(rep.updated.Notes)
		req.Nil(rep.updated.Type)

		resp = send(t, http.MethodPut, srv.URL+"/v1/u1/reports/"+reportID, `{"reportType":"horoscope"}`)
		req.Equal(http.StatusBadRequest, resp.StatusCode)

		resp = send(t, http.MethodPut, srv.URL+"/v1/u1/reports/"+reportID, `{"reportDate":"soon"}`)
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete maps not found", func(t *testing.T) {
		req := require.New(t)
		rep := &fakeReports{}
		srv := newServer(t, rep, &fakeVitals{}, nil)

		resp := send(t, http.MethodDelete, srv.URL+"/v1/u1/reports/"+reportID, "")
		req.Equal(http.StatusOK, resp.StatusCode)
		req.Equal(reports.ID(reportID), rep.deleted)

		resp = send(t, http.MethodDelete, srv.URL+"/v1/u2/reports/"+reportID, "")
		req.Equal(http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unexpected errors are hidden behind 500", func(t *testing.T) {
		req := require.New(t)
		srv := newServer(t, &fakeReports{}, &fakeVitals{}, nil)

		resp, err := http.Get(srv.URL + "/v1/u1/reports/stats")
		req.NoError(err)
		defer resp.Body.Close()
		req.Equal(http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestRouter_Vitals(t *testing.T) {
	t.Run("add accepts a date-only record date", func(t *testing.T) {
		req := require.New(t)
		vit := &fakeVitals{}
		srv := newServer(t, &fakeReports{}, vit, nil)

		resp, err := http.Post(srv.URL+"/v1/u1/vitals", "application/json", strings.NewReader(
			`{"record_date":"2024-05-10","blood_pressure":{"systolic":120,"diastolic":80},"notes":"after walk"}`))
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusCreated, resp.StatusCode)
		req.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), vit.added.RecordDate)
		req.Equal(120.0, *vit.added.BloodPressure.Systolic)
		req.Equal("after walk", vit.added.Notes)
	})

	t.Run("add rejects a missing date and invalid readings", func(t *testing.T) {
		req := require.New(t)
		vit := &fakeVitals{addErr: vitals.ErrInvalid}
		srv := newServer(t, &fakeReports{}, vit, nil)

		resp, err := http.Post(srv.URL+"/v1/u1/vitals", "application/json", strings.NewReader(`{"weight":{"value":70}}`))
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusBadRequest, resp.StatusCode)
		req.Nil(vit.added)

		resp, err = http.Post(srv.URL+"/v1/u1/vitals", "application/json", strings.NewReader(`{"record_date":"2024-05-10","oxygen_level":{"value":400}}`))
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("insights without a body uses the latest reading", func(t *testing.T) {
		req := require.New(t)
		vit := &fakeVitals{outcome: analysis.DegradedSuccess(insight.Result{EnglishSummary: "raw text"})}
		srv := newServer(t, &fakeReports{}, vit, nil)

		resp, err := http.Post(srv.URL+"/v1/u1/vitals/insights", "application/json", nil)
		req.NoError(err)
		defer resp.Body.Close()
		req.Equal(http.StatusOK, resp.StatusCode)
		req.Equal(vitals.ID(""), vit.asked)

		var got struct {
			VitalID  string         `json:"vital_id"`
			Insights insight.Result `json:"insights"`
			Degraded bool           `json:"degraded"`
		}
		req.NoError(json.NewDecoder(resp.Body).Decode(&got))
		req.Equal("v1", got.VitalID)
		req.True(got.Degraded)
		req.Equal("raw text", got.Insights.EnglishSummary)
	})

	t.Run("failed insights answer 503", func(t *testing.T) {
		req := require.New(t)
		vit := &fakeVitals{outcome: analysis.Failure("backend quota exceeded")}
		srv := newServer(t, &fakeReports{}, vit, nil)

		resp, err := http.Post(srv.URL+"/v1/u1/vitals/insights", "application/json", strings.NewReader(`{"vitalId":"`+reportID+`"}`))
		req.NoError(err)
		resp.Body.Close()
		req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
		req.Equal(vitals.ID(reportID), vit.asked)
	})

	t.Run("update sends a partial patch", func(t *testing.T) {
		req := require.New(t)
		vit := &fakeVitals{}
		srv := newServer(t, &fakeReports{}, vit, nil)

		resp := send(t, http.MethodPut, srv.URL+"/v1/u1/vitals/"+reportID, `{"heart_rate":{"value":64},"symptoms":[]}`)
		req.Equal(http.StatusOK, resp.StatusCode)
		req.Equal(64.0, *vit.patch.HeartRate.Value)
		req.NotNil(vit.patch.Symptoms)
		req.Empty(*vit.patch.Symptoms)
		req.Nil(vit.patch.BloodPressure)
		req.Nil(vit.patch.RecordDate)

		resp = send(t, http.MethodPut, srv.URL+"/v1/u1/vitals/"+reportID, `{"record_date":"10/05/2024"}`)
		req.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete", func(t *testing.T) {
		req := require.New(t)
		vit := &fakeVitals{}
		srv := newServer(t, &fakeReports{}, vit, nil)

		resp := send(t, http.MethodDelete, srv.URL+"/v1/u1/vitals/"+reportID, "")
		req.Equal(http.StatusOK, resp.StatusCode)
		req.Equal(vitals.ID(reportID), vit.deleted)

		resp = send(t, http.MethodDelete, srv.URL+"/v1/u1/vitals/00000000-0000-4000-8000-000000000000", "")
		req.Equal(http.StatusNotFound, resp.StatusCode)
	})

	t.Run("list and stats", func(t *testing.T) {
		req := require.New(t)
		srv := newServer(t, &fakeReports{}, &fakeVitals{}, nil)

		resp, err := http.Get(srv.URL + "/v1/u1/vitals")
		req.NoError(err)
		defer resp.Body.Close()
		var list vitals.PaginatedResult
		req.NoError(json.NewDecoder(resp.Body).Decode(&list))
		req.Equal(50, list.PageSize)

		resp2, err := http.Get(srv.URL + "/v1/u1/vitals/stats")
		req.NoError(err)
		resp2.Body.Close()
		req.Equal(http.StatusOK, resp2.StatusCode)
	})
}

func TestRouter_Auth(t *testing.T) {
	keys := map[string]string{"u1": "key-u1", "u2": "key-u2"}

	do := func(t *testing.T, srv *httptest.Server, path, key string) int {
		t.Helper()
		r, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err)
		if key != "" {
			r.Header.Set("Authorization", "Bearer "+key)
		}
		resp, err := http.DefaultClient.Do(r)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("keys are bound to their owner", func(t *testing.T) {
		req := require.New(t)
		srv := newServer(t, &fakeReports{}, &fakeVitals{}, keys)

		req.Equal(http.StatusUnauthorized, do(t, srv, "/v1/u1/vitals", ""))
		req.Equal(http.StatusUnauthorized, do(t, srv, "/v1/u1/vitals", "nope"))
		req.Equal(http.StatusForbidden, do(t, srv, "/v1/u1/vitals", "key-u2"))
		req.Equal(http.StatusOK, do(t, srv, "/v1/u1/vitals", "key-u1"))
	})

	t.Run("health endpoints stay public", func(t *testing.T) {
		req := require.New(t)
		srv := newServer(t, &fakeReports{}, &fakeVitals{}, keys)

		req.Equal(http.StatusOK, do(t, srv, "/health", ""))
		req.Equal(http.StatusOK, do(t, srv, "/ready", ""))
		req.Equal(http.StatusOK, do(t, srv, "/metrics", ""))
	})

	t.Run("malformed owner is rejected", func(t *testing.T) {
		srv := newServer(t, &fakeReports{}, &fakeVitals{}, nil)
		require.Equal(t, http.StatusBadRequest, do(t, srv, "/v1/bad%20owner/vitals", ""))
	})
}
