package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-orchestrator/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second, nil)
}

func TestClient_BulkSize(t *testing.T) {
	var got []models.SizingInput
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathBulkSize, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"cable_number":"F1","flc":52.5,"derated_current":58.3,"selected_csa":25,"vdrop_ok":true,"sc_ok":true,
			"compliance":[{"type":"grouping","ok":false,"msg":"0.7 < 0.85"}]}]`))
	})

	res, err := c.BulkSize(context.Background(), []models.SizingInput{{
		CableNumber:     "F1",
		LoadKW:          30,
		DeratingFactors: []float64{1, 0.9},
		ROhmPerKm:       models.Float(0.727),
	}})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float64{1, 0.9}, got[0].DeratingFactors)
	assert.Equal(t, 0.727, *got[0].ROhmPerKm)
	assert.Nil(t, got[0].XOhmPerKm)

	require.Len(t, res, 1)
	assert.Equal(t, 25.0, res[0].SelectedCSA)
	require.NotNil(t, res[0].DeratedCurrent)
	assert.Equal(t, 58.3, *res[0].DeratedCurrent)
	require.Len(t, res[0].Compliance, 1)
	assert.False(t, res[0].Compliance[0].OK)
}

func TestClient_Upload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathCatalogUpload, r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "vendor.xlsx", header.Filename)
		assert.Equal(t, "spreadsheet bytes", string(data))
		_, _ = w.Write([]byte(`{"token":"abc","headers":["Size","Vendor"],"sample":[{"Size":95,"Vendor":"Polycab"}]}`))
	})

	info, err := c.UploadCatalog(context.Background(), "vendor.xlsx", strings.NewReader("spreadsheet bytes"))

	require.NoError(t, err)
	assert.Equal(t, "abc", info.Token)
	assert.Equal(t, []string{"Size", "Vendor"}, info.Headers)
	require.Len(t, info.Sample, 1)
	assert.Equal(t, "Polycab", info.Sample[0]["Vendor"])
}

func TestClient_MapCatalogSendsTokenAndMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req mapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "abc", req.Token)
		assert.Equal(t, "Size", req.Mapping["csa_mm2"])
		_, _ = w.Write([]byte(`{"count":128}`))
	})

	resp, err := c.MapCatalog(context.Background(), "abc", models.FieldMapping{"csa_mm2": "Size"})

	require.NoError(t, err)
	assert.Equal(t, 128, resp.Count)
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		body     string
		unknown  bool
		rejected bool
		detail   string
	}{
		{name: "missing token", code: 404, body: `{"detail":"Unknown token"}`, unknown: true, detail: "Unknown token"},
		{name: "gone", code: 410, body: ``, unknown: true},
		{name: "bad file", code: 400, body: `{"detail":"Unsupported file type"}`, rejected: true, detail: "Unsupported file type"},
		{name: "validation", code: 422, body: `{"detail":[{"loc":["body","token"],"msg":"field required"}]}`, rejected: true,
			detail: `[{"loc":["body","token"],"msg":"field required"}]`},
		{name: "server fault", code: 500, body: "Internal Server Error", detail: "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.MatchCatalog(context.Background(), models.MatchRequest{Token: "abc", TopN: 3})

			var serr *StatusError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.code, serr.Code)
			assert.Equal(t, PathCatalogMatch, serr.Endpoint)
			assert.Equal(t, tt.detail, serr.Body)
			assert.Equal(t, tt.unknown, errors.Is(err, ErrUnknownToken))
			assert.Equal(t, tt.rejected, errors.Is(err, ErrRejected))
		})
	}
}

func TestClient_ExportRequiresDownloadURL(t *testing.T) {
	reply := `{"downloadUrl":"/files/boq.xlsx","filename":"boq.xlsx"}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathExportBOQ, r.URL.Path)
		_, _ = w.Write([]byte(reply))
	})

	link, err := c.ExportBOQ(context.Background(), models.BOQExportRequest{Project: "SCEAP"})
	require.NoError(t, err)
	assert.Equal(t, "/files/boq.xlsx", link.DownloadURL)

	reply = `{"filename":"boq.xlsx"}`
	_, err = c.ExportBOQ(context.Background(), models.BOQExportRequest{Project: "SCEAP"})
	assert.Error(t, err)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, time.Second, nil)

	err := c.Health(context.Background())

	require.Error(t, err)
	var serr *StatusError
	assert.False(t, errors.As(err, &serr))
	assert.Contains(t, err.Error(), PathHealth)
}

func TestErrorDetailTruncates(t *testing.T) {
	long := strings.Repeat("x", 2000)
	assert.Len(t, errorDetail([]byte(long)), 512)
}
