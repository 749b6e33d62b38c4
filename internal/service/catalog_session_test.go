package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/upstream"
)

type mapStore struct {
	mu      sync.Mutex
	data    map[string]models.FieldMapping
	loadErr error
	saveErr error
	saves   int
}

func newMapStore() *mapStore {
	return &mapStore{data: map[string]models.FieldMapping{}}
}

func (s *mapStore) LoadMapping(_ context.Context, key string) (models.FieldMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	m, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return m.Clone(), nil
}

func (s *mapStore) SaveMapping(_ context.Context, key string, m models.FieldMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = m.Clone()
	return nil
}

type fakeCatalog struct {
	upload   *models.UploadInfo
	mapResp  *models.MapCatalogResponse
	match    *models.MatchResponse
	err      error
	lastMap  models.FieldMapping
	lastReq  models.MatchRequest
	records  []map[string]interface{}
	uploaded string
}

func (f *fakeCatalog) UploadCatalog(_ context.Context, filename string, body io.Reader) (*models.UploadInfo, error) {
	data, _ := io.ReadAll(body)
	f.uploaded = filename + ":" + string(data)
	if f.err != nil {
		return nil, f.err
	}
	return f.upload, nil
}

func (f *fakeCatalog) MapCatalog(_ context.Context, _ string, mapping models.FieldMapping) (*models.MapCatalogResponse, error) {
	f.lastMap = mapping
	if f.err != nil {
		return nil, f.err
	}
	return f.mapResp, nil
}

func (f *fakeCatalog) MatchCatalog(_ context.Context, req models.MatchRequest) (*models.MatchResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.match, nil
}

func (f *fakeCatalog) UploadSizingSheet(ctx context.Context, filename string, body io.Reader) (*models.UploadInfo, error) {
	return f.UploadCatalog(ctx, filename, body)
}

func (f *fakeCatalog) MapSizingSheet(_ context.Context, _ string, mapping models.FieldMapping) ([]map[string]interface{}, error) {
	f.lastMap = mapping
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

var catalogHeaders = []string{"Size (mm2)", "Vendor", "Part No", "Cores", "R (ohm/km)"}

func uploadedWizard(t *testing.T, svc *fakeCatalog, store *mapStore) *CatalogWizard {
	t.Helper()
	svc.upload = &models.UploadInfo{Token: "tok-1", Headers: catalogHeaders}
	wiz := NewCatalogWizard(svc, store, nil)
	_, err := wiz.Upload(context.Background(), "catalog.xlsx", strings.NewReader("xlsx"))
	require.NoError(t, err)
	return wiz
}

func TestCatalogWizard_UploadSeedsMapping(t *testing.T) {
	store := newMapStore()
	store.data[CatalogMappingKey] = models.FieldMapping{
		"csa_mm2": "Size (mm2)",
		"armour":  "Armour Type",
	}
	svc := &fakeCatalog{}

	wiz := uploadedWizard(t, svc, store)

	assert.Equal(t, "catalog.xlsx:xlsx", svc.uploaded)
	s := wiz.Session()
	require.NotNil(t, s)
	assert.Equal(t, "tok-1", s.Token)
	assert.Equal(t, catalogHeaders, s.Headers)

	m := wiz.Mapping()
	assert.Equal(t, "Size (mm2)", m["csa_mm2"])
	assert.Equal(t, "Vendor", m["vendor"])
	assert.Equal(t, "Part No", m["part_no"])
	assert.Equal(t, "Cores", m["cores"])
	assert.Equal(t, "R (ohm/km)", m["r_ohm_per_km"])
	assert.NotContains(t, m, "armour", "stored header absent from the file is dropped")
}

func TestCatalogWizard_UploadStoreFailureIsNotFatal(t *testing.T) {
	store := newMapStore()
	store.loadErr = errors.New("redis down")

	wiz := uploadedWizard(t, &fakeCatalog{}, store)

	assert.Equal(t, "Vendor", wiz.Mapping()["vendor"])
}

func TestCatalogWizard_UploadRejected(t *testing.T) {
	svc := &fakeCatalog{upload: &models.UploadInfo{Token: "tok-1", Headers: catalogHeaders}}
	wiz := NewCatalogWizard(svc, newMapStore(), nil)
	_, err := wiz.Upload(context.Background(), "a.xlsx", strings.NewReader("a"))
	require.NoError(t, err)

	svc.err = &upstream.StatusError{Endpoint: upstream.PathCatalogUpload, Code: 400, Body: "not a spreadsheet"}
	_, err = wiz.Upload(context.Background(), "b.pdf", strings.NewReader("b"))

	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "b.pdf", uerr.Filename)
	require.NotNil(t, wiz.Session(), "previous session survives a rejected upload")
	assert.Equal(t, "a.xlsx", wiz.Session().Filename)
}

func TestCatalogWizard_SetMapping(t *testing.T) {
	wiz := NewCatalogWizard(&fakeCatalog{}, newMapStore(), nil)
	assert.ErrorIs(t, wiz.SetMapping("vendor", "Vendor"), ErrNoSession)

	wiz = uploadedWizard(t, &fakeCatalog{}, newMapStore())

	var verr *ValidationError
	assert.ErrorAs(t, wiz.SetMapping("colour", "Vendor"), &verr)
	assert.ErrorAs(t, wiz.SetMapping("vendor", "Supplier"), &verr)

	require.NoError(t, wiz.SetMapping("vendor", ""))
	assert.NotContains(t, wiz.Mapping(), "vendor")
	require.NoError(t, wiz.SetMapping("vendor", "Part No"))
	assert.Equal(t, "Part No", wiz.Mapping()["vendor"])
}

func TestCatalogWizard_SaveMappingPersists(t *testing.T) {
	store := newMapStore()
	svc := &fakeCatalog{mapResp: &models.MapCatalogResponse{Count: 42}}
	wiz := uploadedWizard(t, svc, store)

	n, err := wiz.SaveMapping(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42, n)
	assert.Equal(t, 42, wiz.RecognizedRows())
	assert.Equal(t, wiz.Mapping(), svc.lastMap)
	assert.Equal(t, wiz.Mapping(), store.data[CatalogMappingKey])
}

func TestCatalogWizard_SaveMappingStoreFailureIsNotFatal(t *testing.T) {
	store := newMapStore()
	store.saveErr = errors.New("disk full")
	wiz := uploadedWizard(t, &fakeCatalog{mapResp: &models.MapCatalogResponse{Count: 3}}, store)

	n, err := wiz.SaveMapping(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, store.saves)
}

func TestCatalogWizard_ExpiredToken(t *testing.T) {
	store := newMapStore()
	svc := &fakeCatalog{}
	wiz := uploadedWizard(t, svc, store)
	svc.err = &upstream.StatusError{Endpoint: upstream.PathCatalogMap, Code: 404, Body: "token not found"}

	_, err := wiz.SaveMapping(context.Background())

	var serr *SessionExpiredError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "tok-1", serr.Token)
	assert.Nil(t, wiz.Session())
	assert.Empty(t, store.data, "failed save is not persisted")

	_, err = wiz.Match(context.Background(), nil, 3)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCatalogWizard_Match(t *testing.T) {
	svc := &fakeCatalog{}
	wiz := uploadedWizard(t, svc, newMapStore())
	one := 1
	svc.match = &models.MatchResponse{Matches: []models.MatchResponseRow{
		{RowIndex: &one, CableNumber: "F2", Suggestions: []models.MatchSuggestion{
			{Score: 0.9, Entry: catalogEntry("PC-95", 95)},
			{Score: 0.8, Entry: catalogEntry("PC-120", 120)},
		}},
	}}
	rows := []models.MatchRow{
		{Index: 0, CableNumber: "F1", Voltage: 415, RequiredCurrent: 60},
		{Index: 1, CableNumber: "F2", Voltage: 415, RequiredCurrent: 180},
	}

	results, err := wiz.Match(context.Background(), rows, 1)

	require.NoError(t, err)
	assert.Equal(t, "tok-1", svc.lastReq.Token)
	assert.Equal(t, 1, svc.lastReq.TopN)
	assert.Equal(t, 180.0, svc.lastReq.Rows[1].DeratedCurrent)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].RowIndex)
	require.Len(t, results[0].Suggestions, 1)
	assert.Equal(t, "PC-95", results[0].Best().PartNo)
}

func TestCatalogWizard_MatchErrors(t *testing.T) {
	svc := &fakeCatalog{}
	wiz := uploadedWizard(t, svc, newMapStore())

	_, err := wiz.Match(context.Background(), nil, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "top_n", verr.Field)

	svc.err = &upstream.StatusError{Endpoint: upstream.PathCatalogMatch, Code: 500}
	_, err = wiz.Match(context.Background(), nil, 3)
	var rerr *RankingServiceError
	require.ErrorAs(t, err, &rerr)
	assert.NotNil(t, wiz.Session(), "service fault keeps the session")

	svc.err = &upstream.StatusError{Endpoint: upstream.PathCatalogMatch, Code: 410}
	_, err = wiz.Match(context.Background(), nil, 3)
	var serr *SessionExpiredError
	require.ErrorAs(t, err, &serr)
	assert.Nil(t, wiz.Session())
}

func TestSizingImport_Apply(t *testing.T) {
	store := newMapStore()
	svc := &fakeCatalog{
		upload: &models.UploadInfo{Token: "sheet-1", Headers: []string{"Cable No", "Load (kW)", "Length"}},
		records: []map[string]interface{}{
			{"cable_number": "F1", "load_kw": "30", "length": "45"},
		},
	}
	imp := NewSizingImport(svc, store, nil)

	_, err := imp.Upload(context.Background(), "feeders.csv", strings.NewReader("csv"))
	require.NoError(t, err)
	assert.Equal(t, "Length", imp.Mapping()["length"])

	records, err := imp.Apply(context.Background())

	require.NoError(t, err)
	assert.Equal(t, svc.records, records)
	assert.Equal(t, svc.lastMap, store.data[SizingMappingKey])
	assert.Nil(t, imp.Session())

	_, err = imp.Apply(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSizingImport_UploadWithoutToken(t *testing.T) {
	imp := NewSizingImport(&fakeCatalog{upload: &models.UploadInfo{}}, newMapStore(), nil)

	_, err := imp.Upload(context.Background(), "empty.csv", strings.NewReader(""))

	var uerr *UploadError
	assert.ErrorAs(t, err, &uerr)
}
