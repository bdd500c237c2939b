// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubchem

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/pdiddy/pubchem-fetch/internal/cache"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// --- fake PubChem server ---

type reply struct {
	status int
	body   string
}

// fakePubChem serves scripted replies per identifier. When a script runs
// out, its last reply repeats. Identifiers without a script get a
// generated property or assay payload.
type fakePubChem struct {
	mu         sync.Mutex
	properties map[int][]reply
	assays     map[int][]reply
	calls      map[string]int
	userAgents []string
}

func newFakePubChem() *fakePubChem {
	return &fakePubChem{
		properties: map[int][]reply{},
		assays:     map[int][]reply{},
		calls:      map[string]int{},
	}
}

func (f *fakePubChem) server(t *testing.T) *httptest.Server {
	t.Helper()
	router := httprouter.New()
	router.GET("/compound/cid/:cid/property/:props/JSON", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cid, _ := strconv.Atoi(ps.ByName("cid"))
		rep := f.next("property", cid, f.properties, func() reply {
			return reply{http.StatusOK, propertyJSON(cid)}
		}, r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		fmt.Fprint(w, rep.body)
	})
	router.GET("/assay/aid/:aid/CSV", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cid, _ := strconv.Atoi(r.URL.Query().Get("cid"))
		rep := f.next("assay:"+ps.ByName("aid"), cid, f.assays, func() reply {
			return reply{http.StatusOK, assayCSV(cid)}
		}, r)
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(rep.status)
		fmt.Fprint(w, rep.body)
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func (f *fakePubChem) next(kind string, cid int, scripts map[int][]reply, def func() reply, r *http.Request) reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%d", kind, cid)
	n := f.calls[key]
	f.calls[key] = n + 1
	f.userAgents = append(f.userAgents, r.UserAgent())

	script, ok := scripts[cid]
	if !ok || len(script) == 0 {
		return def()
	}
	if n >= len(script) {
		return script[len(script)-1]
	}
	return script[n]
}

func (f *fakePubChem) callCount(kind string, cid int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[fmt.Sprintf("%s/%d", kind, cid)]
}

func propertyJSON(cid int) string {
	return fmt.Sprintf(`{"PropertyTable":{"Properties":[{"CID":%d,"MolecularFormula":"C9H8O4","MolecularWeight":"180.16","CanonicalSMILES":"CC(=O)OC1=CC=CC=C1C(=O)O","InChIKey":"BSYNRYMUTXBXSQ-UHFFFAOYSA-N"}]}}`, cid)
}

const assayHeader = "PUBCHEM_RESULT_TAG,PUBCHEM_SID,PUBCHEM_CID,PUBCHEM_ACTIVITY_OUTCOME,PUBCHEM_ACTIVITY_SCORE,PUBCHEM_ACTIVITY_URL,PUBCHEM_ASSAYDATA_COMMENT,Phenotype,Mean IC50,StdDev IC50"

func assayCSV(cid int) string {
	return assayHeader + "\n" +
		"RESULT_TYPE,,,,,,,STRING,FLOAT,FLOAT\n" +
		"RESULT_DESCR,,,,,,,,,\n" +
		fmt.Sprintf("1,842121,%d,Active,40,,,Inhibitor,12.5,1.75\n", cid)
}

func testFetchConfig(baseURL string) types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			BaseURL:   baseURL,
			Timeout:   5 * time.Second,
			UserAgent: "pubchem-fetch-test/0.1",
		},
		MaxRetries: 3,
		Delay:      0,
		BatchSize:  2,
	}
}

func newTestFetcher(t *testing.T, fake *fakePubChem) *Fetcher {
	t.Helper()
	ts := fake.server(t)
	cfg := testFetchConfig(ts.URL)
	return NewFetcher(NewClient(cfg.HTTPConfig, nil), cfg, nil)
}

// memCache is an in-memory cache.Cache for tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	sets    int
	onSet   func()
}

func newMemCache() *memCache { return &memCache{entries: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	body, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return body, nil
}

func (m *memCache) Set(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = body
	m.sets++
	if m.onSet != nil {
		m.onSet()
	}
	return nil
}
