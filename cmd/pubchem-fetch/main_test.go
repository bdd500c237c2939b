// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubchem-fetch/internal/store"
)

// --- fake PubChem ---

type fakeServer struct {
	mu    sync.Mutex
	calls map[string]int
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	f := &fakeServer{calls: map[string]int{}}
	router := httprouter.New()
	router.GET("/compound/cid/:cid/property/:props/JSON", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cid := ps.ByName("cid")
		f.hit("property/" + cid)
		if cid == "999999" {
			http.Error(w, `{"Fault":{"Code":"PUGREST.NotFound"}}`, http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"PropertyTable":{"Properties":[{"CID":%s,"MolecularFormula":"C9H8O4","MolecularWeight":"180.16","CanonicalSMILES":"CC(=O)OC1=CC=CC=C1C(=O)O","InChIKey":"BSYNRYMUTXBXSQ-UHFFFAOYSA-N"}]}}`, cid)
	})
	router.GET("/assay/aid/:aid/CSV", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cid := r.URL.Query().Get("cid")
		f.hit("assay/" + ps.ByName("aid") + "/" + cid)
		if cid == "404" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "TAG,SID,CID,OUTCOME,SCORE,URL,COMMENT,Phenotype,Mean IC50,StdDev IC50\n"+
			"RESULT_TYPE,,,,,,,STRING,FLOAT,FLOAT\n"+
			"RESULT_DESCR,,,,,,,,,\n"+
			"1,842121,%s,Active,40,,,Inhibitor,12.5,1.75\n", cid)
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return f, ts
}

func (f *fakeServer) hit(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
}

func (f *fakeServer) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// resetFlags restores every flag of cmd and its subcommands to its default,
// since cobra keeps parsed values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

// --- end to end ---

func TestCLI_EndToEnd(t *testing.T) {
	t.Cleanup(viper.Reset)
	fake, ts := newFakeServer(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "pubchem.db")
	input := filepath.Join(dir, "cids.csv")
	require.NoError(t, os.WriteFile(input, []byte("CID\n2244\n999999\n"), 0o644))

	common := []string{"--base-url", ts.URL, "--delay", "0", "--max-retries", "3", "--db", db}

	t.Run("version", func(t *testing.T) {
		out, err := execute(t, "version")
		require.NoError(t, err)
		assert.Equal(t, "pubchem-fetch dev\n", out)
	})

	t.Run("generate", func(t *testing.T) {
		path := filepath.Join(dir, "Example", "random_cids.csv")
		out, err := execute(t, "generate", "-n", "5", "--seed", "7", "--output", path)
		require.NoError(t, err)
		assert.Contains(t, out, "saved to "+path)

		rows := readCSV(t, path)
		require.Len(t, rows, 6)
		assert.Equal(t, []string{"CID"}, rows[0])
	})

	t.Run("properties", func(t *testing.T) {
		output := filepath.Join(dir, "out", "props.csv")
		out, err := execute(t, append([]string{"properties", "--input", input, "--output", output}, common...)...)
		require.NoError(t, err)

		assert.Contains(t, out, "total: 2, succeeded: 1, NA: 1, batches: 1")
		assert.Equal(t, 1, fake.count("property/2244"))
		assert.Equal(t, 3, fake.count("property/999999"))

		rows := readCSV(t, output)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"CID", "Molecular Formula", "Molecular Weight", "Canonical SMILES", "InChIKey"}, rows[0])
		assert.Equal(t, []string{"2244", "C9H8O4", "180.16", "CC(=O)OC1=CC=CC=C1C(=O)O", "BSYNRYMUTXBXSQ-UHFFFAOYSA-N"}, rows[1])
		assert.Equal(t, []string{"999999", "NA", "NA", "NA", "NA"}, rows[2])
	})

	t.Run("assays", func(t *testing.T) {
		output := filepath.Join(dir, "out", "assays.json")
		out, err := execute(t, append([]string{"assays", "--aid", "1000", "--cids", "2244,404",
			"--output", output, "--format", "json"}, common...)...)
		require.NoError(t, err)
		assert.Contains(t, out, "total: 2, succeeded: 1, NA: 1")
		assert.Equal(t, 3, fake.count("assay/1000/404"))

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		var rows []map[string]string
		require.NoError(t, json.Unmarshal(data, &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "12.5", rows[0]["Mean"])
		assert.Equal(t, "Mean IC50", rows[0]["Mean Label"])
		assert.Equal(t, map[string]string{"AID": "1000", "CID": "404", "Data": "NA"}, rows[1])
	})

	var runs []store.Run
	t.Run("runs", func(t *testing.T) {
		out, err := execute(t, "runs", "--db", db, "--json")
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal([]byte(out), &runs))
		require.Len(t, runs, 2)
		assert.Equal(t, store.KindAssays, runs[0].Kind)
		assert.Equal(t, store.KindProperties, runs[1].Kind)
		assert.Equal(t, input, runs[1].Input)
		assert.Equal(t, 1, runs[1].NA)
	})

	t.Run("export", func(t *testing.T) {
		require.Len(t, runs, 2)
		propsRun := runs[1].ID

		output := filepath.Join(dir, "export", "props.csv")
		_, err := execute(t, "export", propsRun, "--db", db, "--output", output, "--format", "csv")
		require.NoError(t, err)
		rows := readCSV(t, output)
		require.Len(t, rows, 3)
		assert.Equal(t, "NA", rows[2][1])

		full := filepath.Join(dir, "export", "props.yaml")
		_, err = execute(t, "export", propsRun, "--db", db, "--output", full, "--format", "yaml", "--full")
		require.NoError(t, err)
		data, err := os.ReadFile(full)
		require.NoError(t, err)
		assert.Contains(t, string(data), "attempts: 3")
		assert.Contains(t, string(data), "retry attempts exhausted")
	})

	t.Run("export unknown run", func(t *testing.T) {
		_, err := execute(t, "export", "nope", "--db", db, "--output", filepath.Join(dir, "x.csv"))
		assert.ErrorIs(t, err, store.ErrRunNotFound)
	})
}

func TestCLI_InvalidFormatFailsBeforeFetching(t *testing.T) {
	t.Cleanup(viper.Reset)
	fake, ts := newFakeServer(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"properties", []string{"properties", "--cids", "2244,999999"}},
		{"assays", []string{"assays", "--aid", "1000", "--cids", "2244,404"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := filepath.Join(dir, tt.name+".xml")
			args := append(tt.args, "--base-url", ts.URL, "--delay", "0", "--output", output, "--format", "xml")
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), `unknown export format "xml"`)

			assert.NoFileExists(t, output)
		})
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.calls, "no request reaches PubChem")
}

func TestCLI_RunsWithoutStore(t *testing.T) {
	t.Cleanup(viper.Reset)
	db := filepath.Join(t.TempDir(), "missing.db")

	_, err := execute(t, "runs", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result store at "+db)
	assert.NoFileExists(t, db)

	_, err = execute(t, "export", "some-run", "--db", db, "--output", filepath.Join(t.TempDir(), "x.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result store")
	assert.NoFileExists(t, db)
}

// --- config helpers ---

func TestFetchConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("max_retries", 3)
	viper.Set("batch_size", 100)
	viper.Set("delay", 0.3)
	viper.Set("retry_wait", 0)
	viper.Set("timeout", 30)

	cfg, err := fetchConfig()
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, cfg.Delay)
	assert.Equal(t, 300*time.Millisecond, cfg.Wait())
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	viper.Set("retry_wait", 1.5)
	cfg, err = fetchConfig()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Wait())
}

func TestFetchConfig_Invalid(t *testing.T) {
	tests := []struct {
		key    string
		value  any
		errMsg string
	}{
		{"max_retries", 0, "max_retries must be at least 1"},
		{"batch_size", -1, "batch_size must be at least 1"},
		{"delay", -0.5, "delay must be a non-negative"},
		{"retry_wait", -1, "retry_wait must be a non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			viper.Set("max_retries", 3)
			viper.Set("batch_size", 10)
			viper.Set(tt.key, tt.value)

			_, err := fetchConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCacheConfig_PasswordFromSecrets(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "redis-password"), []byte("s3cret\n"), 0o600))

	cfg, err := cacheConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled())
	assert.Empty(t, cfg.RedisPassword)

	viper.Set("cache.redis_addr", "localhost:6379")
	viper.Set("secrets_dir", dir)
	cfg, err = cacheConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "s3cret", cfg.RedisPassword)
}

func TestCacheConfig_TTLSeconds(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("cache.redis_addr", "localhost:6379")
	viper.Set("secrets_dir", t.TempDir())

	viper.Set("cache.ttl", 3600)
	cfg, err := cacheConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.TTL)

	viper.Set("cache.ttl", 0.5)
	cfg, err = cacheConfig()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.TTL)

	viper.Set("cache.ttl", -1)
	_, err = cacheConfig()
	assert.ErrorContains(t, err, "cache.ttl must be a non-negative")
}

func TestOpenCache_Disabled(t *testing.T) {
	t.Cleanup(viper.Reset)
	c, closeFn, err := openCache(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c)
	closeFn()
}

func TestAssayInput(t *testing.T) {
	assert.Equal(t, "aid=1000,1001 cids.csv", assayInput([]int{1000, 1001}, "cids.csv"))
	assert.True(t, strings.HasPrefix(assayInput([]int{7}, "--cids"), "aid=7 "))
}
