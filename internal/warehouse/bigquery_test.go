package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bigquery "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"

	perrors "github.com/warebox/conveyor/internal/errors"
)

func newTestLoader(t *testing.T, handler http.Handler) *BigQueryLoader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := bigquery.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication())
	require.NoError(t, err)

	return NewBigQueryLoader(svc, BigQueryConfig{
		ProjectID: "warebox-etl",
		Dataset:   "wikipedia",
		Location:  "US",
	})
}

func testColumns() []Column {
	return []Column{
		{Name: "article", Type: "STRING"},
		{Name: "pageviews", Type: "INTEGER"},
	}
}

func TestTableExists(t *testing.T) {
	loader := newTestLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/warebox-etl/datasets/wikipedia/tables/pageviews", r.URL.Path)
		fmt.Fprint(w, `{"tableReference": {"tableId": "pageviews"}}`)
	}))

	exists, err := loader.TableExists(context.Background(), "pageviews")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTableExistsAbsentTableIsNotAnError(t *testing.T) {
	loader := newTestLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	exists, err := loader.TableExists(context.Background(), "pageviews")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTableExistsTransportFailureIsUnavailable(t *testing.T) {
	loader := newTestLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := loader.TableExists(context.Background(), "pageviews")
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.ErrorCategoryUnavailable))
}

func TestCopyFromSubmitsLoadJob(t *testing.T) {
	var submitted bigquery.Job
	loader := newTestLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/projects/warebox-etl/jobs":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			fmt.Fprint(w, `{"jobReference": {"projectId": "warebox-etl", "jobId": "load-1", "location": "US"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/projects/warebox-etl/jobs/load-1":
			assert.Equal(t, "US", r.URL.Query().Get("location"))
			fmt.Fprint(w, `{"status": {"state": "DONE"}}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	err := loader.CopyFrom(context.Background(), "gs://out/run-1/transform/part", "pageviews", testColumns())
	require.NoError(t, err)

	load := submitted.Configuration.Load
	require.NotNil(t, load)
	assert.Equal(t, []string{"gs://out/run-1/transform/part*"}, load.SourceUris)
	assert.Equal(t, "pageviews", load.DestinationTable.TableId)
	assert.Equal(t, "wikipedia", load.DestinationTable.DatasetId)
	assert.Equal(t, "CSV", load.SourceFormat)
	assert.Equal(t, "\t", load.FieldDelimiter)
	assert.Equal(t, "WRITE_TRUNCATE", load.WriteDisposition)
	require.Len(t, load.Schema.Fields, 2)
	assert.Equal(t, "article", load.Schema.Fields[0].Name)
}

func TestCopyFromReportsJobFailure(t *testing.T) {
	loader := newTestLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			fmt.Fprint(w, `{"jobReference": {"jobId": "load-2"}}`)
		default:
			fmt.Fprint(w, `{"status": {"state": "DONE", "errorResult": {"message": "CSV table references column position 7"}}}`)
		}
	}))

	err := loader.CopyFrom(context.Background(), "gs://out/run-1/transform/part", "pageviews", testColumns())
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.ErrorCategoryAction))
	assert.Contains(t, err.Error(), "CSV table references column position 7")
}

func TestCopyFromReportsSubmitFailure(t *testing.T) {
	loader := newTestLoader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	err := loader.CopyFrom(context.Background(), "gs://out/run-1/transform/part", "pageviews", testColumns())
	require.Error(t, err)
	assert.True(t, perrors.IsCategory(err, perrors.ErrorCategoryAction))
}
