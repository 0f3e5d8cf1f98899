package service

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrobench/agrobench/internal/errors"
	"github.com/agrobench/agrobench/internal/filter"
	"github.com/agrobench/agrobench/internal/logging"
	"github.com/agrobench/agrobench/internal/query"
	"github.com/agrobench/agrobench/internal/registry"
	"github.com/agrobench/agrobench/internal/testutil"
	"github.com/agrobench/agrobench/internal/types"
)

// spyEngine counts calls reaching storage
type spyEngine struct {
	next  Engine
	calls atomic.Int32
}

func (s *spyEngine) Fetch(ctx context.Context, table *registry.Table, columns []*registry.Column, pred filter.Predicate, limit, offset int) (query.Page, error) {
	s.calls.Add(1)
	return s.next.Fetch(ctx, table, columns, pred, limit, offset)
}

func (s *spyEngine) Median(ctx context.Context, table *registry.Table, column *registry.Column, pred filter.Predicate) (query.MedianResult, error) {
	s.calls.Add(1)
	return s.next.Median(ctx, table, column, pred)
}

func (s *spyEngine) Frequency(ctx context.Context, table *registry.Table, column *registry.Column, pred filter.Predicate, asBoolean bool) ([]query.FrequencyBucket, error) {
	s.calls.Add(1)
	return s.next.Frequency(ctx, table, column, pred, asBoolean)
}

// stubEngine returns canned frequency buckets
type stubEngine struct {
	Engine
	buckets []query.FrequencyBucket
}

func (s stubEngine) Frequency(context.Context, *registry.Table, *registry.Column, filter.Predicate, bool) ([]query.FrequencyBucket, error) {
	return s.buckets, nil
}

// brokenEngine fails every fetch like an unreachable database
type brokenEngine struct {
	Engine
}

func (brokenEngine) Fetch(context.Context, *registry.Table, []*registry.Column, filter.Predicate, int, int) (query.Page, error) {
	return query.Page{}, errors.New(errors.ErrTypeStorage, "connection refused")
}

func newService(t *testing.T) (*Service, *spyEngine) {
	t.Helper()

	db, reg := testutil.NewTestDB(t)
	spy := &spyEngine{next: query.NewExecutor(db)}

	return New(reg, spy), spy
}

func TestListTables(t *testing.T) {
	svc, _ := newService(t)

	tables := svc.ListTables()
	require.Len(t, tables, 6)
	assert.Equal(t, "farms", tables[0].Name)
	assert.Contains(t, tables[1].Columns, "type")

	desc, err := svc.DescribeTable("sdc")
	require.NoError(t, err)
	assert.Equal(t, "id", desc.Key)
}

func TestQueryEnvelope(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.Query(context.Background(), testutil.NewQuery("plots",
		testutil.WithSelect("id", "name"),
		testutil.WithPage(10, 5),
	))
	require.NoError(t, err)

	assert.Len(t, resp.Data, 10)
	assert.Equal(t, int64(testutil.SamplePlots), resp.Total)
	require.NotNil(t, resp.Limit)
	assert.Equal(t, 10, *resp.Limit)
	assert.Equal(t, 5, resp.Offset)
	assert.Equal(t, types.Row{"id": int64(6), "name": "Pièce du Château"}, resp.Data[0])
}

func TestQueryUnboundedLimitIsNil(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.Query(context.Background(), testutil.NewQuery("plots", testutil.WithPage(0, 3)))
	require.NoError(t, err)

	assert.Nil(t, resp.Limit)
	assert.Len(t, resp.Data, testutil.SamplePlots-3)
	assert.Equal(t, int64(testutil.SamplePlots), resp.Total)
}

func TestQueryJoinScenario(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.Query(context.Background(), testutil.NewQuery("plots",
		testutil.WithSelect("id", "sdcId"),
		testutil.WithJoins(testutil.Join("sdc", "id", "sdcId", testutil.Eq("type", types.String("Bio")))),
	))
	require.NoError(t, err)

	assert.Equal(t, int64(testutil.SampleBioPlots), resp.Total)
	for _, row := range resp.Data {
		assert.Equal(t, int64(1), row["sdcId"])
	}
}

func TestValidationNeverReachesStorage(t *testing.T) {
	svc, spy := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		errType errors.ErrorType
	}{
		{
			name: "unknown table",
			call: func() error {
				_, err := svc.Query(ctx, testutil.NewQuery("crops"))
				return err
			},
			errType: errors.ErrTypeUnknownTable,
		},
		{
			name: "unknown select field",
			call: func() error {
				_, err := svc.Query(ctx, testutil.NewQuery("plots", testutil.WithSelect("id", "surface")))
				return err
			},
			errType: errors.ErrTypeUnknownColumn,
		},
		{
			name: "unknown filter field",
			call: func() error {
				_, err := svc.Query(ctx, testutil.NewQuery("plots",
					testutil.WithFilters(testutil.Eq("surface", types.Int(1)))))
				return err
			},
			errType: errors.ErrTypeUnknownColumn,
		},
		{
			name: "in without array",
			call: func() error {
				_, err := svc.Query(ctx, testutil.NewQuery("plots",
					testutil.WithFilters(testutil.Cond("soilType", types.OpIn, types.String("clay")))))
				return err
			},
			errType: errors.ErrTypeInvalidOperatorValue,
		},
		{
			name: "negative limit",
			call: func() error {
				_, err := svc.Query(ctx, testutil.NewQuery("plots", testutil.WithPage(-1, 0)))
				return err
			},
			errType: errors.ErrTypeValidation,
		},
		{
			name: "negative offset",
			call: func() error {
				_, err := svc.Query(ctx, testutil.NewQuery("plots", testutil.WithPage(5, -2)))
				return err
			},
			errType: errors.ErrTypeValidation,
		},
		{
			name: "unknown join table",
			call: func() error {
				_, err := svc.Query(ctx, testutil.NewQuery("plots",
					testutil.WithJoins(testutil.Join("systems", "id", "sdcId"))))
				return err
			},
			errType: errors.ErrTypeUnknownJoinTable,
		},
		{
			name: "median on unknown field",
			call: func() error {
				_, err := svc.Median(ctx, types.MedianRequest{Table: "plots", Field: "surface"})
				return err
			},
			errType: errors.ErrTypeUnknownColumn,
		},
		{
			name: "median on string field",
			call: func() error {
				_, err := svc.Median(ctx, types.MedianRequest{Table: "plots", Field: "soilType"})
				return err
			},
			errType: errors.ErrTypeNonNumericField,
		},
		{
			name: "asBoolean on string field",
			call: func() error {
				_, err := svc.Frequency(ctx, types.FrequencyRequest{Table: "sdc", Field: "type", AsBoolean: true})
				return err
			},
			errType: errors.ErrTypeNonNumericField,
		},
		{
			name: "asBoolean on boolean field",
			call: func() error {
				_, err := svc.Frequency(ctx, types.FrequencyRequest{Table: "rotations", Field: "coverCrop", AsBoolean: true})
				return err
			},
			errType: errors.ErrTypeNonNumericField,
		},
		{
			name: "frequency with bad operator",
			call: func() error {
				_, err := svc.Frequency(ctx, types.FrequencyRequest{
					Table:   "sdc",
					Field:   "type",
					Filters: []types.FilterCondition{{Field: "id", Operator: "between", Value: types.Int(1)}},
				})
				return err
			},
			errType: errors.ErrTypeUnknownOperator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.errType, errors.GetType(err))

			structErr, ok := errors.As(err)
			require.True(t, ok)
			assert.True(t, structErr.IsClientError())
		})
	}

	assert.Zero(t, spy.calls.Load())
}

func TestUnknownColumnListsAlternatives(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Median(context.Background(), types.MedianRequest{Table: "indicators", Field: "margin"})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "margin")
	assert.Contains(t, err.Error(), "grossMarginEurHa")

	structErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Contains(t, structErr.Suggestions, "grossMarginEurHa")
}

func TestMedianEnvelope(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.Median(context.Background(), types.MedianRequest{
		Table:   "indicators",
		Field:   "workHoursHa",
		Filters: []types.FilterCondition{testutil.Eq("sdcId", types.Int(2))},
	})
	require.NoError(t, err)

	assert.Equal(t, "indicators", resp.Table)
	assert.Equal(t, "workHoursHa", resp.Field)
	assert.Equal(t, int64(4), resp.Count)
	require.NotNil(t, resp.Median)
	assert.InDelta(t, 2.5, *resp.Median, 1e-9)

	resp, err = svc.Median(context.Background(), types.MedianRequest{
		Table:   "indicators",
		Field:   "workHoursHa",
		Filters: []types.FilterCondition{testutil.Eq("campaign", types.Int(1999))},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Median)
	assert.Zero(t, resp.Count)
}

func TestFrequencyEnvelope(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.Frequency(context.Background(), types.FrequencyRequest{
		Table:   "rotations",
		Field:   "crop",
		Filters: []types.FilterCondition{testutil.Eq("sdcId", types.Int(2))},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4), resp.Total)
	assert.Equal(t, []types.FrequencyEntry{
		{Value: "wheat", Count: 3, Percentage: 75},
		{Value: "rapeseed", Count: 1, Percentage: 25},
	}, resp.Data)
}

func TestFrequencyAsBooleanEnvelope(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.Frequency(context.Background(), types.FrequencyRequest{
		Table:     "interventions",
		Field:     "nitrogenKgHa",
		AsBoolean: true,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(8), resp.Total)
	assert.Equal(t, []types.FrequencyEntry{
		{Value: false, Count: 6, Percentage: 75},
		{Value: true, Count: 2, Percentage: 25},
	}, resp.Data)
}

func TestFrequencyZeroTotal(t *testing.T) {
	db, reg := testutil.NewTestDB(t)
	svc := New(reg, stubEngine{
		Engine:  query.NewExecutor(db),
		buckets: []query.FrequencyBucket{{Value: true, Count: 0}, {Value: false, Count: 0}},
	})

	resp, err := svc.Frequency(context.Background(), types.FrequencyRequest{Table: "plots", Field: "areaHa", AsBoolean: true})
	require.NoError(t, err)

	assert.Zero(t, resp.Total)
	for _, entry := range resp.Data {
		assert.Zero(t, entry.Percentage)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		count, total int64
		want         float64
	}{
		{3, 4, 75},
		{1, 4, 25},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{5, 0, 0},
		{0, 0, 0},
		{4237, 10000, 42.37},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Percentage(tt.count, tt.total), 1e-9, "%d/%d", tt.count, tt.total)
	}
}

func TestConcurrentRequests(t *testing.T) {
	svc, _ := newService(t)

	testutil.RunConcurrent(t, testutil.ConcurrentWorkers, func(workerID int) {
		switch workerID % 3 {
		case 0:
			resp, err := svc.Query(context.Background(), testutil.NewQuery("plots", testutil.WithPage(2, 0)))
			assert.NoError(t, err)
			assert.Equal(t, int64(testutil.SamplePlots), resp.Total)
		case 1:
			resp, err := svc.Median(context.Background(), types.MedianRequest{Table: "plots", Field: "areaHa"})
			assert.NoError(t, err)
			assert.Equal(t, int64(testutil.SamplePlots), resp.Count)
		default:
			resp, err := svc.Frequency(context.Background(), types.FrequencyRequest{Table: "sdc", Field: "type"})
			assert.NoError(t, err)
			assert.Equal(t, int64(testutil.SampleSDC), resp.Total)
		}
	})
}

func TestFailuresLogByErrorClass(t *testing.T) {
	var buf bytes.Buffer

	previous := logging.GetLogger()
	logging.SetLogger(logging.NewWriterLogger(&buf, "info", "text"))
	t.Cleanup(func() { logging.SetLogger(previous) })

	svc := New(registry.Default(), brokenEngine{})

	_, err := svc.Query(context.Background(), types.QueryRequest{Table: "nope"})
	require.Error(t, err)
	assert.Empty(t, buf.String(), "rejected requests log at debug level only")

	_, err = svc.Query(context.Background(), types.QueryRequest{Table: "plots"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeStorage, errors.GetType(err))
	assert.Contains(t, buf.String(), "Query failed")
	assert.Contains(t, buf.String(), "connection refused")
}
