package preprocess

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbdelay/platform/pkg/schema"
)

func obs(age float64, xray string, flag float64) schema.Observation {
	o := schema.NewObservation()
	o.Numeric["age"] = age
	o.Categorical["xray"] = xray
	o.Numeric["flag"] = flag
	return o
}

func smallTransformer(t *testing.T) *ColumnTransformer {
	t.Helper()
	ct := NewColumnTransformer([]string{"age"}, []string{"xray"}, []string{"flag"})
	rows := []schema.Observation{
		obs(20, "normal", 0),
		obs(40, "suspicious", 1),
		obs(math.NaN(), "suspicious", 0),
		obs(60, "", 1),
	}
	require.NoError(t, ct.Fit(rows))
	return ct
}

func TestMedianImputerIgnoresMissing(t *testing.T) {
	ct := smallTransformer(t)
	assert.Equal(t, 40.0, ct.Numeric.Medians["age"])

	var even MedianImputer
	require.NoError(t, even.Fit([]string{"age"}, []schema.Observation{obs(10, "", 0), obs(30, "", 0)}))
	assert.Equal(t, 20.0, even.Medians["age"])
}

func TestMostFrequentImputer(t *testing.T) {
	ct := smallTransformer(t)
	assert.Equal(t, "suspicious", ct.Categorical.Modes["xray"])

	var tie MostFrequentImputer
	require.NoError(t, tie.Fit([]string{"xray"}, []schema.Observation{obs(1, "typical", 0), obs(1, "normal", 0)}))
	assert.Equal(t, "normal", tie.Modes["xray"])
}

func TestAllMissingColumnFails(t *testing.T) {
	ct := NewColumnTransformer([]string{"age"}, nil, nil)
	err := ct.Fit([]schema.Observation{obs(math.NaN(), "", 0)})
	assert.ErrorIs(t, err, ErrAllMissing)
}

func TestTransformLayoutAndImputation(t *testing.T) {
	ct := smallTransformer(t)

	want := []string{"num__age", "cat__xray_normal", "cat__xray_suspicious", "remainder__flag"}
	if diff := cmp.Diff(want, ct.FeatureNames()); diff != "" {
		t.Errorf("FeatureNames mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, ct.Width())

	got, err := ct.Transform(obs(math.NaN(), "", 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 0, 1, 1}, got)

	got, err = ct.Transform(obs(25, "normal", 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{25, 1, 0, 0}, got)
}

func TestUnseenCategoryEncodesAllZero(t *testing.T) {
	ct := smallTransformer(t)

	got, err := ct.Transform(obs(30, "typical", 0))
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 0, 0, 0}, got)
}

func TestPassthroughMissingIsError(t *testing.T) {
	ct := smallTransformer(t)
	_, err := ct.Transform(obs(30, "normal", math.NaN()))
	assert.Error(t, err)
}

func TestTransformBeforeFit(t *testing.T) {
	ct := FromSchema()
	_, err := ct.Transform(schema.DefaultObservation())
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestStateSurvivesJSON(t *testing.T) {
	ct := smallTransformer(t)
	payload, err := json.Marshal(ct)
	require.NoError(t, err)

	var restored ColumnTransformer
	require.NoError(t, json.Unmarshal(payload, &restored))

	in := obs(math.NaN(), "normal", 1)
	a, err := ct.Transform(in)
	require.NoError(t, err)
	b, err := restored.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFromSchemaInputColumns(t *testing.T) {
	ct := FromSchema()
	assert.ElementsMatch(t, schema.Names(), ct.InputColumns())
}
