package ddct

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, DefaultColumns(), opts.Columns)
	assert.Equal(t, MethodMAD, opts.OutlierMethod)
	assert.Equal(t, 3.0, opts.OutlierThreshold)
	assert.Equal(t, 3, opts.MinReps)
	assert.True(t, opts.OutlierFilter)
	assert.True(t, opts.RecordOutliers)
	assert.False(t, opts.CaseSensitive)
	assert.False(t, opts.ExcludeReferenceInSamples)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{name: "valid", mutate: func(*Options) {}},
		{name: "no control pattern", mutate: func(o *Options) { o.ControlPattern = " " }, wantErr: "control pattern"},
		{name: "no reference pattern", mutate: func(o *Options) { o.ReferencePattern = "" }, wantErr: "reference pattern"},
		{name: "zero min reps", mutate: func(o *Options) { o.MinReps = 0 }, wantErr: "MinReps"},
		{name: "negative threshold", mutate: func(o *Options) { o.OutlierThreshold = -1 }, wantErr: "OutlierThreshold"},
		{name: "empty column", mutate: func(o *Options) { o.Columns.Cq = "" }, wantErr: "Columns.Cq"},
		{name: "unknown method", mutate: func(o *Options) { o.OutlierMethod = Method(9) }, wantErr: "Method(9)"},
		{name: "matcher replaces pattern", mutate: func(o *Options) {
			o.ControlPattern = ""
			o.ControlMatcher = PrefixMatcher{Prefix: "CTR"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOptions))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptionsValidateDefaults(t *testing.T) {
	opts := DefaultOptions()
	assert.NoError(t, opts.ValidateDefaults(), "patterns may be left to each run")
	assert.ErrorIs(t, opts.Validate(), ErrInvalidOptions)

	opts.MinReps = 0
	err := opts.ValidateDefaults()
	require.ErrorIs(t, err, ErrInvalidOptions)
	assert.Contains(t, err.Error(), "MinReps")
}

func TestOptionsFilter(t *testing.T) {
	opts := testOptions()
	opts.OutlierMethod = MethodIQR
	opts.OutlierThreshold = 1.5

	f := opts.Filter()
	require.NotNil(t, f)
	assert.Equal(t, OutlierFilter{Method: MethodIQR, Threshold: 1.5, MinReps: 3}, *f)

	opts.OutlierFilter = false
	assert.Nil(t, opts.Filter())
}

func TestRunRejectsInvalidPattern(t *testing.T) {
	opts := testOptions()
	opts.ReferencePattern = "ACT("

	_, err := Run(plate(row("A1", "ACTB", "CTR-1", 18)), opts)
	assert.True(t, errors.Is(err, ErrInvalidOptions))
}
