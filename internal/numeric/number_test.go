package numeric

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNumber_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  float64
		valid bool
	}{
		{"number", `250000`, 250000, true},
		{"decimal", `12.5`, 12.5, true},
		{"negative", `-40`, -40, true},
		{"money string", `"$1,250.50"`, 1250.50, true},
		{"plain string", `"300"`, 300, true},
		{"empty string", `""`, 0, false},
		{"garbage string", `"n/a"`, 0, false},
		{"null", `null`, 0, false},
		{"bool", `true`, 0, false},
		{"object", `{"a":1}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.input), &n))
			assert.Equal(t, tt.valid, n.Valid())
			if tt.valid {
				assert.InDelta(t, tt.want, n.Float(), 0.0001)
			}
		})
	}
}

func TestNumber_InStruct(t *testing.T) {
	t.Parallel()

	var v struct {
		ARV  Number `json:"arv"`
		AIV  Number `json:"aiv"`
		Miss Number `json:"miss"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"arv":"350,000","aiv":""}`), &v))
	assert.InDelta(t, 350000, v.ARV.Float(), 0.01)
	assert.False(t, v.AIV.Valid())
	assert.False(t, v.Miss.Valid())
	assert.InDelta(t, 7, v.Miss.Or(7), 0.0001)
}

func TestNumber_MarshalJSON(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: Of(1500.25), B: Null()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1500.25,"b":null}`, string(out))
}

func TestNumber_OfNonFinite(t *testing.T) {
	t.Parallel()

	assert.False(t, Of(math.NaN()).Valid())
	assert.False(t, Of(math.Inf(1)).Valid())
	assert.Nil(t, Of(math.Inf(-1)).Ptr())
	require.NotNil(t, Of(3).Ptr())
	assert.InDelta(t, 3, *Of(3).Ptr(), 0.0001)
}

func TestNumber_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	var v struct {
		A Number `yaml:"a"`
		B Number `yaml:"b"`
		C Number `yaml:"c"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 12\nb: \"$4,000\"\nc: nope\n"), &v))
	assert.InDelta(t, 12, v.A.Float(), 0.0001)
	assert.InDelta(t, 4000, v.B.Float(), 0.0001)
	assert.False(t, v.C.Valid())
}
