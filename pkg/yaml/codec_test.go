package yaml_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/agentrules/pkg/yaml"
)

func TestDecoder_Decode(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		want    map[string]any
		wantErr bool
	}{
		"mapping": {
			input: "rules:\n  filter: alwaysApply\n",
			want:  map[string]any{"rules": map[string]any{"filter": "alwaysApply"}},
		},
		"duplicate key": {
			input:   "rules: {}\nrules: {}\n",
			wantErr: true,
		},
		"syntax error": {
			input:   "rules: [\n",
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got map[string]any

			err := yaml.NewDecoder(strings.NewReader(tc.input)).Decode(&got)
			if tc.wantErr {
				var yamlErr *yaml.Error
				require.ErrorAs(t, err, &yamlErr)
				assert.NotNil(t, yamlErr.Token)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncoder_Encode(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer

	enc := yaml.NewEncoder(&b)
	require.NoError(t, enc.Encode(map[string]any{
		"directories":  []string{".claude/rules"},
		"instructions": "line one\nline two",
	}))
	require.NoError(t, enc.Close())

	assert.Contains(t, b.String(), "directories:\n  - .claude/rules\n")
	assert.Contains(t, b.String(), "instructions: |-\n  line one\n  line two\n")
}
