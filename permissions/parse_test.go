package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "valid", raw: `{"endpoints":[{"path":"/v1/rooms","method":"POST","permissions":["admin"]}]}`},
		{name: "unknown role", raw: `{"endpoints":[{"path":"/v1/rooms","method":"POST","permissions":["owner"]}]}`, wantErr: `unknown role "owner"`},
		{name: "malformed", raw: `{"endpoints":`, wantErr: "decode permissions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := parse([]byte(tt.raw))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, data)

				return
			}

			require.NoError(t, err)
			assert.Len(t, data.Endpoints, 1)
		})
	}
}
