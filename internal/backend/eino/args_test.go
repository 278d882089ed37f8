package eino

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeArguments(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       map[string]any
		wantErrKey bool
		wantWarned bool
	}{
		{
			name: "valid object",
			raw:  `{"code": "print(1)", "timeout": 5}`,
			want: map[string]any{"code": "print(1)", "timeout": float64(5)},
		},
		{
			name:       "empty string",
			raw:        "",
			want:       map[string]any{},
			wantWarned: true,
		},
		{
			name:       "whitespace only",
			raw:        "   \n\t",
			want:       map[string]any{},
			wantWarned: true,
		},
		{
			name:       "literal null",
			raw:        "null",
			want:       map[string]any{},
			wantWarned: true,
		},
		{
			name:       "literal None",
			raw:        "None",
			want:       map[string]any{},
			wantWarned: true,
		},
		{
			name:       "truncated json",
			raw:        `{"code": "trunc`,
			wantErrKey: true,
			wantWarned: true,
		},
		{
			name:       "json but not an object",
			raw:        `"just a string"`,
			wantErrKey: true,
			wantWarned: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, warned := NormalizeArguments(tt.raw)
			require.NotNil(t, args, "arguments are always a valid mapping")
			require.Equal(t, tt.wantWarned, warned)

			if tt.wantErrKey {
				require.Contains(t, args, "_error")
				require.Equal(t, tt.raw, args["_raw"])
				return
			}
			require.Equal(t, tt.want, args)
		})
	}
}
