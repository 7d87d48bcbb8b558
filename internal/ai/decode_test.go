package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scorePayload struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Decoding
		score   int
		wantErr bool
	}{
		{name: "plain json", raw: `{"score": 7, "feedback": "ok"}`, want: DecodedStrict, score: 7},
		{name: "fenced json", raw: "```json\n{\"score\": 9, \"feedback\": \"great\"}\n```", want: DecodedStrict, score: 9},
		{name: "prose around json", raw: "Here is the result:\n{\"score\": 4, \"feedback\": \"thin\"}\nThanks!", want: DecodedRecovered, score: 4},
		{name: "no json", raw: "I cannot score this answer.", wantErr: true},
		{name: "broken json", raw: `{"score": 4, "feedback": }`, wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out scorePayload
			got, err := Decode(tt.raw, &out)
			if tt.wantErr {
				var perr *ParseError
				require.Error(t, err)
				assert.True(t, errors.As(err, &perr))
				assert.Equal(t, tt.raw, perr.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.score, out.Score)
		})
	}
}

func TestDecodingString(t *testing.T) {
	assert.Equal(t, "strict", DecodedStrict.String())
	assert.Equal(t, "recovered", DecodedRecovered.String())
	assert.Equal(t, "none", Decoding(0).String())
}

func TestParseError_TruncatesOnRuneBoundary(t *testing.T) {
	raw := "x" + strings.Repeat("分", 60)
	_, err := Decode(raw, &scorePayload{})
	require.Error(t, err)

	msg := err.Error()
	assert.NotContains(t, msg, `\x`)
	assert.Contains(t, msg, "...")
}
