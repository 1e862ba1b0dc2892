package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocialID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SocialID
		wantErr bool
	}{
		{name: "number", input: `42`, want: 42},
		{name: "numeric string", input: `"42"`, want: 42},
		{name: "null", input: `null`, want: 0},
		{name: "negative", input: `-7`, want: -7},
		{name: "fraction", input: `4.5`, wantErr: true},
		{name: "exponent", input: `1e3`, wantErr: true},
		{name: "word", input: `"abc"`, wantErr: true},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id SocialID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestSocialID_IsValid(t *testing.T) {
	assert.True(t, SocialID(1).IsValid())
	assert.False(t, SocialID(0).IsValid())
	assert.False(t, SocialID(-3).IsValid())
}

func TestSocialID_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		ID SocialID `json:"socialId"`
	}{ID: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"socialId":42}`, string(data))
}

func TestParseSocialID(t *testing.T) {
	id, err := ParseSocialID(" 43 ")
	require.NoError(t, err)
	assert.Equal(t, SocialID(43), id)

	id, err = ParseSocialID("")
	require.NoError(t, err)
	assert.Equal(t, SocialID(0), id)

	_, err = ParseSocialID("x43")
	assert.Error(t, err)
}
