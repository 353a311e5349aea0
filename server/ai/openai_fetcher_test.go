package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseReplyJSON(t *testing.T) {
	reply, err := parseReplyJSON(`{"tone":"RIZZ","content":["hey"],"nickname":"Anna","dialogTitle":"Anna"}`)
	require.NoError(t, err)
	require.Equal(t, "RIZZ", reply.Tone)
	require.Equal(t, []string{"hey"}, reply.Content)
	require.Equal(t, "Anna", reply.DialogTitle)
}

func TestParseReplyJSONCodeFence(t *testing.T) {
	reply, err := parseReplyJSON("```json\n{\"tone\":\"FLIRT\",\"content\":[\"a\",\"b\"]}\n```")
	require.NoError(t, err)
	require.Equal(t, "FLIRT", reply.Tone)
	require.Len(t, reply.Content, 2)
}

func TestParseReplyJSONRejectsGarbage(t *testing.T) {
	_, err := parseReplyJSON("the model rambled instead of answering")
	require.Error(t, err)

	_, err = parseReplyJSON(`{"tone":"RIZZ","content":[]}`)
	require.Error(t, err)
}
