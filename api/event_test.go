package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhaven/agentcore/wire"
)

// Property 4 in §8: a request's response defaults to one Success result
// tagged with the request's first tag and no triggered rules.
func TestInitResponseDefaultsToSuccess(t *testing.T) {
	var resp wire.Response
	InitResponse(&resp, wire.Request{RequestToken: "tok", Tags: []string{"dlp", "malware"}})

	assert.Equal(t, "tok", resp.RequestToken)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "dlp", resp.Results[0].Tag)
	assert.Equal(t, wire.StatusSuccess, resp.Results[0].Status)
	assert.Empty(t, resp.Results[0].TriggeredRules)
}

func TestInitResponseWithNoTags(t *testing.T) {
	var resp wire.Response
	InitResponse(&resp, wire.Request{RequestToken: "tok"})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "", resp.Results[0].Tag)
}

func TestSetVerdictCreatesResultAndRule(t *testing.T) {
	var resp wire.Response
	SetVerdict(&resp, wire.ActionWarn)

	require.Len(t, resp.Results, 1)
	require.Len(t, resp.Results[0].TriggeredRules, 1)
	assert.Equal(t, wire.ActionWarn, resp.Results[0].TriggeredRules[0].Action)
}

func TestSetVerdictOverwritesExistingRule(t *testing.T) {
	resp := wire.Response{
		RequestToken: "tok",
		Results: []wire.Result{{
			Tag:            "dlp",
			Status:         wire.StatusSuccess,
			TriggeredRules: []wire.TriggeredRule{{Action: wire.ActionWarn, RuleName: "r1"}},
		}},
	}
	SetVerdict(&resp, wire.ActionBlock)

	require.Len(t, resp.Results[0].TriggeredRules, 1)
	assert.Equal(t, wire.ActionBlock, resp.Results[0].TriggeredRules[0].Action)
	assert.Equal(t, "r1", resp.Results[0].TriggeredRules[0].RuleName, "overwriting the action must not disturb an existing rule name")
}

func TestSetVerdictToBlock(t *testing.T) {
	var resp wire.Response
	SetVerdictToBlock(&resp)
	assert.Equal(t, wire.ActionBlock, resp.Results[0].TriggeredRules[0].Action)
}
