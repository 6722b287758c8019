package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelCheckUnmarshalOnlyLiteralTrueIsMet(t *testing.T) {
	var groups []LevelCheckGroup
	raw := `[{"level":1,"name":"Novice","checks":[
		{"characteristic":"a","polarity":"positive","met":true,"evidence":["q1"],"reason":"r"},
		{"characteristic":"b","polarity":"limitation","met":"true","evidence":"single quote","reason":"r"},
		{"characteristic":"c","polarity":"positive","met":1,"evidence":null,"reason":"r"}
	]},{"level":"2","name":"Developing","checks":[]},{"level":3.0,"name":"Proficient"}]`

	require.NoError(t, json.Unmarshal([]byte(raw), &groups))
	require.Len(t, groups, 3)

	checks := groups[0].Checks
	assert.True(t, checks[0].Met)
	assert.False(t, checks[1].Met)
	assert.False(t, checks[2].Met)
	assert.Equal(t, []string{"single quote"}, checks[1].Evidence)
	assert.Equal(t, []string{}, checks[2].Evidence)
	assert.Equal(t, PolarityLimitation, checks[1].Polarity)

	assert.Equal(t, 2, groups[1].Level)
	assert.Equal(t, 3, groups[2].Level)
	assert.NotNil(t, groups[2].Checks)
}

func TestLevelCheckGroupRejectsBadLevel(t *testing.T) {
	var g LevelCheckGroup
	assert.Error(t, json.Unmarshal([]byte(`{"level":"high","checks":[]}`), &g))
	assert.Error(t, json.Unmarshal([]byte(`{"level":{},"checks":[]}`), &g))
}

func TestAssessmentRoundTrip(t *testing.T) {
	a := Assessment{
		Skill:            "Active listening",
		Rating:           3,
		Strengths:        []string{"Paraphrased the buyer"},
		Improvements:     []Improvement{{Point: "Probe deeper", Example: ImprovementExample{InsteadOf: "OK.", TryThis: "What makes that hard?"}}},
		CoachingTips:     []string{"Pause after questions"},
		ImprovementTitle: "Areas for Improvement",
		LevelChecks: []LevelCheckGroup{{Level: 1, Name: "Novice", Checks: []LevelCheck{
			{Characteristic: "Interrupts", Polarity: PolarityLimitation, Met: true, Evidence: []string{}, Reason: "never did"},
		}}},
	}

	first, err := json.Marshal(a)
	require.NoError(t, err)

	var back Assessment
	require.NoError(t, json.Unmarshal(first, &back))
	second, err := json.Marshal(back)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Equal(t, a, back)
}

func TestApplyCoachingFillsEmptyLists(t *testing.T) {
	a := Assessment{Skill: "x", Rating: 2}
	a.ApplyCoaching(Coaching{})

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"skill":"x","rating":2,"strengths":[],"improvements":[],"coaching_tips":[],"level_checks":[]}`, string(out))
}

func TestAssessmentKeepsEmptyLevelChecks(t *testing.T) {
	a := Assessment{Skill: "x", Rating: 1, LevelChecks: []LevelCheckGroup{}}
	a.ApplyCoaching(Coaching{})

	first, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(first), `"level_checks":[]`)

	var back Assessment
	require.NoError(t, json.Unmarshal(first, &back))
	assert.NotNil(t, back.LevelChecks)
	assert.Empty(t, back.LevelChecks)

	second, err := json.Marshal(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}
