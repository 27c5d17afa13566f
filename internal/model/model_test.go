package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityType_IsShowLike(t *testing.T) {
	tests := []struct {
		typ  EntityType
		want bool
	}{
		{EntityShow, true},
		{EntityEntertainment, true},
		{EntityParade, true},
		{EntityFireworks, true},
		{EntityAttraction, false},
		{EntityRestaurant, false},
		{EntityType("UNKNOWN"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.IsShowLike())
		})
	}
}

func TestLiveEntity_StandbyWait(t *testing.T) {
	var e LiveEntity
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "e1",
		"name": "Space Mountain",
		"entityType": "ATTRACTION",
		"queue": {"STANDBY": {"waitTime": 45}, "SINGLE_RIDER": {}}
	}`), &e))

	wait, ok := e.StandbyWait()
	assert.True(t, ok)
	assert.Equal(t, 45, wait)

	e.Queue = map[string]Queue{QueueSingleRider: {}}
	_, ok = e.StandbyWait()
	assert.False(t, ok)

	e.Queue = nil
	_, ok = e.StandbyWait()
	assert.False(t, ok)
}

func TestEmptyBuckets_MarshalsAsArrays(t *testing.T) {
	data, err := json.Marshal(EmptyBuckets())
	require.NoError(t, err)
	assert.JSONEq(t, `{"attractions":[],"restaurants":[],"shows":[]}`, string(data))
}
