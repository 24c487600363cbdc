package client_test

import (
	"testing"

	"obligation_engine/internal/domain/client"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveTypeIDs_DirectOnly(t *testing.T) {
	co := &client.ClientObligation{ClientID: 1, TypeIDs: []int64{10, 20}}

	got := co.EffectiveTypeIDs(nil)

	assert.ElementsMatch(t, []int64{10, 20}, got)
}

func TestEffectiveTypeIDs_ProfileMembersUnionedIn(t *testing.T) {
	co := &client.ClientObligation{
		ClientID:   1,
		TypeIDs:    []int64{10},
		ProfileIDs: []int64{100},
	}
	members := map[int64][]int64{100: {20, 30}}

	got := co.EffectiveTypeIDs(members)

	assert.ElementsMatch(t, []int64{10, 20, 30}, got)
}

func TestEffectiveTypeIDs_DirectAndProfileOverlapAppearsOnce(t *testing.T) {
	co := &client.ClientObligation{
		ClientID:   1,
		TypeIDs:    []int64{10, 20},
		ProfileIDs: []int64{100},
	}
	members := map[int64][]int64{100: {20, 30}}

	got := co.EffectiveTypeIDs(members)

	assert.ElementsMatch(t, []int64{10, 20, 30}, got)
	assert.Len(t, got, 3)
}

func TestEffectiveTypeIDs_TypeReachableThroughTwoProfilesAppearsOnce(t *testing.T) {
	co := &client.ClientObligation{
		ClientID:   1,
		ProfileIDs: []int64{100, 200},
	}
	members := map[int64][]int64{
		100: {20, 30},
		200: {30, 40},
	}

	got := co.EffectiveTypeIDs(members)

	assert.ElementsMatch(t, []int64{20, 30, 40}, got)
}

func TestEffectiveTypeIDs_UnknownProfileIgnored(t *testing.T) {
	co := &client.ClientObligation{ClientID: 1, ProfileIDs: []int64{999}}

	got := co.EffectiveTypeIDs(map[int64][]int64{})

	assert.Empty(t, got)
}
