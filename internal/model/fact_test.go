package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactType_Valid(t *testing.T) {
	for _, ft := range FactTypes {
		assert.True(t, ft.Valid(), "expected %s to be valid", ft)
	}
	assert.False(t, FactType("UNKNOWN").Valid())
	assert.False(t, FactType("preference").Valid(), "fact types are case sensitive")
	assert.False(t, FactType("").Valid())
}

func TestFactType_DefaultPolarity(t *testing.T) {
	tests := []struct {
		factType FactType
		want     int
	}{
		{FactPreference, 1},
		{FactDislike, -1},
		{FactRisk, -1},
		{FactConstraint, 0},
		{FactDate, 0},
		{FactRoleOrOrg, 0},
		{FactInteraction, 0},
		{FactContext, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.factType.DefaultPolarity(), "polarity for %s", tt.factType)
	}
}
