package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestEndDateKeepsTimeOfDay(t *testing.T) {
	end := time.Date(2026, 11, 15, 23, 0, 0, 0, time.FixedZone("HST", -10*3600))
	meta := Metadata{EndDate: Time(end), DaysUntil: Int(31)}

	raw, err := json.Marshal(meta.JSONMap())
	require.NoError(t, err)
	var stored datatypes.JSONMap
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "2026-11-16T09:00:00Z", stored[MetaEndDate])

	back := MetadataFromJSONMap(stored)
	require.NotNil(t, back.EndDate)
	assert.True(t, end.Equal(*back.EndDate))
	require.NotNil(t, back.DaysUntil)
	assert.Equal(t, 31, *back.DaysUntil)
}

func TestEndDateAcceptsBareDate(t *testing.T) {
	back := MetadataFromJSONMap(datatypes.JSONMap{MetaEndDate: "2025-03-13"})
	require.NotNil(t, back.EndDate)
	assert.Equal(t, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), *back.EndDate)

	assert.Nil(t, MetadataFromJSONMap(datatypes.JSONMap{MetaEndDate: "soon"}).EndDate)
}

func TestParseSeverity(t *testing.T) {
	got, err := ParseSeverity(" Critical ")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, got)

	_, err = ParseSeverity("urgent")
	assert.ErrorIs(t, err, ErrInvalidSeverity)
}
