package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertView_FormatsTimestampInUTC(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	url := "/image/alert_1.jpg"
	a := Alert{
		ID:         "abc",
		AlertText:  "Single woman at night",
		MenCount:   0,
		WomenCount: 1,
		Timestamp:  time.Date(2025, 3, 1, 23, 45, 10, 500, ist),
		ImageURL:   &url,
	}

	v := a.View()
	assert.Equal(t, "2025-03-01 18:15:10", v.Timestamp)
	assert.Equal(t, &url, v.ImageURL)
	assert.Equal(t, 1, v.WomenCount)
}

func TestAlertView_NullImageURL(t *testing.T) {
	v := Alert{AlertText: "x", Timestamp: time.Unix(0, 0)}.View()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	val, present := decoded["image_url"]
	assert.True(t, present)
	assert.Nil(t, val)
	assert.Equal(t, "1970-01-01 00:00:00", decoded["timestamp"])
}
