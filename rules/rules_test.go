package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maanas1234/Celestia-Hackathon/detection"
)

func TestEvaluate(t *testing.T) {
	r := Default()
	tests := []struct {
		name     string
		men      int
		women    int
		hour     int
		wantText string
		wantOK   bool
	}{
		{"one woman two men afternoon", 2, 1, 14, DefaultMultipleMenText, true},
		{"one woman many men night", 5, 1, 22, DefaultMultipleMenText, true},
		{"one woman one man night", 1, 1, 20, DefaultNightText, true},
		{"one woman alone late", 0, 1, 23, DefaultNightText, true},
		{"one woman one man evening before threshold", 1, 1, 19, "", false},
		{"one woman alone morning", 0, 1, 8, "", false},
		{"no women", 3, 0, 23, "", false},
		{"two women", 3, 2, 23, "", false},
		{"empty scene", 0, 0, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := r.Evaluate(detection.FrameCounts{Men: tt.men, Women: tt.women}, tt.hour)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestEvaluate_Properties(t *testing.T) {
	r := Default()
	for men := 0; men <= 6; men++ {
		for women := 0; women <= 4; women++ {
			for hour := 0; hour < 24; hour++ {
				counts := detection.FrameCounts{Men: men, Women: women}
				text, ok := r.Evaluate(counts, hour)

				again, okAgain := r.Evaluate(counts, hour)
				assert.Equal(t, text, again, "deterministic")
				assert.Equal(t, ok, okAgain, "deterministic")

				switch {
				case women != 1:
					assert.False(t, ok, "men=%d women=%d hour=%d", men, women, hour)
				case men >= 2:
					assert.Equal(t, DefaultMultipleMenText, text, "multiple men wins regardless of hour")
				case hour >= 20:
					assert.Equal(t, DefaultNightText, text)
				default:
					assert.False(t, ok, "men=%d hour=%d", men, hour)
				}
			}
		}
	}
}

func TestEvaluate_ConfigurableThresholds(t *testing.T) {
	r := Rule{MinMen: 3, NightHour: 18, MultipleMenText: "crowd", NightText: "dusk"}

	text, ok := r.Evaluate(detection.FrameCounts{Men: 2, Women: 1}, 12)
	assert.False(t, ok)
	assert.Empty(t, text)

	text, ok = r.Evaluate(detection.FrameCounts{Men: 2, Women: 1}, 18)
	assert.True(t, ok)
	assert.Equal(t, "dusk", text)

	text, ok = r.Evaluate(detection.FrameCounts{Men: 3, Women: 1}, 2)
	assert.True(t, ok)
	assert.Equal(t, "crowd", text)
}

func TestWithDefaults(t *testing.T) {
	r := Rule{NightHour: 0}.WithDefaults()
	assert.Equal(t, DefaultMinMen, r.MinMen)
	assert.Equal(t, 0, r.NightHour)
	assert.Equal(t, DefaultMultipleMenText, r.MultipleMenText)
	assert.Equal(t, DefaultNightText, r.NightText)

	custom := Rule{MinMen: 4, NightHour: 21, MultipleMenText: "a", NightText: "b"}
	assert.Equal(t, custom, custom.WithDefaults())
}
