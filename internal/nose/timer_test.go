package nose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := Classifier{OKSeconds: 5, WarningSeconds: 60}

	tests := []struct {
		seconds  float64
		expected TimingClass
	}{
		{0.001, ClassOK},
		{5, ClassOK},
		{5.01, ClassWarning},
		{60, ClassWarning},
		{60.5, ClassError},
		{300, ClassError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, c.Classify(tt.seconds), "seconds=%v", tt.seconds)
	}
}

func TestParseOutput(t *testing.T) {
	output := `test_structure (chemistry.test.test_structure.TestStructure) ... ok
chemistry.test.test_structure.TestStructure.test_add: 0.0132s
chemistry.test.test_parsers.TestPDB.test_download: 12.8812s
chemistry.test.test_openmm.TestEnergy.test_full_system: 75.0000s
Ran 312 tests in 98.221s

OK
`

	c := Classifier{OKSeconds: 5, WarningSeconds: 60}
	report := c.ParseOutput(output)

	require.Equal(t, 3, report.Total())

	require.Len(t, report.OK, 1)
	assert.Equal(t, "chemistry.test.test_structure.TestStructure.test_add", report.OK[0].Name)
	assert.InDelta(t, 0.0132, report.OK[0].Seconds, 1e-9)

	require.Len(t, report.Warning, 1)
	assert.Equal(t, "chemistry.test.test_parsers.TestPDB.test_download", report.Warning[0].Name)

	require.Len(t, report.Error, 1)
	assert.Equal(t, "chemistry.test.test_openmm.TestEnergy.test_full_system", report.Error[0].Name)
	assert.Equal(t, ClassError, report.Error[0].Class)
}

func TestParseOutputIgnoresNoise(t *testing.T) {
	c := Classifier{OKSeconds: 5, WarningSeconds: 60}

	report := c.ParseOutput("no timings here\nRan 0 tests in 0.000s\n")
	assert.Equal(t, 0, report.Total())

	report = c.ParseOutput("")
	assert.Equal(t, 0, report.Total())
}

func TestArgs(t *testing.T) {
	c := Classifier{OKSeconds: 5, WarningSeconds: 60}
	assert.Equal(t,
		[]string{"--with-timer", "--timer-ok", "5", "--timer-warning", "60"},
		c.Args())
}
