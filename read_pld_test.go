package pbs

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePLD = `Beam,PAT001,Doe^John,JD,John,Plan A,Field 1,100.0,100.0,2
Layer,2.0,70.0,60.0,3,1
Element,-5.0,0.0,20.0
Element,0.0,0.0,40.0
Element,5.0,0.0,0.0
Layer,1.8,100.0,40.0,1
Element,2.5,-2.5,40.0
`

func writePLD(t *testing.T, content string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "plan.pld")
	require.NoError(t, os.WriteFile(name, []byte(content), 0644))
	return name
}

func TestReadPlanPLD(t *testing.T) {
	plan, err := ReadPlanPLD(writePLD(t, samplePLD))
	require.NoError(t, err)

	assert.Equal(t, "PAT001", plan.PatientID)
	assert.Equal(t, "Doe^John", plan.PatientName)
	assert.Equal(t, "Plan A", plan.Label)
	assert.Equal(t, "Field 1", plan.BeamName)
	assert.NotEmpty(t, plan.UID)
	require.Equal(t, 1, plan.NFields())

	field := plan.Fields[0]
	assert.Equal(t, 100.0, field.CumMU)
	require.Equal(t, 2, field.NLayers())

	first := field.Layers[0]
	assert.Equal(t, 70.0, first.EnergyNominal)
	assert.Equal(t, 1, first.Repaint)
	// the zero-MU third spot is dropped at read
	require.Equal(t, 2, first.NSpots())
	assert.Equal(t, -5.0, first.Spots[0].X)
	assert.Equal(t, 20.0, first.Spots[0].MU)
	// nominal spot size comes from the layer record, sigma to FWHM
	assert.InDelta(t, 2.0*Sigma2FWHM, first.Spots[0].SizeX, 1e-9)

	second := field.Layers[1]
	assert.Equal(t, 100.0, second.EnergyNominal)
	assert.Equal(t, 0, second.Repaint)
	require.Equal(t, 1, second.NSpots())
	assert.Equal(t, 2.5, second.Spots[0].X)
	assert.Equal(t, -2.5, second.Spots[0].Y)
}

func TestReadPlanPLDTinyValuesClamped(t *testing.T) {
	pld := "Beam,P,N,I,F,L,B,10.0,10.0,1\n" +
		"Layer,2.0,70.0,10.0,1\n" +
		"Element,1e-12,-1e-13,10.0\n"
	plan, err := ReadPlanPLD(writePLD(t, pld))
	require.NoError(t, err)
	spot := plan.Fields[0].Layers[0].Spots[0]
	assert.Zero(t, spot.X)
	assert.Zero(t, spot.Y)
	assert.Equal(t, 10.0, spot.MU)
}

func TestReadPlanPLDMalformed(t *testing.T) {
	for name, content := range map[string]string{
		"empty":         "",
		"short header":  "Beam,PAT001\n",
		"bad layer":     "Beam,P,N,I,F,L,B,10.0,10.0,1\nLayer,xx,70.0,10.0,1\n",
		"orphan spot":   "Beam,P,N,I,F,L,B,10.0,10.0,1\nElement,0.0,0.0,1.0\n",
		"bad spot":      "Beam,P,N,I,F,L,B,10.0,10.0,1\nLayer,2.0,70.0,10.0,1\nElement,a,b,c\n",
		"header number": "Beam,P,N,I,F,L,B,ten,10.0,1\n",
	} {
		_, err := ReadPlanPLD(writePLD(t, content))
		assert.Error(t, err, name)
	}
}

func TestReadPlanDispatch(t *testing.T) {
	name := writePLD(t, samplePLD)
	plan, err := ReadPlan(name)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.NFields())

	// a directory containing one plan file works too
	plan, err = ReadPlan(filepath.Dir(name))
	require.NoError(t, err)
	assert.Equal(t, "PAT001", plan.PatientID)
}

func TestReadPlanUnsupported(t *testing.T) {
	name := filepath.Join(t.TempDir(), "plan.xyz")
	require.NoError(t, os.WriteFile(name, []byte("data"), 0644))
	_, err := ReadPlan(name)
	require.Error(t, err)
	assert.Equal(t, ErrUnsupportedFormat, err.(Error).Message())
}

func TestReadPlanMissing(t *testing.T) {
	_, err := ReadPlan(filepath.Join(t.TempDir(), "absent.pld"))
	assert.Error(t, err)
}

func TestReadPlanEmptyDir(t *testing.T) {
	_, err := ReadPlan(t.TempDir())
	assert.Error(t, err)
}

func TestPLDRoundTripThroughResolver(t *testing.T) {
	plan, err := ReadPlanPLD(writePLD(t, samplePLD))
	require.NoError(t, err)
	table := testTable(t)
	require.NoError(t, plan.ApplyBeamModel(table))
	sources, err := ExportField(plan.Fields[0], table, 500)
	require.NoError(t, err)
	require.Len(t, sources, 3)
	total := 0.0
	for _, s := range sources {
		total += s.Protons
	}
	want := 60*1.1e8 + 40*1.3e8
	assert.True(t, math.Abs(total-want) < 1, "total protons %v, want %v", total, want)
}
