package beammodel

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

// two measured points, the reference scenario used across the module tests.
const sampleCSV = `# beam line calibration, measured at 500 mm upstream
nominal_energy,energy,espread,ppmu,sigx,sigy,sigxp,sigyp,covx,covy
70.0, 70.2, 0.7, 1.1e8, 3.0, 3.1, 0.010, 0.011, 0.0, 0.0
100.0, 100.3, 0.9, 1.5e8, 2.5, 2.6, 0.015, 0.016, 0.0, 0.0
`

func sampleTable(Te *testing.T) *Table {
	t, err := ReadFrom(strings.NewReader(sampleCSV), 500.0)
	if err != nil {
		Te.Fatal(err)
	}
	return t
}

func TestReadFrom(Te *testing.T) {
	t := sampleTable(Te)
	if t.Len() != 2 {
		Te.Fatalf("expected 2 rows, got %d", t.Len())
	}
	if t.ReferenceDistance() != 500.0 {
		Te.Errorf("reference distance: got %g", t.ReferenceDistance())
	}
	lo, hi := t.EnergyBounds()
	if lo != 70.0 || hi != 100.0 {
		Te.Errorf("bounds: got [%g, %g]", lo, hi)
	}
}

func TestLookupExact(Te *testing.T) {
	t := sampleTable(Te)
	row, err := t.Lookup(70.0)
	if err != nil {
		Te.Fatal(err)
	}
	want := Row{NominalEnergy: 70.0, Energy: 70.2, EnergySpread: 0.7,
		ProtonsPerMU: 1.1e8, SigmaX: 3.0, SigmaY: 3.1,
		SigmaXPrime: 0.010, SigmaYPrime: 0.011}
	if row != want {
		Te.Errorf("exact lookup altered the row: %+v", row)
	}
}

// TestLookupInterpolated asks for the midpoint energy and expects every
// column at the arithmetic middle of the bracketing rows.
func TestLookupInterpolated(Te *testing.T) {
	t := sampleTable(Te)
	row, err := t.Lookup(85.0)
	if err != nil {
		Te.Fatal(err)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"energy", row.Energy, 85.25},
		{"espread", row.EnergySpread, 0.8},
		{"ppmu", row.ProtonsPerMU, 1.3e8},
		{"sigx", row.SigmaX, 2.75},
		{"sigy", row.SigmaY, 2.85},
		{"sigxp", row.SigmaXPrime, 0.0125},
		{"sigyp", row.SigmaYPrime, 0.0135},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9*math.Max(1, math.Abs(c.want)) {
			Te.Errorf("%s: got %g, want %g", c.name, c.got, c.want)
		}
	}
	if row.NominalEnergy != 85.0 {
		Te.Errorf("nominal energy of the interpolated row: got %g", row.NominalEnergy)
	}
}

// TestLookupBetweenness checks that any interpolated value stays between the
// bracketing measurements.
func TestLookupBetweenness(Te *testing.T) {
	t := sampleTable(Te)
	a := t.Rows()[0]
	b := t.Rows()[1]
	for _, e := range []float64{70.001, 75, 80, 90, 99.999} {
		row, err := t.Lookup(e)
		if err != nil {
			Te.Fatal(err)
		}
		between := func(name string, lo, v, hi float64) {
			if lo > hi {
				lo, hi = hi, lo
			}
			eps := 1e-9 * (math.Abs(lo) + math.Abs(hi) + 1)
			if v < lo-eps || v > hi+eps {
				Te.Errorf("%s at %g MeV: %g outside [%g, %g]", name, e, v, lo, hi)
			}
		}
		between("sigx", a.SigmaX, row.SigmaX, b.SigmaX)
		between("sigxp", a.SigmaXPrime, row.SigmaXPrime, b.SigmaXPrime)
		between("energy", a.Energy, row.Energy, b.Energy)
		between("ppmu", a.ProtonsPerMU, row.ProtonsPerMU, b.ProtonsPerMU)
	}
}

func TestLookupOutOfRange(Te *testing.T) {
	t := sampleTable(Te)
	for _, e := range []float64{69.999, 0, -10, 100.001, 250} {
		_, err := t.Lookup(e)
		if err == nil {
			Te.Errorf("lookup at %g MeV should have failed", e)
			continue
		}
		berr, ok := err.(Error)
		if !ok {
			Te.Fatalf("unexpected error type %T", err)
		}
		if berr.Message() != ErrEnergyOutOfRange {
			Te.Errorf("unexpected message %q", berr.Message())
		}
		if !strings.Contains(err.Error(), "[70, 100]") {
			Te.Errorf("error should name the table bounds: %v", err)
		}
	}
}

func TestSingleRowTable(Te *testing.T) {
	t, err := New([]Row{{NominalEnergy: 100, Energy: 100.3, ProtonsPerMU: 1e8,
		SigmaX: 2.5, SigmaXPrime: 0.01}}, 500)
	if err != nil {
		Te.Fatal(err)
	}
	row, err := t.Lookup(100)
	if err != nil {
		Te.Fatal(err)
	}
	if row.SigmaX != 2.5 {
		Te.Errorf("single-row exact lookup: got sigx %g", row.SigmaX)
	}
	if _, err := t.Lookup(99.0); err == nil {
		Te.Error("single-row table must reject any other energy")
	}
}

func TestMalformedTables(Te *testing.T) {
	cases := map[string]string{
		"non-increasing": "100,100,1,1,1,1,1,1,0,0\n70,70,1,1,1,1,1,1,0,0\n",
		"repeated key":   "70,70,1,1,1,1,1,1,0,0\n70,70,1,1,1,1,1,1,0,0\n",
		"short row":      "70,70,1,1,1\n",
		"non-numeric":    "70,70,1,1,oops,1,1,1,0,0\n",
	}
	for name, csv := range cases {
		_, err := ReadFrom(strings.NewReader(csv), 500)
		if err == nil {
			Te.Errorf("%s: expected a malformed-table error", name)
			continue
		}
		if berr, ok := err.(Error); !ok || berr.Message() != ErrMalformedTable {
			Te.Errorf("%s: unexpected error %v", name, err)
		}
	}
}

func TestEmptyTable(Te *testing.T) {
	for name, csv := range map[string]string{
		"empty":        "",
		"only comment": "# nothing here\n",
		"only header":  "nominal,e,es,ppmu,sx,sy,sxp,syp,cx,cy\n",
	} {
		_, err := ReadFrom(strings.NewReader(csv), 500)
		if err == nil {
			Te.Errorf("%s: expected an empty-table error", name)
			continue
		}
		if berr, ok := err.(Error); !ok || berr.Message() != ErrEmptyTable {
			Te.Errorf("%s: unexpected error %v", name, err)
		}
	}
}

// TestReadZstd archives the sample table with zstd (the way measured tables
// are stored) and reads it back through Read.
func TestReadZstd(Te *testing.T) {
	dir := Te.TempDir()
	name := filepath.Join(dir, "model.csv.zst")
	f, err := os.Create(name)
	if err != nil {
		Te.Fatal(err)
	}
	w, err := zstd.NewWriter(f)
	if err != nil {
		Te.Fatal(err)
	}
	if _, err := w.Write([]byte(sampleCSV)); err != nil {
		Te.Fatal(err)
	}
	if err := w.Close(); err != nil {
		Te.Fatal(err)
	}
	if err := f.Close(); err != nil {
		Te.Fatal(err)
	}
	t, err := Read(name, 500)
	if err != nil {
		Te.Fatal(err)
	}
	if t.Len() != 2 {
		Te.Errorf("zstd read: got %d rows", t.Len())
	}
	row, err := t.Lookup(85.0)
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(row.SigmaX-2.75) > 1e-9 {
		Te.Errorf("zstd read lookup: got sigx %g", row.SigmaX)
	}
}

func TestReadMissingFile(Te *testing.T) {
	_, err := Read(filepath.Join(Te.TempDir(), "nope.csv"), 500)
	if err == nil {
		Te.Fatal("expected an error for a missing resource")
	}
	if berr, ok := err.(Error); !ok || berr.FileName() == "" {
		Te.Errorf("error should carry the file name: %v", err)
	}
}
