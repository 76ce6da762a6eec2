package beammodel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/interp"
)

// ncols is the number of columns in a beam model resource: the nominal energy
// key plus nine dependent parameters.
const ncols = 10

// Row is one measured calibration point of a beam line. Sizes are 1-sigma
// values in mm, divergences in rad, energies in MeV.
type Row struct {
	NominalEnergy float64
	Energy        float64 // realized energy for this nominal setting
	EnergySpread  float64
	ProtonsPerMU  float64
	SigmaX        float64
	SigmaY        float64
	SigmaXPrime   float64
	SigmaYPrime   float64
	CovX          float64
	CovY          float64
}

// dependent returns the nine non-key columns in resource order.
func (r Row) dependent() [ncols - 1]float64 {
	return [ncols - 1]float64{r.Energy, r.EnergySpread, r.ProtonsPerMU,
		r.SigmaX, r.SigmaY, r.SigmaXPrime, r.SigmaYPrime, r.CovX, r.CovY}
}

func rowFrom(e float64, v [ncols - 1]float64) Row {
	return Row{NominalEnergy: e, Energy: v[0], EnergySpread: v[1],
		ProtonsPerMU: v[2], SigmaX: v[3], SigmaY: v[4],
		SigmaXPrime: v[5], SigmaYPrime: v[6], CovX: v[7], CovY: v[8]}
}

// Table is an immutable, interpolable beam model. It is built once, by New or
// one of the Read functions, and is safe for concurrent lookups afterwards.
type Table struct {
	rows        []Row
	energies    []float64 // lookup keys, strictly increasing
	refDistance float64   // mm upstream of isocenter (isocenter = 0)
	preds       []interp.PiecewiseLinear
}

// New builds a Table from measured rows and the reference distance at which
// the rows are valid (mm upstream of isocenter). The rows must be non-empty
// and strictly increasing in nominal energy.
func New(rows []Row, refDistance float64) (*Table, error) {
	if len(rows) == 0 {
		return nil, Error{ErrEmptyTable, "", "", nil, true}
	}
	t := new(Table)
	t.rows = make([]Row, len(rows))
	copy(t.rows, rows)
	t.refDistance = refDistance
	t.energies = make([]float64, len(rows))
	for i, r := range rows {
		if i > 0 && r.NominalEnergy <= t.energies[i-1] {
			return nil, Error{ErrMalformedTable,
				fmt.Sprintf("nominal energies not strictly increasing at row %d (%g MeV after %g MeV)",
					i+1, r.NominalEnergy, t.energies[i-1]), "", []string{"New"}, true}
		}
		t.energies[i] = r.NominalEnergy
	}
	// A single-row table answers only exact-match lookups; piecewise-linear
	// predictors need at least two points.
	if len(rows) >= 2 {
		t.preds = make([]interp.PiecewiseLinear, ncols-1)
		cols := make([][]float64, ncols-1)
		for j := range cols {
			cols[j] = make([]float64, len(rows))
		}
		for i, r := range rows {
			for j, v := range r.dependent() {
				cols[j][i] = v
			}
		}
		for j := range t.preds {
			if err := t.preds[j].Fit(t.energies, cols[j]); err != nil {
				return nil, Error{ErrMalformedTable, err.Error(), "", []string{"New"}, true}
			}
		}
	}
	return t, nil
}

// ReadFrom parses a beam model table from r. See the package documentation
// for the resource format.
func ReadFrom(r io.Reader, refDistance float64) (*Table, error) {
	var rows []Row
	scanner := bufio.NewScanner(r)
	nline := 0
	ncontent := 0
	for scanner.Scan() {
		nline++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ncontent++
		fields := splitRow(line)
		if _, err := strconv.ParseFloat(fields[0], 64); err != nil && ncontent == 1 {
			continue // column header line
		}
		if len(fields) != ncols {
			return nil, Error{ErrMalformedTable,
				fmt.Sprintf("line %d has %d columns, expected %d", nline, len(fields), ncols),
				"", []string{"ReadFrom"}, true}
		}
		var vals [ncols]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, Error{ErrMalformedTable,
					fmt.Sprintf("line %d column %d: %q is not a number", nline, i+1, f),
					"", []string{"ReadFrom"}, true}
			}
			vals[i] = v
		}
		var dep [ncols - 1]float64
		copy(dep[:], vals[1:])
		rows = append(rows, rowFrom(vals[0], dep))
	}
	if err := scanner.Err(); err != nil {
		return nil, Error{ErrMalformedTable, err.Error(), "", []string{"ReadFrom"}, true}
	}
	t, err := New(rows, refDistance)
	if err != nil {
		return nil, errDecorate(err, "ReadFrom")
	}
	return t, nil
}

// Read opens a beam model resource and parses it. Resources ending in .zst
// are decompressed on the fly, the way measured tables are archived.
func Read(name string, refDistance float64) (*Table, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{ErrMalformedTable, err.Error(), name, []string{"Read"}, true}
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(name), ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, Error{ErrMalformedTable, err.Error(), name, []string{"Read"}, true}
		}
		defer zr.Close()
		r = zr
	}
	t, err := ReadFrom(r, refDistance)
	if err != nil {
		if e, ok := err.(Error); ok {
			e.filename = name
			e.Decorate("Read")
			return nil, e
		}
		return nil, err
	}
	return t, nil
}

func splitRow(line string) []string {
	var fields []string
	if strings.Contains(line, ",") {
		fields = strings.Split(line, ",")
	} else {
		fields = strings.Fields(line)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// Lookup returns the calibration parameters for an arbitrary nominal energy.
// An energy matching a measured row returns that row unmodified. An energy
// strictly between two adjacent rows returns every dependent column
// piecewise-linearly interpolated between them. An energy outside the
// measured range fails; the beam model is never extrapolated.
func (t *Table) Lookup(energy float64) (Row, error) {
	lo, hi := t.EnergyBounds()
	if energy < lo || energy > hi {
		return Row{}, Error{ErrEnergyOutOfRange,
			fmt.Sprintf("%g MeV outside the measured range [%g, %g] MeV", energy, lo, hi),
			"", []string{"Lookup"}, true}
	}
	i := sort.SearchFloat64s(t.energies, energy)
	if i < len(t.energies) && t.energies[i] == energy {
		return t.rows[i], nil
	}
	var dep [ncols - 1]float64
	for j := range t.preds {
		dep[j] = t.preds[j].Predict(energy)
	}
	return rowFrom(energy, dep), nil
}

// Len returns the number of measured rows.
func (t *Table) Len() int { return len(t.rows) }

// ReferenceDistance returns the plane at which all rows of the table are
// valid, in mm upstream of the isocenter.
func (t *Table) ReferenceDistance() float64 { return t.refDistance }

// EnergyBounds returns the lowest and highest measured nominal energy.
func (t *Table) EnergyBounds() (min, max float64) {
	return t.energies[0], t.energies[len(t.energies)-1]
}

// Rows returns a copy of the measured rows, in energy order.
func (t *Table) Rows() []Row {
	r := make([]Row, len(t.rows))
	copy(r, t.rows)
	return r
}
