package render

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/edb-dev/mdmovie/internal/traj"
)

// Drawing styles accepted in a Rep.
const (
	StyleBallStick = "ball+stick"
	StyleSpacefill = "spacefill"
	StyleLicorice  = "licorice"
)

const (
	atomScale     = 0.6 // shrink factor for ball-and-stick spheres
	licoriceScale = 0.25
	spacefillScale = 1.8
	bondCutoff    = 1.3 // bonded when closer than cutoff * sum of covalent radii
)

// sceneAtom styles one rendered atom. Index points into the trajectory's
// atom table so per-frame coordinates can be looked up directly.
type sceneAtom struct {
	Index  int
	Radius float64 // covalent radius scaled by style, in trajectory units
	Color  color.RGBA
}

// scene is the style-resolved geometry template for one view: which atoms
// are drawn, at what radius and color, and which atom pairs get bond
// cylinders. Per-frame positions come from the trajectory at render time.
type scene struct {
	Atoms []sceneAtom
	Bonds [][2]int // indices into Atoms
}

func buildScene(t *traj.Trajectory, opts Options) (*scene, error) {
	reps := opts.Reps
	if len(reps) == 0 {
		if opts.Selection != "" {
			reps = []Rep{{Style: StyleBallStick, Selection: opts.Selection}}
		} else {
			reps = []Rep{
				{Style: StyleBallStick, Selection: "protein"},
				{Style: StyleBallStick, Selection: "nucleic"},
			}
		}
	}

	sc := &scene{}
	seen := make(map[int]bool)
	for _, rep := range reps {
		style := rep.Style
		if style == "" {
			style = StyleBallStick
		}
		var radiusScale float64
		bonded := false
		switch style {
		case StyleBallStick:
			radiusScale, bonded = atomScale, true
		case StyleLicorice:
			radiusScale, bonded = licoriceScale, true
		case StyleSpacefill:
			radiusScale = spacefillScale
		default:
			return nil, fmt.Errorf("unknown representation style %q", style)
		}

		var override *color.RGBA
		if rep.Color != "" {
			c, err := parseHexColor(rep.Color)
			if err != nil {
				return nil, fmt.Errorf("representation color: %w", err)
			}
			override = &c
		}

		first := len(sc.Atoms)
		for i := 0; i < t.Len(); i++ {
			if seen[i] || !matchSelection(rep.Selection, t.Atom(i)) {
				continue
			}
			seen[i] = true
			c := elementColor(t.Atom(i).Symbol)
			if override != nil {
				c = *override
			}
			sc.Atoms = append(sc.Atoms, sceneAtom{
				Index:  i,
				Radius: covalentRadius(t.Atom(i).Symbol) * radiusScale,
				Color:  c,
			})
		}
		if bonded {
			sc.inferBonds(t, first)
		}
	}

	// XYZ inputs carry no residue names, so the protein+nucleic default can
	// match nothing. Fall back to drawing everything rather than a blank movie.
	if len(sc.Atoms) == 0 && len(opts.Reps) == 0 && opts.Selection == "" {
		all := opts
		all.Selection = "all"
		return buildScene(t, all)
	}
	return sc, nil
}

// inferBonds adds bond pairs among scene atoms from index first onward,
// using frame 0 distances against summed covalent radii.
func (sc *scene) inferBonds(t *traj.Trajectory, first int) {
	f := t.Frame(0)
	for a := first; a < len(sc.Atoms); a++ {
		for b := a + 1; b < len(sc.Atoms); b++ {
			i, j := sc.Atoms[a].Index, sc.Atoms[b].Index
			dx := f.At(i, 0) - f.At(j, 0)
			dy := f.At(i, 1) - f.At(j, 1)
			dz := f.At(i, 2) - f.At(j, 2)
			d2 := dx*dx + dy*dy + dz*dz
			max := bondCutoff * (covalentRadius(t.Atom(i).Symbol) + covalentRadius(t.Atom(j).Symbol))
			if d2 > 0 && d2 < max*max {
				sc.Bonds = append(sc.Bonds, [2]int{a, b})
			}
		}
	}
}

var proteinResidues = map[string]bool{
	"ALA": true, "ARG": true, "ASN": true, "ASP": true, "CYS": true,
	"GLN": true, "GLU": true, "GLY": true, "HIS": true, "HID": true,
	"HIE": true, "HIP": true, "ILE": true, "LEU": true, "LYS": true,
	"MET": true, "PHE": true, "PRO": true, "SER": true, "THR": true,
	"TRP": true, "TYR": true, "VAL": true,
}

var nucleicResidues = map[string]bool{
	"DA": true, "DC": true, "DG": true, "DT": true, "DU": true,
	"A": true, "C": true, "G": true, "U": true, "T": true,
	"RA": true, "RC": true, "RG": true, "RU": true,
}

// matchSelection decides whether an atom belongs to a selection. Supported
// selections: "", "all", "protein", "nucleic", an element symbol, or a
// residue name.
func matchSelection(sel string, a traj.Atom) bool {
	switch strings.ToLower(sel) {
	case "", "all":
		return true
	case "protein":
		return proteinResidues[strings.ToUpper(a.Residue)]
	case "nucleic":
		return nucleicResidues[strings.ToUpper(a.Residue)]
	default:
		return strings.EqualFold(sel, a.Symbol) || strings.EqualFold(sel, a.Residue)
	}
}

var covalentRadii = map[string]float64{
	"H": 0.25, "C": 0.70, "N": 0.65, "O": 0.60, "F": 0.50,
	"P": 1.00, "S": 1.00, "CL": 1.00, "BR": 1.15, "I": 1.40,
	"NA": 1.80, "K": 2.20, "MG": 1.50, "CA": 1.80, "FE": 1.40, "ZN": 1.35,
}

func covalentRadius(symbol string) float64 {
	if r, ok := covalentRadii[strings.ToUpper(symbol)]; ok {
		return r
	}
	return 0.70
}

var elementColors = map[string]color.RGBA{
	"H": {255, 255, 255, 255}, "C": {50, 50, 50, 255},
	"N": {80, 80, 255, 255}, "O": {255, 50, 50, 255},
	"F": {0, 255, 0, 255}, "P": {255, 165, 0, 255},
	"S": {255, 255, 0, 255}, "CL": {0, 255, 0, 255},
	"BR": {165, 42, 42, 255}, "I": {148, 0, 211, 255},
	"FE": {255, 140, 0, 255}, "ZN": {125, 125, 160, 255},
}

func elementColor(symbol string) color.RGBA {
	if c, ok := elementColors[strings.ToUpper(symbol)]; ok {
		return c
	}
	return color.RGBA{200, 100, 200, 255}
}

func parseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	return color.RGBA{r, g, b, 255}, nil
}
