package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// NewTrackPlot creates an azimuth/elevation plot of a tracking run from three
// data sources:
// truth: true source directions
// meas:  observed (noisy) directions
// track: tracker position estimates
// Each matrix stores one direction per row as (azimuth, elevation) degrees.
// It returns error if either of the supplied data matrices is nil or has
// fewer than 2 columns.
func NewTrackPlot(truth, meas, track *mat.Dense) (*plot.Plot, error) {
	if truth == nil || meas == nil || track == nil {
		return nil, fmt.Errorf("invalid data supplied")
	}

	for _, m := range []*mat.Dense{truth, meas, track} {
		if _, c := m.Dims(); c < 2 {
			return nil, fmt.Errorf("invalid data dimensions")
		}
	}

	p := plot.New()

	p.Title.Text = "DoA tracking"
	p.X.Label.Text = "azimuth (deg)"
	p.Y.Label.Text = "elevation (deg)"

	truthScatter, err := plotter.NewScatter(makePoints(truth))
	if err != nil {
		return nil, err
	}
	truthScatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	truthScatter.Shape = draw.PyramidGlyph{}
	truthScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(truthScatter)
	p.Legend.Add("truth", truthScatter)

	measScatter, err := plotter.NewScatter(makePoints(meas))
	if err != nil {
		return nil, err
	}
	measScatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	measScatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(measScatter)
	p.Legend.Add("measurement", measScatter)

	trackScatter, err := plotter.NewScatter(makePoints(track))
	if err != nil {
		return nil, err
	}
	trackScatter.GlyphStyle.Color = color.RGBA{B: 255, A: 255}
	trackScatter.Shape = draw.CircleGlyph{}
	trackScatter.GlyphStyle.Radius = vg.Points(2)

	p.Add(trackScatter)
	p.Legend.Add("track", trackScatter)

	return p, nil
}

// AzElPoints converts a list of 3D directions to (azimuth, elevation) rows
// ready for plotting.
func AzElPoints(dirs []mat.Vector) *mat.Dense {
	if len(dirs) == 0 {
		return mat.NewDense(1, 2, nil)
	}

	m := mat.NewDense(len(dirs), 2, nil)
	for i, v := range dirs {
		az, el := AzEl(v)
		m.Set(i, 0, az)
		m.Set(i, 1, el)
	}

	return m
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()

	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
