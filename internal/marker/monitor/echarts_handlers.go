package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/marker.anchor/internal/httputil"
)

// handleMarkerChart renders a quick scatter plot (HTML) of the latest
// tick's marker centers. Debugging-only endpoint to eyeball detections
// without a UI overlay.
func (ws *WebServer) handleMarkerChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	markers := ws.pipeline.LatestMarkers()
	width, height := ws.pipeline.FrameSize()
	if width == 0 || height == 0 {
		httputil.NotFound(w, "no calibrated frame yet")
		return
	}

	data := make([]opts.ScatterData, 0, len(markers))
	for _, m := range markers {
		// Flip Y so the chart matches image orientation.
		data = append(data, opts.ScatterData{
			Name:  fmt.Sprintf("id=%d", m.ID),
			Value: []interface{}{m.Center.X, float64(height) - m.Center.Y, m.ID},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Marker Centers", Theme: "dark", Width: "900px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Detected Marker Centers", Subtitle: fmt.Sprintf("frame=%dx%d markers=%d", width, height, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: width, Name: "X (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: height, Name: "Y (px)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("markers", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
