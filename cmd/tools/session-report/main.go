// session-report renders a detection-session report from the session
// database: a markers-per-tick line chart (HTML) plus the stored JSON
// summary on stdout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/marker.anchor/internal/db"
	storage "github.com/banshee-data/marker.anchor/internal/marker/storage/sqlite"
)

var (
	dbFile    = flag.String("db", "marker_sessions.db", "Session database path")
	sessionID = flag.String("session", "", "Session id (default: latest)")
	outFile   = flag.String("out", "session_report.html", "Chart output file")
)

func main() {
	flag.Parse()

	sessionDB, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open session db: %v", err)
	}
	defer sessionDB.Close()

	store := storage.NewSessionStore(sessionDB.DB)

	session, err := resolveSession(store, *sessionID)
	if err != nil {
		log.Fatalf("failed to resolve session: %v", err)
	}

	ticks, err := store.TicksForSession(session.SessionID)
	if err != nil {
		log.Fatalf("failed to load tick stats: %v", err)
	}
	if len(ticks) == 0 {
		log.Fatalf("session %s has no recorded ticks", session.SessionID)
	}

	if err := renderChart(session, ticks, *outFile); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	log.Printf("chart written to %s (%d ticks)", *outFile, len(ticks))

	printSummary(session)
}

func resolveSession(store *storage.SessionStore, id string) (*storage.Session, error) {
	if id != "" {
		return store.GetSession(id)
	}
	session, err := store.LatestSession()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("no sessions in database")
	}
	return session, nil
}

func renderChart(session *storage.Session, ticks []*storage.TickStat, path string) error {
	xAxis := make([]string, 0, len(ticks))
	markerSeries := make([]opts.LineData, 0, len(ticks))
	anchorSeries := make([]opts.LineData, 0, len(ticks))
	poseSeries := make([]opts.LineData, 0, len(ticks))
	for _, t := range ticks {
		xAxis = append(xAxis, fmt.Sprintf("%d", t.Tick))
		markerSeries = append(markerSeries, opts.LineData{Value: t.MarkerCount})
		anchorSeries = append(anchorSeries, opts.LineData{Value: t.AnchorCount})
		poseSeries = append(poseSeries, opts.LineData{Value: t.PoseCount})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Detection Session", Width: "1100px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Markers per Tick",
			Subtitle: fmt.Sprintf("session=%s dictionary=%s frame=%dx%d", session.SessionID, session.Dictionary, session.FrameWidth, session.FrameHeight),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "tick"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)
	line.SetXAxis(xAxis).
		AddSeries("markers", markerSeries).
		AddSeries("anchors", anchorSeries).
		AddSeries("poses", poseSeries)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}

func printSummary(session *storage.Session) {
	out := map[string]interface{}{
		"session_id":  session.SessionID,
		"dictionary":  session.Dictionary,
		"frame_width": session.FrameWidth,
		"started_at":  session.StartedAt,
	}
	if session.FinishedAt != nil {
		out["finished_at"] = *session.FinishedAt
	}
	if len(session.SummaryJSON) > 0 {
		out["summary"] = json.RawMessage(session.SummaryJSON)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("failed to encode summary: %v", err)
	}
}
