// diag is a command-line sanity check: it computes access windows for a TLE
// file from a fixed viewer, then demonstrates a rectangle culling point.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/krenshaw2018/cesium/internal/access"
	"github.com/krenshaw2018/cesium/internal/geodesy"
	"github.com/krenshaw2018/cesium/internal/horizon"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		fmt.Println("usage: diag <tle-file>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Println("ERROR reading TLE file:", err)
		os.Exit(1)
	}

	entries, err := access.ParseTLE(bytes.NewReader(data), logger)
	if err != nil {
		fmt.Println("ERROR parsing TLE:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d TLE entries\n", len(entries))
	if len(entries) == 0 {
		os.Exit(1)
	}
	fmt.Printf("First entry: %s (NORAD %d) epoch %v\n", entries[0].Name, entries[0].NORADID, entries[0].Epoch)

	subset := entries
	if len(subset) > 5 {
		subset = subset[:5]
	}

	// Denver.
	viewer := geodesy.WGS84.CartographicToCartesian(geodesy.FromDegrees(-104.9903, 39.7392, 1609))

	now := time.Now().UTC()
	fmt.Printf("Window scan start: %v\n", now)

	predictor := access.NewPredictor(access.Config{}, logger)
	results, err := predictor.Predict(context.Background(), access.Request{
		Viewer:       viewer,
		Satellites:   subset,
		Start:        now,
		HorizonHours: 24,
		MaxWindows:   10,
	})
	if err != nil {
		fmt.Println("ERROR predicting windows:", err)
		os.Exit(1)
	}

	totalWindows := 0
	for _, sat := range results {
		if sat.Error != "" {
			fmt.Printf("  NORAD %d: ERROR %s\n", sat.NORADID, sat.Error)
			continue
		}
		fmt.Printf("  NORAD %d: %d windows\n", sat.NORADID, len(sat.Windows))
		totalWindows += len(sat.Windows)
		for j, win := range sat.Windows {
			fmt.Printf("    window %d: start=%v dur=%.0fs minRange=%.0fkm\n",
				j, win.StartTime.Format(time.RFC3339), win.DurationSeconds, win.MinRangeKm)
		}
	}
	fmt.Printf("\nTotal windows found: %d\n", totalWindows)

	// Culling point demo: a one-degree tile over Denver.
	occ, err := horizon.NewOccluderForCamera(geodesy.WGS84, viewer)
	if err != nil {
		fmt.Println("ERROR building occluder:", err)
		os.Exit(1)
	}
	rect := geodesy.RectangleFromDegrees(-105.5, 39.5, -104.5, 40.5)
	point, err := occ.ComputeHorizonCullingPointFromRectangle(rect)
	if err != nil {
		fmt.Println("ERROR computing culling point:", err)
		os.Exit(1)
	}
	fmt.Printf("Rectangle culling point (scaled space): (%.6f, %.6f, %.6f), visible from viewer: %v\n",
		point.X, point.Y, point.Z, occ.IsScaledSpacePointVisible(point))
}
