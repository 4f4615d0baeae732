// Command delayprofile scans a raw I/Q capture for multipath structure.
//
// It correlates the reference pattern against every candidate delay in the
// search window, averages the normalized magnitudes over all symbols in the
// capture, and renders the resulting delay profile as an interactive HTML
// chart (and optionally a static PNG). The peaks in the profile are the
// delays worth seeding the finger bank with.
//
// Usage:
//
//	delayprofile -capture rx.iq -pattern-length 64 -window 256 -out profile.html
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/rake.receiver/internal/iq"
	"github.com/banshee-data/rake.receiver/internal/rake"
)

var (
	capturePath   = flag.String("capture", "", "Path to the raw I/Q capture file (required)")
	patternLength = flag.Int("pattern-length", 64, "Reference pattern length in samples")
	window        = flag.Int("window", 256, "Deepest candidate delay to scan")
	topN          = flag.Int("top", 5, "Number of strongest delays to report")
	htmlOut       = flag.String("out", "delay_profile.html", "Output HTML chart path")
	pngOut        = flag.String("png", "", "Optional output PNG path")
)

func main() {
	flag.Parse()

	if *capturePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *patternLength < 1 || *window < 1 {
		log.Fatal("pattern-length and window must be positive")
	}

	samples, err := iq.ReadAllSamples(*capturePath)
	if err != nil {
		log.Fatalf("Failed to load capture: %v", err)
	}
	span := *window + *patternLength
	if len(samples) < span {
		log.Fatalf("Capture too short: %d samples, need at least %d", len(samples), span)
	}

	profile := scanProfile(samples, *patternLength, *window)

	mean := stat.Mean(profile, nil)
	stddev := stat.StdDev(profile, nil)
	fmt.Printf("Scanned %d delays over %d samples\n", len(profile), len(samples))
	fmt.Printf("Noise floor: mean=%.4f stddev=%.4f\n", mean, stddev)

	for i, peak := range topPeaks(profile, *topN) {
		fmt.Printf("  #%d delay=%d magnitude=%.4f\n", i+1, peak.delay, peak.mag)
	}

	if err := renderHTML(profile, *htmlOut); err != nil {
		log.Fatalf("Failed to render HTML chart: %v", err)
	}
	fmt.Printf("Wrote %s\n", *htmlOut)

	if *pngOut != "" {
		if err := renderPNG(profile, *pngOut); err != nil {
			log.Fatalf("Failed to render PNG: %v", err)
		}
		fmt.Printf("Wrote %s\n", *pngOut)
	}
}

// scanProfile averages the normalized correlation magnitude at every
// candidate delay across all full symbols in the capture.
func scanProfile(samples []complex128, patternLength, window int) []float64 {
	pattern := make([]complex128, patternLength)
	for i := range pattern {
		pattern[i] = 1
	}

	profile := make([]float64, window+1)
	span := window + patternLength
	symbols := 0

	for start := 0; start+span <= len(samples); start += patternLength {
		block := samples[start : start+span]
		for delay := 0; delay <= window; delay++ {
			corr := rake.Correlate(block, delay, pattern)
			profile[delay] += rake.NormalizedMagnitude(corr, patternLength)
		}
		symbols++
	}
	if symbols > 0 {
		for i := range profile {
			profile[i] /= float64(symbols)
		}
	}
	return profile
}

type peak struct {
	delay int
	mag   float64
}

func topPeaks(profile []float64, n int) []peak {
	peaks := make([]peak, len(profile))
	for i, mag := range profile {
		peaks[i] = peak{delay: i, mag: mag}
	}
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].mag != peaks[j].mag {
			return peaks[i].mag > peaks[j].mag
		}
		return peaks[i].delay < peaks[j].delay
	})
	if n > len(peaks) {
		n = len(peaks)
	}
	return peaks[:n]
}

func renderHTML(profile []float64, path string) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Delay Profile",
			Subtitle: "Mean normalized correlation magnitude per candidate delay",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Delay (samples)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Magnitude"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	xAxis := make([]int, len(profile))
	data := make([]opts.LineData, len(profile))
	for i, mag := range profile {
		xAxis[i] = i
		data[i] = opts.LineData{Value: mag}
	}
	line.SetXAxis(xAxis).AddSeries("magnitude", data)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}

func renderPNG(profile []float64, path string) error {
	p := plot.New()
	p.Title.Text = "Delay Profile"
	p.X.Label.Text = "Delay (samples)"
	p.Y.Label.Text = "Magnitude"

	pts := make(plotter.XYs, len(profile))
	for i, mag := range profile {
		pts[i].X = float64(i)
		pts[i].Y = mag
	}

	linePlot, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(linePlot)

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
