package core

// palette is the fixed trace color cycle. Colors repeat when more series are
// selected than the palette holds.
var palette = []string{
	"#1f77b4", // blue
	"#ff7f0e", // orange
	"#2ca02c", // green
	"#d62728", // red
	"#9467bd", // purple
	"#8c564b", // brown
	"#e377c2", // pink
	"#7f7f7f", // gray
	"#bcbd22", // yellow-green
}

// ColorFor returns the trace color for the i-th selected series.
func ColorFor(i int) string {
	if i < 0 {
		i = 0
	}
	return palette[i%len(palette)]
}
