package client

import "github.com/sourcegraph/conc/iter"

// Outcome is the result of processing one selected file.
type Outcome struct {
	Image *PendingImage
	Err   error
}

type Pipeline struct {
	compressor *Compressor
}

func NewPipeline(compressor *Compressor) *Pipeline {
	return &Pipeline{compressor: compressor}
}

// Process compresses all files concurrently and returns one outcome per file
// in input order. A failing file does not affect the others.
func (p *Pipeline) Process(files []*PendingImage) []Outcome {
	return iter.Map(files, func(f **PendingImage) Outcome {
		img, err := p.compressor.Compress(*f)
		return Outcome{Image: img, Err: err}
	})
}
