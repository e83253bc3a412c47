package ports

import (
	"gobunch/domain/bunching"
)

// SampleRequest names the columns to read from a tabular source.
type SampleRequest struct {
	Path string
	// Sheet selects an xlsx sheet; empty means the first sheet.
	Sheet        string
	Column       string
	WeightColumn string
}

// SampleReaderPort loads a Sample from a tabular file.
type SampleReaderPort interface {
	ReadSample(req SampleRequest) (bunching.Sample, error)
}
