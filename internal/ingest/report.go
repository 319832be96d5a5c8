package ingest

import "github.com/Atlogit/atlomy/internal/errkind"

// Report summarizes one IngestFile call. Per §7, CitationFormat/Encoding/
// DivisionIntegrity failures are collected here rather than aborting the
// run; Errors is only surfaced to the caller as a hard failure when its
// rate against LinesRead exceeds the configured threshold. IngestFile
// persists a copy via persistence.IngestStore.PutIngestionReport so it
// remains retrievable after the call returns; ReportID is that record's id.
type Report struct {
	ReportID         string
	LinesRead        int
	DivisionsWritten int
	LinesWritten     int
	SentencesWritten int
	Errors           []error
}

func (r *Report) errorRate() float64 {
	if r.LinesRead == 0 {
		return 0
	}
	return float64(len(r.Errors)) / float64(r.LinesRead)
}

// checkThreshold returns a Validation error describing the run as failed
// once the collected error rate exceeds threshold; a non-positive
// threshold disables the check entirely.
func (r *Report) checkThreshold(threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if r.errorRate() <= threshold {
		return nil
	}
	return errkind.New(errkind.Validation, "ingestion error rate exceeded configured threshold")
}
