package types

// File is one unit of input handed to the pipeline by the file-walking collaborator.
type File struct {
	Path     string
	Language string
	Content  []byte

	// Err is set when the collaborator could not read the file. The pipeline
	// turns it into a file-read error record.
	Err error
}

// AnalyzerOutput is what a single analyzer reports for a single file.
type AnalyzerOutput struct {
	Analyzer string  `json:"analyzer"`
	Issues   []Issue `json:"issues"`
	SubScore float64 `json:"sub_score"`
}

// AnalyzerScore records that an analyzer took part in scoring a file.
type AnalyzerScore struct {
	Analyzer string  `json:"analyzer"`
	SubScore float64 `json:"sub_score"`
}

// AnalysisResult is the final, per-file output of the pipeline.
type AnalysisResult struct {
	FilePath   string          `json:"file_path"`
	Language   string          `json:"language"`
	Issues     []Issue         `json:"issues"`
	TrustScore int             `json:"trust_score"`
	Analyzers  []AnalyzerScore `json:"analyzers"`
}

// ErrorKind classifies a per-file error record.
type ErrorKind string

const (
	ErrorKindFileRead ErrorKind = "file-read"
	ErrorKindDecode   ErrorKind = "decode"
	ErrorKindTimeout  ErrorKind = "timeout"
	ErrorKindInternal ErrorKind = "internal"
)

// FileError is reported in place of an AnalysisResult when a file could not be
// analyzed. It never aborts the batch.
type FileError struct {
	FilePath string    `json:"file_path"`
	Language string    `json:"language"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
}

func (e FileError) Error() string {
	return e.FilePath + ": " + string(e.Kind) + ": " + e.Message
}

// Report is everything one pipeline run produced. Results are sorted by path.
// Unprocessed lists the files that were never started because the run was
// cancelled.
type Report struct {
	RunID       string           `json:"run_id,omitempty"`
	Results     []AnalysisResult `json:"results"`
	Errors      []FileError      `json:"errors,omitempty"`
	Unprocessed []string         `json:"unprocessed,omitempty"`
}
